package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/personetl/internal/config"
	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/extract"
)

// maxListed caps how many row indices a failing check names.
const maxListed = 5

var errSkipped = errors.New("skipped")

// CheckResult is the outcome of one preflight check.
type CheckResult struct {
	Name string
	Err  error
}

// OK reports whether the check passed.
func (c CheckResult) OK() bool { return c.Err == nil }

// Skipped reports whether the check could not run because an earlier one failed.
func (c CheckResult) Skipped() bool { return errors.Is(c.Err, errSkipped) }

// Failed reports whether any result did not pass.
func Failed(results []CheckResult) bool {
	for _, r := range results {
		if !r.OK() {
			return true
		}
	}
	return false
}

// Check validates the environment and the input feed before a run:
// the input is present and well formed, the output directory is writable,
// and the target collection is reachable. It never writes artifacts.
// A nil connect uses MongoConnect.
func Check(ctx context.Context, cfg *config.Config, connect ConnectFunc) []CheckResult {
	if connect == nil {
		connect = MongoConnect
	}
	ctx = withRunID(ctx)

	var results []CheckResult
	add := func(name string, err error) {
		results = append(results, CheckResult{Name: name, Err: err})
	}

	inputDir := filepath.Dir(cfg.File.Input)
	add("input directory exists", checkDir(inputDir))
	add("input directory readable", checkReadableDir(inputDir))
	add("input file exists", checkFile(cfg.File.Input))
	add("input file not empty", checkNotEmpty(cfg.File.Input))

	records, extractErr := extract.New(cfg.DelimiterRune()).ExtractFile(ctx, cfg.File.Input)
	if extractErr != nil {
		extractErr = fmt.Errorf("%w: %v", errSkipped, extractErr)
	}
	dataCheck := func(name string, fn func([]core.RawRecord) error) {
		if extractErr != nil {
			add(name, extractErr)
			return
		}
		add(name, fn(records))
	}
	dataCheck("BirthDate has 8 digits", checkBirthDates)
	dataCheck("no duplicate records", checkDuplicates)
	dataCheck("no nulls in mandatory columns", checkMandatory)
	dataCheck("Salary is numeric", checkSalaries)

	add("output directory writable", checkWritableDir(filepath.Dir(cfg.File.Output)))

	s, err := connect(ctx, storeOptions(cfg))
	add("document store reachable", err)
	if err != nil {
		add("collection exists", fmt.Errorf("%w: store unreachable", errSkipped))
		return results
	}
	defer s.Close(context.WithoutCancel(ctx))

	ok, err := s.HasCollection(ctx, cfg.Database.Name, cfg.Database.Collection)
	if err == nil && !ok {
		err = fmt.Errorf("collection %s.%s not found", cfg.Database.Name, cfg.Database.Collection)
	}
	add("collection exists", err)

	return results
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func checkReadableDir(dir string) error {
	_, err := os.ReadDir(dir)
	return err
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

func checkNotEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

func checkWritableDir(dir string) error {
	f, err := os.CreateTemp(dir, ".personetl-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func checkBirthDates(records []core.RawRecord) error {
	var bad []int
	for _, r := range records {
		if _, err := core.BirthDateDigits(r.Get(core.ColBirthDate)); err != nil {
			bad = append(bad, r.Index)
		}
	}
	return rowsError(bad, "BirthDate is not an 8-digit value")
}

func checkDuplicates(records []core.RawRecord) error {
	dups, err := core.FindDuplicates(records, core.PersonSchema, "FirstName", "LastName", "Email")
	if err != nil {
		return err
	}
	return rowsError(dups, "duplicate FirstName, LastName and Email")
}

func checkMandatory(records []core.RawRecord) error {
	var bad []int
	for _, r := range records {
		for i, spec := range core.PersonSchema {
			if spec.Mandatory && r.Get(i).IsNull() {
				bad = append(bad, r.Index)
				break
			}
		}
	}
	return rowsError(bad, "mandatory column is null")
}

func checkSalaries(records []core.RawRecord) error {
	var bad []int
	for _, r := range records {
		if r.Get(core.ColSalary).Kind != core.KindNumber {
			bad = append(bad, r.Index)
		}
	}
	return rowsError(bad, "Salary is not numeric")
}

// rowsError names up to maxListed offending rows, or returns nil.
func rowsError(indices []int, problem string) error {
	if len(indices) == 0 {
		return nil
	}
	shown := indices
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	parts := make([]string, len(shown))
	for i, idx := range shown {
		parts[i] = strconv.Itoa(idx)
	}
	msg := fmt.Sprintf("%d rows: %s (rows %s", len(indices), problem, strings.Join(parts, ", "))
	if len(indices) > maxListed {
		msg += ", ..."
	}
	return errors.New(msg + ")")
}
