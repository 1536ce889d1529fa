// Package extract reads the delimited person feed into typed raw records.
package extract

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/logging"
)

// DefaultDelimiter separates fields in the input feed.
const DefaultDelimiter = '|'

// maxLineSize bounds a single input line.
const maxLineSize = 1024 * 1024

// Extractor maps delimited lines positionally onto a schema.
// The feed has no header row.
type Extractor struct {
	Schema    core.Schema
	Delimiter rune
}

// New returns an extractor for the person feed.
func New(delimiter rune) *Extractor {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &Extractor{Schema: core.PersonSchema, Delimiter: delimiter}
}

// ExtractFile reads every record of the file at path, in file order.
// Any failure is an ErrRead naming the path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]core.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewPhaseError(core.PhaseExtract, path, fmt.Errorf("%w: %v", core.ErrRead, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, core.NewPhaseError(core.PhaseExtract, path, fmt.Errorf("%w: %v", core.ErrRead, err))
	}
	if info.IsDir() {
		return nil, core.NewPhaseError(core.PhaseExtract, path, fmt.Errorf("%w: path is a directory", core.ErrRead))
	}

	counter := wrapInput(f, info.Size())
	records, err := e.read(ctx, counter)
	if err != nil {
		return nil, core.NewPhaseError(core.PhaseExtract, path, err)
	}

	logging.WithFields(ctx, "phase", core.PhaseExtract).Info("extracted feed",
		"path", path,
		"rows", len(records),
		"bytes", counter.BytesRead,
		"progress", counter.Progress(),
	)
	return records, nil
}

// Read parses records from r. Blank lines are skipped and do not consume an index.
//
// The feed has no quoting: every byte between two delimiters is field text,
// quotes included. A line with the wrong number of fields is not fatal: it is
// returned short, or with surplus fields kept in Extra, so validation can
// quarantine the row. Only an unreadable stream or an oversized line fails
// the read.
func (e *Extractor) Read(ctx context.Context, r io.Reader) ([]core.RawRecord, error) {
	return e.read(ctx, wrapInput(r, 0))
}

func (e *Extractor) read(ctx context.Context, r io.Reader) ([]core.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sep := string(e.Delimiter)

	var records []core.RawRecord
	line := 0
	for sc.Scan() {
		line++
		index := len(records)
		if index%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("extract cancelled at row %d: %w", index, err)
			}
		}

		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, e.toRecord(index, line, strings.Split(text, sep)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", core.ErrRead, line+1, err)
	}
	return records, nil
}

// toRecord maps raw fields onto the schema.
// A short line yields fewer Values than schema columns; Get reports those as null.
func (e *Extractor) toRecord(index, line int, fields []string) core.RawRecord {
	width := min(len(fields), len(e.Schema))
	rec := core.RawRecord{
		Index:  index,
		Line:   line,
		Values: make([]core.Value, width),
	}
	for i := 0; i < width; i++ {
		rec.Values[i] = core.ParseValue(fields[i], e.Schema[i].Type)
	}
	if len(fields) > len(e.Schema) {
		rec.Extra = append([]string(nil), fields[len(e.Schema):]...)
	}
	return rec
}
