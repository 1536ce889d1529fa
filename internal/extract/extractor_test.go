package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/personetl/internal/core"
)

const janeLine = " Jane |Doe |Acme Pty Ltd|01032024|75000|1 Main St|Carlton|VIC|3053|0390001111|0400111222|jane@example.com"

func TestRead_TypedValues(t *testing.T) {
	records, err := New(0).Read(context.Background(), strings.NewReader(janeLine+"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	r := records[0]
	if r.Index != 0 || r.Line != 1 {
		t.Errorf("Index/Line = %d/%d, want 0/1", r.Index, r.Line)
	}
	if got := r.Get(core.ColFirstName); got.Kind != core.KindText || got.Raw != " Jane " {
		t.Errorf("FirstName = %+v, want untrimmed text", got)
	}
	if got := r.Get(core.ColBirthDate); got.Kind != core.KindNumber || got.Num != 1032024 {
		t.Errorf("BirthDate = %+v, want number 1032024", got)
	}
	if got := r.Get(core.ColSalary); got.Kind != core.KindNumber || got.Num != 75000 {
		t.Errorf("Salary = %+v, want number 75000", got)
	}
	if got := r.Get(core.ColPhone); got.Kind != core.KindText || got.Raw != "0390001111" {
		t.Errorf("Phone = %+v, want text with leading zero", got)
	}
}

func TestRead_NullsAndShape(t *testing.T) {
	input := strings.Join([]string{
		"A|B|C|01012000|10|st|sub|ST|1|2|3|", // empty Email
		"",                                      // blank line skipped
		"A|B|NA|01012000|10|st|sub|ST|1|2|3|e",  // NA marker
		"A|B|C|01012000",                        // short
		"A|B|C|01012000|10|st|sub|ST|1|2|3|e|x", // long
		"A|B|C|01012000|ten|st|sub|ST|1|2|3|e",  // non-numeric salary stays text
	}, "\n")

	records, err := New('|').Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}

	for i, r := range records {
		if r.Index != i {
			t.Errorf("record %d has Index %d", i, r.Index)
		}
	}
	if !records[0].Get(core.ColEmail).IsNull() {
		t.Error("empty Email should be null")
	}
	if records[1].Line != 3 {
		t.Errorf("Line after blank = %d, want 3", records[1].Line)
	}
	if !records[1].Get(core.ColCompany).IsNull() {
		t.Error("NA Company should be null")
	}
	if len(records[2].Values) != 4 || !records[2].Get(core.ColEmail).IsNull() {
		t.Errorf("short row Values = %d, want 4 with null tail", len(records[2].Values))
	}
	if len(records[3].Extra) != 1 || records[3].Extra[0] != "x" {
		t.Errorf("long row Extra = %v, want [x]", records[3].Extra)
	}
	if got := records[4].Get(core.ColSalary); got.Kind != core.KindText || got.Raw != "ten" {
		t.Errorf("Salary = %+v, want text", got)
	}
}

func TestExtractFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")
	_, err := New(0).ExtractFile(context.Background(), path)
	if !errors.Is(err, core.ErrRead) {
		t.Fatalf("error = %v, want ErrRead", err)
	}
	if core.PhaseOf(err) != core.PhaseExtract {
		t.Errorf("phase = %q, want extract", core.PhaseOf(err))
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error should name the path: %v", err)
	}
}

func TestExtractFile_Directory(t *testing.T) {
	_, err := New(0).ExtractFile(context.Background(), t.TempDir())
	if !errors.Is(err, core.ErrRead) {
		t.Fatalf("error = %v, want ErrRead", err)
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(janeLine+"\n"+janeLine+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := New(0).ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Index != 1 || records[1].Line != 2 {
		t.Errorf("second record Index/Line = %d/%d", records[1].Index, records[1].Line)
	}
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).Read(ctx, strings.NewReader(janeLine))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestRead_QuotesAreLiteral(t *testing.T) {
	input := strings.Join([]string{
		`"Jane|Doe|Acme|01032000|75000|1 Main St|Carlton|VIC|3053|0390001111|0400111222|jane@example.com`,
		"Bob|Roe|Acme|02032000|65000|2 Main St|Carlton|VIC|3053|0390001112|0400111223|bob@example.com",
		`Amy|"Poe|Acme|03032000|55000|3 Main St|Carlton|VIC|3053|0390001113|0400111224|amy@example.com`,
	}, "\n") + "\n"

	records, err := New('|').Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Index != i || r.Line != i+1 {
			t.Errorf("record %d Index/Line = %d/%d", i, r.Index, r.Line)
		}
		if len(r.Values) != len(core.PersonSchema) || len(r.Extra) != 0 {
			t.Errorf("record %d has %d values, %d extra", i, len(r.Values), len(r.Extra))
		}
	}
	if got := records[0].Get(core.ColFirstName).Raw; got != `"Jane` {
		t.Errorf("FirstName = %q, want %q", got, `"Jane`)
	}
	if got := records[2].Get(core.ColLastName).Raw; got != `"Poe` {
		t.Errorf("LastName = %q, want %q", got, `"Poe`)
	}

	valid, rejected := core.Partition(records, core.PersonSchema)
	if len(valid)+len(rejected) != len(records) {
		t.Errorf("partition lost rows: %d valid + %d rejected != %d", len(valid), len(rejected), len(records))
	}
}

func TestRead_CRLFAndWhitespaceLines(t *testing.T) {
	input := janeLine + "\r\n   \r\n" + janeLine + "\r\n"
	records, err := New(0).Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[1].Get(core.ColEmail).Raw; got != "jane@example.com" {
		t.Errorf("Email = %q, want no trailing CR", got)
	}
	if records[1].Index != 1 || records[1].Line != 3 {
		t.Errorf("second record Index/Line = %d/%d, want 1/3", records[1].Index, records[1].Line)
	}
}

func TestRead_LineTooLong(t *testing.T) {
	input := strings.Repeat("x", maxLineSize+1)
	_, err := New(0).Read(context.Background(), strings.NewReader(input))
	if !errors.Is(err, core.ErrRead) {
		t.Fatalf("error = %v, want ErrRead", err)
	}
}
