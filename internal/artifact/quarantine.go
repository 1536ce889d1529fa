// Package artifact writes and reads the files a run leaves behind:
// the quarantine CSV of rejected rows and the JSON array of documents.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/personetl/internal/core"
)

// quarantinePrefix is prepended to the schema columns in the quarantine header.
var quarantinePrefix = []string{"index", "reason", "detail"}

// QuarantineWriter appends rejected rows to a CSV file.
// The file is truncated on open, so a rerun over the same input
// produces the same quarantine.
type QuarantineWriter struct {
	path   string
	schema core.Schema
	f      *os.File
	w      *csv.Writer
	rows   int
	closed bool
}

// NewQuarantineWriter creates the file at path and writes the header.
func NewQuarantineWriter(path string, schema core.Schema) (*QuarantineWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create quarantine: %v", core.ErrWrite, err)
	}

	q := &QuarantineWriter{
		path:   path,
		schema: schema,
		f:      f,
		w:      csv.NewWriter(f),
	}

	header := append(append([]string(nil), quarantinePrefix...), schema.Names()...)
	if err := q.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write quarantine header: %v", core.ErrWrite, err)
	}
	q.w.Flush()
	if err := q.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write quarantine header: %v", core.ErrWrite, err)
	}
	return q, nil
}

// Path returns the quarantine file location.
func (q *QuarantineWriter) Path() string { return q.path }

// Rows returns how many rejected rows have been written.
func (q *QuarantineWriter) Rows() int { return q.rows }

// Quarantine writes one CSV row per rejected record and flushes.
// Implements core.QuarantineSink.
func (q *QuarantineWriter) Quarantine(rejected []core.RejectedRecord) error {
	for _, r := range rejected {
		if err := q.w.Write(q.row(r)); err != nil {
			return fmt.Errorf("%w: quarantine row %d: %v", core.ErrWrite, r.Index(), err)
		}
	}
	q.w.Flush()
	if err := q.w.Error(); err != nil {
		return fmt.Errorf("%w: flush quarantine: %v", core.ErrWrite, err)
	}
	q.rows += len(rejected)
	return nil
}

// row lays out a rejected record at the fixed header width.
// Surplus source fields are folded into the detail column.
func (q *QuarantineWriter) row(r core.RejectedRecord) []string {
	detail := r.Err.Error()
	if len(r.Record.Extra) > 0 {
		detail += " (extra: " + strings.Join(r.Record.Extra, "|") + ")"
	}

	out := make([]string, 0, len(quarantinePrefix)+len(q.schema))
	out = append(out, strconv.Itoa(r.Index()), string(r.Err.Reason), detail)
	for i := range q.schema {
		out = append(out, r.Record.Get(i).Raw)
	}
	return out
}

// Close flushes and closes the file. Further calls are no-ops.
func (q *QuarantineWriter) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	q.w.Flush()
	werr := q.w.Error()
	cerr := q.f.Close()
	if werr != nil {
		return fmt.Errorf("%w: flush quarantine: %v", core.ErrWrite, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w: close quarantine: %v", core.ErrWrite, cerr)
	}
	return nil
}
