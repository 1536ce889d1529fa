package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/personetl/internal/logging"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 100

// DefaultReferenceDate is the date ages are computed against unless configured.
var DefaultReferenceDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// QuarantineSink receives rejected rows as soon as they are known.
// It may be called more than once per batch.
type QuarantineSink interface {
	Quarantine(rejected []RejectedRecord) error
}

// Transformer turns raw person rows into output documents.
type Transformer struct {
	schema    Schema
	reference time.Time
	sink      QuarantineSink
}

// NewTransformer creates a transformer computing ages against reference.
// sink may be nil, in which case rejected rows are only returned.
func NewTransformer(reference time.Time, sink QuarantineSink) *Transformer {
	return &Transformer{
		schema:    PersonSchema,
		reference: reference,
		sink:      sink,
	}
}

// Transform partitions the batch, quarantines incomplete rows, then derives a
// document for every remaining row. Rows that fail derivation (bad date,
// bad salary) join the same quarantine and the batch continues.
//
// Only structural problems are returned as errors: a failing quarantine
// sink or a cancelled context.
func (t *Transformer) Transform(ctx context.Context, records []RawRecord) (*TransformResult, error) {
	logger := logging.WithFields(ctx, "phase", PhaseTransform)

	valid, rejected := Partition(records, t.schema)
	if err := t.quarantine(ctx, rejected); err != nil {
		return nil, err
	}
	logger.Info("partitioned batch",
		"rows", len(records),
		"valid", len(valid),
		"rejected", len(rejected),
	)

	result := &TransformResult{
		Documents: make([]PersonDocument, 0, len(valid)),
		Total:     len(records),
	}

	var late []RejectedRecord
	for i, r := range valid {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("transform cancelled at row %d: %w", r.Index, err)
			}
		}

		doc, rowErr := t.Derive(r)
		if rowErr != nil {
			late = append(late, RejectedRecord{Record: r, Err: *rowErr})
			continue
		}
		logger.Debug("derived document", "index", r.Index, "age", doc.Age, "bucket", doc.SalaryBucket)
		result.Documents = append(result.Documents, doc)
	}

	if err := t.quarantine(ctx, late); err != nil {
		return nil, err
	}

	result.Rejected = append(rejected, late...)
	sort.SliceStable(result.Rejected, func(i, j int) bool {
		return result.Rejected[i].Index() < result.Rejected[j].Index()
	})

	logger.Info("transformed batch",
		"documents", len(result.Documents),
		"quarantined", len(result.Rejected),
	)
	return result, nil
}

// quarantine hands rejected rows to the sink and logs each one.
func (t *Transformer) quarantine(ctx context.Context, rejected []RejectedRecord) error {
	if len(rejected) == 0 {
		return nil
	}
	logger := logging.FromContext(ctx)
	for _, r := range rejected {
		logger.Warn("row quarantined",
			"index", r.Index(),
			"line", r.Record.Line,
			"reason", r.Err.Reason,
			"detail", r.Err.Error(),
		)
	}
	if t.sink == nil {
		return nil
	}
	if err := t.sink.Quarantine(rejected); err != nil {
		return fmt.Errorf("write quarantine: %w", err)
	}
	return nil
}

// Derive builds the output document for a complete row.
// The row must already have passed Partition.
func (t *Transformer) Derive(r RawRecord) (PersonDocument, *RowError) {
	birthVal := r.Get(ColBirthDate)
	birth, err := ParseBirthDate(birthVal)
	if err != nil {
		return PersonDocument{}, &RowError{
			Reason:  ReasonDateFormat,
			Field:   t.schema[ColBirthDate].Name,
			Value:   birthVal.Raw,
			Message: err.Error(),
		}
	}

	salaryVal := r.Get(ColSalary)
	if salaryVal.Kind != KindNumber {
		return PersonDocument{}, &RowError{
			Reason:  ReasonSalaryFormat,
			Field:   t.schema[ColSalary].Name,
			Value:   salaryVal.Raw,
			Message: "salary is not numeric",
		}
	}
	salary := RoundCents(salaryVal.Num)
	bucket, ok := SalaryBucket(salary)
	if !ok {
		return PersonDocument{}, &RowError{
			Reason:  ReasonSalaryRange,
			Field:   t.schema[ColSalary].Name,
			Value:   salaryVal.Raw,
			Message: "salary must be greater than zero",
		}
	}

	doc := PersonDocument{
		FullName:     ComposeName(r.Get(ColFirstName).Raw, r.Get(ColLastName).Raw),
		Company:      r.Get(ColCompany).Raw,
		BirthDate:    FormatBirthDate(birth),
		Age:          AgeAt(birth, t.reference),
		Salary:       FormatCurrency(salary),
		SalaryBucket: bucket,
		Address: NewAddress(
			r.Get(ColAddress).Raw,
			r.Get(ColSuburb).Raw,
			r.Get(ColState).Raw,
			r.Get(ColPost).Raw,
		),
		Phone:  r.Get(ColPhone).Raw,
		Mobile: r.Get(ColMobile).Raw,
		Email:  r.Get(ColEmail).Raw,
	}
	return doc, nil
}
