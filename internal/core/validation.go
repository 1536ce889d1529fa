package core

// validation.go provides row-level completeness checks before derivation.
//
// Validation happens at two levels:
//  1. Shape: the row must have exactly one field per schema column
//  2. Completeness: no column may be null
//
// Partition applies both and splits a batch into rows that may proceed to
// derivation and rows that go to the quarantine. A row is never split: it is
// either fully valid or rejected as a whole.
//
// ValidateDocument checks the other end: a document read back from an output
// artifact before it is loaded again.

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var documentValidator = validator.New(validator.WithRequiredStructEnabled())

// RowValidator checks rows against a schema.
type RowValidator struct {
	schema Schema
}

// NewRowValidator creates a validator for the given schema.
func NewRowValidator(schema Schema) *RowValidator {
	return &RowValidator{schema: schema}
}

// ValidateRow returns every problem with the row.
// Useful for reporting all null columns of a row at once.
func (v *RowValidator) ValidateRow(r RawRecord) []RowError {
	var errs []RowError

	if len(r.Extra) > 0 || len(r.Values) != len(v.schema) {
		errs = append(errs, RowError{
			Reason:  ReasonFieldCount,
			Message: fmt.Sprintf("row has %d fields, expected %d", len(r.Values)+len(r.Extra), len(v.schema)),
		})
	}

	for i, spec := range v.schema {
		if r.Get(i).IsNull() {
			errs = append(errs, RowError{
				Reason:  ReasonNullField,
				Field:   spec.Name,
				Message: "required field is empty",
			})
		}
	}
	return errs
}

// ValidateRowFirst returns the first problem with the row, or nil.
// A field-count problem takes precedence over nulls since it usually causes them.
func (v *RowValidator) ValidateRowFirst(r RawRecord) *RowError {
	errs := v.ValidateRow(r)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	if first.Reason == ReasonNullField && len(errs) > 1 {
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, e.Field)
		}
		first.Field = strings.Join(fields, ";")
		first.Message = "required fields are empty"
	}
	return &first
}

// Partition splits records into valid rows and rejected rows.
// The two outputs together hold every input record exactly once, in input order.
func Partition(records []RawRecord, schema Schema) (valid []RawRecord, rejected []RejectedRecord) {
	v := NewRowValidator(schema)
	for _, r := range records {
		if err := v.ValidateRowFirst(r); err != nil {
			rejected = append(rejected, RejectedRecord{Record: r, Err: *err})
			continue
		}
		valid = append(valid, r)
	}
	return valid, rejected
}

// FindDuplicates returns the indices of records whose key columns repeat an
// earlier record. Rows with a null key column are never reported.
func FindDuplicates(records []RawRecord, schema Schema, columns ...string) ([]int, error) {
	positions := make([]int, len(columns))
	for i, c := range columns {
		pos := schema.Index(c)
		if pos < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		positions[i] = pos
	}

	seen := make(map[string]bool, len(records))
	var dups []int
	for _, r := range records {
		parts := make([]string, len(positions))
		skip := false
		for i, pos := range positions {
			val := r.Get(pos)
			if val.IsNull() {
				skip = true
				break
			}
			parts[i] = strings.TrimSpace(val.Raw)
		}
		if skip {
			continue
		}
		key := strings.Join(parts, "\x1f")
		if seen[key] {
			dups = append(dups, r.Index)
			continue
		}
		seen[key] = true
	}
	return dups, nil
}

// ValidateDocument checks that doc carries every derived field with the
// derived format. It returns nil for any document Derive produces.
func ValidateDocument(doc PersonDocument) *RowError {
	err := documentValidator.Struct(doc)
	if err == nil {
		return nil
	}

	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
		}
	}
	if len(fields) == 0 {
		return &RowError{Reason: ReasonInvalidDocument, Message: err.Error()}
	}
	return &RowError{
		Reason:  ReasonInvalidDocument,
		Message: "invalid document: " + strings.Join(fields, ", "),
	}
}
