package core

import "fmt"

// FieldType represents the expected data type for an input column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

// FieldSpec describes a single positional input column.
type FieldSpec struct {
	Name      string    // Column name, also used as the quarantine header
	Type      FieldType // Numeric columns are parsed into numbers when possible
	Mandatory bool      // Checked by the preflight for nulls
}

// Schema is the ordered list of columns in an input line.
type Schema []FieldSpec

// Column positions in the fixed feed layout.
const (
	ColFirstName = iota
	ColLastName
	ColCompany
	ColBirthDate
	ColSalary
	ColAddress
	ColSuburb
	ColState
	ColPost
	ColPhone
	ColMobile
	ColEmail
)

// PersonSchema is the fixed 12-column layout of the person feed.
// Post, Phone and Mobile stay text so leading zeros survive.
var PersonSchema = Schema{
	{Name: "FirstName", Type: FieldText, Mandatory: true},
	{Name: "LastName", Type: FieldText, Mandatory: true},
	{Name: "Company", Type: FieldText},
	{Name: "BirthDate", Type: FieldNumeric},
	{Name: "Salary", Type: FieldNumeric},
	{Name: "Address", Type: FieldText},
	{Name: "Suburb", Type: FieldText},
	{Name: "State", Type: FieldText},
	{Name: "Post", Type: FieldText},
	{Name: "Phone", Type: FieldText},
	{Name: "Mobile", Type: FieldText},
	{Name: "Email", Type: FieldText, Mandatory: true},
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ValueKind tells which representation of a Value is populated.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
)

// Value is one type-normalized input field.
// Raw always holds the source text, including the marker of a null (e.g. "NA").
type Value struct {
	Kind ValueKind
	Raw  string
	Num  float64
}

// Null is the absent value.
var Null = Value{}

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Raw: s} }

// Number returns a numeric value with its source text.
func Number(n float64, raw string) Value { return Value{Kind: KindNumber, Raw: raw, Num: n} }

// IsNull reports whether the field was absent.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String returns the source text.
func (v Value) String() string { return v.Raw }

// RawRecord is one input row, positional per the schema it was read with.
type RawRecord struct {
	Index  int      // Zero-based data row position (blank lines excluded)
	Line   int      // 1-based line in the source file
	Values []Value  // Positional per schema; shorter than the schema for short lines
	Extra  []string // Fields beyond the schema width, if any
}

// Get returns the value at column i, or Null when out of range.
func (r RawRecord) Get(i int) Value {
	if i < 0 || i >= len(r.Values) {
		return Null
	}
	return r.Values[i]
}


// RejectReason classifies why a row was quarantined.
type RejectReason string

const (
	ReasonNullField       RejectReason = "null_field"
	ReasonFieldCount      RejectReason = "field_count"
	ReasonDateFormat      RejectReason = "date_format"
	ReasonSalaryFormat    RejectReason = "salary_format"
	ReasonSalaryRange     RejectReason = "salary_range"
	ReasonInvalidDocument RejectReason = "invalid_document"
)

// RejectedRecord is a quarantined row with the reason it was rejected.
type RejectedRecord struct {
	Record RawRecord
	Err    RowError
}

// Index returns the original row index of the rejected record.
func (r RejectedRecord) Index() int { return r.Record.Index }

// Address is the nested postal address of a person.
// It has no identity of its own and is only ever embedded in a PersonDocument.
type Address struct {
	Street   string `json:"street" bson:"street" validate:"required"`
	Suburb   string `json:"suburb" bson:"suburb" validate:"required"`
	State    string `json:"state" bson:"state" validate:"required"`
	PostCode string `json:"post_code" bson:"post_code" validate:"required"`
}

// NewAddress builds an Address from the four flat source columns.
func NewAddress(street, suburb, state, post string) Address {
	return Address{Street: street, Suburb: suburb, State: state, PostCode: post}
}

// String renders the address on one line.
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.Suburb, a.State, a.PostCode)
}

// PersonDocument is the cleaned, enriched output record.
type PersonDocument struct {
	FullName     string  `json:"FullName" bson:"FullName" validate:"required"`
	Company      string  `json:"Company" bson:"Company" validate:"required"`
	BirthDate    string  `json:"BirthDate" bson:"BirthDate" validate:"required,datetime=02/01/2006"`
	Age          int     `json:"Age" bson:"Age"`
	Salary       string  `json:"Salary" bson:"Salary" validate:"required,startswith=$"`
	SalaryBucket string  `json:"SalaryBucket" bson:"SalaryBucket" validate:"oneof=A B C"`
	Address      Address `json:"Address" bson:"Address"`
	Phone        string  `json:"Phone" bson:"Phone" validate:"required"`
	Mobile       string  `json:"Mobile" bson:"Mobile" validate:"required"`
	Email        string  `json:"Email" bson:"Email" validate:"required"`
}

// TransformResult holds everything a transform produced.
// Every input row ends up in exactly one of Documents or Rejected.
type TransformResult struct {
	Documents []PersonDocument
	Rejected  []RejectedRecord
	Total     int
}
