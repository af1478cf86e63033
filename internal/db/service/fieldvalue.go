// Package service implements the reply stores: the polymorphic field store,
// the reply/revision store and the filtered listing query.
package service

// FieldValue is the closed set of value shapes a reply field can hold.
// Every dispatch over it switches exhaustively on the concrete types below.
type FieldValue interface {
	fieldValue()
}

// StringValue is a single text value.
type StringValue string

// NumberValue is a single double-precision value.
type NumberValue float64

// BooleanValue is a single boolean value.
type BooleanValue bool

// ListValue is the ordered, duplicate-free collection of a list field's
// item values.
type ListValue []string

// TableValue is the ordered rows of a table field.
type TableValue []TableRow

// AttachmentValue is the set of attachment IDs referenced by an attachment
// field.
type AttachmentValue []string

func (StringValue) fieldValue()     {}
func (NumberValue) fieldValue()     {}
func (BooleanValue) fieldValue()    {}
func (ListValue) fieldValue()       {}
func (TableValue) fieldValue()      {}
func (AttachmentValue) fieldValue() {}

// TableRow maps cell names to typed cell values.
type TableRow map[string]TableCellValue

// TableCellValue is the closed set of cell shapes a table row can hold.
type TableCellValue interface {
	tableCellValue()
}

// StringCell is a text table cell.
type StringCell string

// NumberCell is a numeric table cell.
type NumberCell float64

func (StringCell) tableCellValue() {}
func (NumberCell) tableCellValue() {}

// SetResult reports the outcome of a field write. A rejected write is a
// no-op for that field and is not an error: one malformed field must not
// abort the rest of a submission.
type SetResult int

const (
	// SetResultAccepted means the value was persisted.
	SetResultAccepted SetResult = iota
	// SetResultUnsupportedType means the value's runtime type has no
	// storage variant and the field was left unchanged.
	SetResultUnsupportedType
)
