package models

// Table cell type discriminators.
const (
	CellTypeString = "string"
	CellTypeNumber = "number"
)

// StringReplyField stores a single text value. It backs text, memo,
// date/time, select, radio and other string-shaped field types.
type StringReplyField struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_string_fields_reply_name,priority:1;not null"`
	Name    string `gorm:"column:name;uniqueIndex:idx_string_fields_reply_name,priority:2;not null"`
	Value   string `gorm:"column:value;type:text"`
}

// TableName returns the GORM table name.
func (StringReplyField) TableName() string { return "string_reply_fields" }

// NumberReplyField stores a single double-precision value.
type NumberReplyField struct {
	ID      uint    `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string  `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_number_fields_reply_name,priority:1;not null"`
	Name    string  `gorm:"column:name;uniqueIndex:idx_number_fields_reply_name,priority:2;not null"`
	Value   float64 `gorm:"column:value;not null"`
}

// TableName returns the GORM table name.
func (NumberReplyField) TableName() string { return "number_reply_fields" }

// BooleanReplyField stores a single boolean value.
type BooleanReplyField struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_boolean_fields_reply_name,priority:1;not null"`
	Name    string `gorm:"column:name;uniqueIndex:idx_boolean_fields_reply_name,priority:2;not null"`
	Value   bool   `gorm:"column:value;not null"`
}

// TableName returns the GORM table name.
func (BooleanReplyField) TableName() string { return "boolean_reply_fields" }

// ListReplyField owns a set of string items. The value rows live in
// list_reply_field_items.
type ListReplyField struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_list_fields_reply_name,priority:1;not null"`
	Name    string `gorm:"column:name;uniqueIndex:idx_list_fields_reply_name,priority:2;not null"`
}

// TableName returns the GORM table name.
func (ListReplyField) TableName() string { return "list_reply_fields" }

// ListReplyFieldItem is one value of a list field. Duplicate values within
// a field are rejected by the (field_id, value) unique index.
type ListReplyFieldItem struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	FieldID uint   `gorm:"column:field_id;uniqueIndex:idx_list_items_field_value,priority:1;not null"`
	Value   string `gorm:"column:value;uniqueIndex:idx_list_items_field_value,priority:2;not null"`
}

// TableName returns the GORM table name.
func (ListReplyFieldItem) TableName() string { return "list_reply_field_items" }

// TableReplyField owns a set of rows, each row a set of typed cells.
type TableReplyField struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_table_fields_reply_name,priority:1;not null"`
	Name    string `gorm:"column:name;uniqueIndex:idx_table_fields_reply_name,priority:2;not null"`
}

// TableName returns the GORM table name.
func (TableReplyField) TableName() string { return "table_reply_fields" }

// TableReplyFieldRow is one ordered row of a table field.
type TableReplyFieldRow struct {
	ID       uint `gorm:"primaryKey;column:id;autoIncrement"`
	FieldID  uint `gorm:"column:field_id;index;not null"`
	RowIndex int  `gorm:"column:row_index;not null"`
}

// TableName returns the GORM table name.
func (TableReplyFieldRow) TableName() string { return "table_reply_field_rows" }

// TableReplyFieldRowCell is one typed cell of a table row, identified by
// (row, name). CellType discriminates which value column is meaningful.
type TableReplyFieldRowCell struct {
	ID          uint    `gorm:"primaryKey;column:id;autoIncrement"`
	RowID       uint    `gorm:"column:row_id;uniqueIndex:idx_table_cells_row_name,priority:1;not null"`
	Name        string  `gorm:"column:name;uniqueIndex:idx_table_cells_row_name,priority:2;not null"`
	CellType    string  `gorm:"column:cell_type;not null"`
	StringValue string  `gorm:"column:string_value;type:text"`
	NumberValue float64 `gorm:"column:number_value"`
}

// TableName returns the GORM table name.
func (TableReplyFieldRowCell) TableName() string { return "table_reply_field_row_cells" }

// AttachmentReplyField owns a set of attachment references.
type AttachmentReplyField struct {
	ID      uint   `gorm:"primaryKey;column:id;autoIncrement"`
	ReplyID string `gorm:"column:reply_id;type:varchar(36);uniqueIndex:idx_attachment_fields_reply_name,priority:1;not null"`
	Name    string `gorm:"column:name;uniqueIndex:idx_attachment_fields_reply_name,priority:2;not null"`
}

// TableName returns the GORM table name.
func (AttachmentReplyField) TableName() string { return "attachment_reply_fields" }

// AttachmentReplyFieldItem references one attachment from an attachment
// field. The (field_id, attachment_id) unique index rejects duplicates.
type AttachmentReplyFieldItem struct {
	ID           uint   `gorm:"primaryKey;column:id;autoIncrement"`
	FieldID      uint   `gorm:"column:field_id;uniqueIndex:idx_attachment_items_field_att,priority:1;not null"`
	AttachmentID string `gorm:"column:attachment_id;type:varchar(36);uniqueIndex:idx_attachment_items_field_att,priority:2;not null"`
}

// TableName returns the GORM table name.
func (AttachmentReplyFieldItem) TableName() string { return "attachment_reply_field_items" }

// All lists every model for migration, children after their owners.
func All() []any {
	return []any{
		&Reply{},
		&Attachment{},
		&StringReplyField{},
		&NumberReplyField{},
		&BooleanReplyField{},
		&ListReplyField{},
		&ListReplyFieldItem{},
		&TableReplyField{},
		&TableReplyFieldRow{},
		&TableReplyFieldRowCell{},
		&AttachmentReplyField{},
		&AttachmentReplyFieldItem{},
	}
}
