package schema

import "log/slog"

// StorageType is the coarse storage shape a declared field type maps to.
// StorageTypeNone fields are presentational (or flow through a dedicated
// writer, as table fields do) and are excluded from scalar persistence and
// from filtering.
type StorageType int

const (
	StorageTypeNone StorageType = iota
	StorageTypeString
	StorageTypeNumber
	StorageTypeBoolean
	StorageTypeList
)

// String returns a readable name for logging.
func (t StorageType) String() string {
	switch t {
	case StorageTypeNone:
		return "NONE"
	case StorageTypeString:
		return "STRING"
	case StorageTypeNumber:
		return "NUMBER"
	case StorageTypeBoolean:
		return "BOOLEAN"
	case StorageTypeList:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// ResolveStorageType maps a declared field type to its storage shape.
// Every known field type maps to exactly one storage type. An unrecognized
// type is a configuration defect in the schema, not a caller error: it is
// logged and resolves to StorageTypeNone so the rest of the reply still
// goes through.
func ResolveStorageType(fieldType FieldType) StorageType {
	switch fieldType {
	case FieldTypeNumber:
		return StorageTypeNumber
	case FieldTypeBoolean:
		return StorageTypeBoolean
	case FieldTypeChecklist, FieldTypeFiles:
		return StorageTypeList
	case FieldTypeText, FieldTypeMemo, FieldTypeSelect, FieldTypeRadio,
		FieldTypeAutocomplete, FieldTypeDate, FieldTypeTime,
		FieldTypeDateTime, FieldTypeEmail, FieldTypeURL, FieldTypeHidden:
		return StorageTypeString
	case FieldTypeHTML, FieldTypeLogo, FieldTypeSubmit, FieldTypeSmallText,
		FieldTypeTable:
		return StorageTypeNone
	default:
		slog.Warn("unrecognized metaform field type", "type", string(fieldType))
		return StorageTypeNone
	}
}
