package service

import (
	"errors"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/metaformlabs/metaform-server/internal/db/models"
	"github.com/metaformlabs/metaform-server/internal/schema"
)

// variantKind identifies one of the six field variant tables.
type variantKind int

const (
	kindString variantKind = iota
	kindNumber
	kindBoolean
	kindList
	kindTable
	kindAttachment
)

var allVariantKinds = []variantKind{
	kindString, kindNumber, kindBoolean, kindList, kindTable, kindAttachment,
}

// FieldStore persists reply field values across the variant tables. Exactly
// one variant row exists for a (reply, name) pair at any time; a write that
// changes the variant type deletes the old row before creating the new one.
type FieldStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewFieldStore creates a new FieldStore.
func NewFieldStore(db *gorm.DB, logger *slog.Logger) *FieldStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldStore{db: db, logger: logger}
}

// GetValue reads the value of a named field. Meta fields are computed from
// reply metadata; stored fields are looked up across the variant tables.
// Returns nil, nil when the reply holds no value for the name.
func (s *FieldStore) GetValue(metaform *schema.Metaform, reply *models.Reply, name string) (FieldValue, error) {
	if metaform != nil && metaform.IsMetaField(name) {
		value, ok := schema.ResolveMetaField(name, schema.ReplyMeta{
			UserID:     reply.UserID,
			CreatedAt:  reply.CreatedAt,
			ModifiedAt: reply.ModifiedAt,
		})
		if !ok {
			return nil, nil
		}
		return StringValue(value), nil
	}

	var stringField models.StringReplyField
	err := s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&stringField).Error
	if err == nil {
		return StringValue(stringField.Value), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading string field %q: %w", name, err)
	}

	var numberField models.NumberReplyField
	err = s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&numberField).Error
	if err == nil {
		return NumberValue(numberField.Value), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading number field %q: %w", name, err)
	}

	var booleanField models.BooleanReplyField
	err = s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&booleanField).Error
	if err == nil {
		return BooleanValue(booleanField.Value), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading boolean field %q: %w", name, err)
	}

	var listField models.ListReplyField
	err = s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&listField).Error
	if err == nil {
		return s.readListItems(listField.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading list field %q: %w", name, err)
	}

	var tableField models.TableReplyField
	err = s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&tableField).Error
	if err == nil {
		return s.readTableRows(tableField.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading table field %q: %w", name, err)
	}

	var attachmentField models.AttachmentReplyField
	err = s.db.Where("reply_id = ? AND name = ?", reply.ID, name).First(&attachmentField).Error
	if err == nil {
		return s.readAttachmentItems(attachmentField.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading attachment field %q: %w", name, err)
	}

	return nil, nil
}

func (s *FieldStore) readListItems(fieldID uint) (FieldValue, error) {
	var items []models.ListReplyFieldItem
	if err := s.db.Where("field_id = ?", fieldID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("reading list items: %w", err)
	}
	values := make(ListValue, 0, len(items))
	for _, item := range items {
		values = append(values, item.Value)
	}
	return values, nil
}

func (s *FieldStore) readTableRows(fieldID uint) (FieldValue, error) {
	var rows []models.TableReplyFieldRow
	if err := s.db.Where("field_id = ?", fieldID).Order("row_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading table rows: %w", err)
	}
	if len(rows) == 0 {
		return TableValue{}, nil
	}

	rowIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		rowIDs = append(rowIDs, row.ID)
	}

	var cells []models.TableReplyFieldRowCell
	if err := s.db.Where("row_id IN ?", rowIDs).Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("reading table cells: %w", err)
	}

	cellsByRow := make(map[uint][]models.TableReplyFieldRowCell)
	for _, cell := range cells {
		cellsByRow[cell.RowID] = append(cellsByRow[cell.RowID], cell)
	}

	value := make(TableValue, 0, len(rows))
	for _, row := range rows {
		tableRow := make(TableRow)
		for _, cell := range cellsByRow[row.ID] {
			switch cell.CellType {
			case models.CellTypeNumber:
				tableRow[cell.Name] = NumberCell(cell.NumberValue)
			default:
				tableRow[cell.Name] = StringCell(cell.StringValue)
			}
		}
		value = append(value, tableRow)
	}
	return value, nil
}

func (s *FieldStore) readAttachmentItems(fieldID uint) (FieldValue, error) {
	var items []models.AttachmentReplyFieldItem
	if err := s.db.Where("field_id = ?", fieldID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("reading attachment items: %w", err)
	}
	ids := make(AttachmentValue, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.AttachmentID)
	}
	return ids, nil
}

// SetValue writes a scalar field value, dispatching on the runtime type of
// value rather than on the schema-declared field type. Booleans land in the
// boolean table, numeric kinds in the number table (as float64) and strings
// in the string table. Any other type is rejected: the write is logged,
// the field is left unchanged and no error is returned, so one malformed
// field cannot abort sibling writes.
func (s *FieldStore) SetValue(reply *models.Reply, name string, value any) (SetResult, error) {
	switch v := value.(type) {
	case bool:
		return SetResultAccepted, s.setBoolean(reply.ID, name, v)
	case string:
		return SetResultAccepted, s.setString(reply.ID, name, v)
	}
	if number, ok := toFloat64(value); ok {
		return SetResultAccepted, s.setNumber(reply.ID, name, number)
	}

	s.logger.Warn("unsupported value type for field",
		"field", name, "reply", reply.ID, "type", fmt.Sprintf("%T", value))
	return SetResultUnsupportedType, nil
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (s *FieldStore) setString(replyID, name, value string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, replyID, name, kindString); err != nil {
			return err
		}
		field := models.StringReplyField{ReplyID: replyID, Name: name, Value: value}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reply_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&field).Error
		if err != nil {
			return fmt.Errorf("writing string field %q: %w", name, err)
		}
		return nil
	})
}

func (s *FieldStore) setNumber(replyID, name string, value float64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, replyID, name, kindNumber); err != nil {
			return err
		}
		field := models.NumberReplyField{ReplyID: replyID, Name: name, Value: value}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reply_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&field).Error
		if err != nil {
			return fmt.Errorf("writing number field %q: %w", name, err)
		}
		return nil
	})
}

func (s *FieldStore) setBoolean(replyID, name string, value bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, replyID, name, kindBoolean); err != nil {
			return err
		}
		field := models.BooleanReplyField{ReplyID: replyID, Name: name, Value: value}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reply_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&field).Error
		if err != nil {
			return fmt.Errorf("writing boolean field %q: %w", name, err)
		}
		return nil
	})
}

// SetListValue replaces the item set of a list field. Items are deduplicated
// preserving first occurrence, honoring the (field, value) uniqueness
// constraint.
func (s *FieldStore) SetListValue(reply *models.Reply, name string, items []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, reply.ID, name, kindList); err != nil {
			return err
		}

		var field models.ListReplyField
		err := tx.Where("reply_id = ? AND name = ?", reply.ID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			field = models.ListReplyField{ReplyID: reply.ID, Name: name}
			if err := tx.Create(&field).Error; err != nil {
				return fmt.Errorf("creating list field %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("reading list field %q: %w", name, err)
		} else {
			if err := tx.Where("field_id = ?", field.ID).Delete(&models.ListReplyFieldItem{}).Error; err != nil {
				return fmt.Errorf("clearing list field %q: %w", name, err)
			}
		}

		seen := mapset.NewThreadUnsafeSet[string]()
		for _, value := range items {
			if !seen.Add(value) {
				continue
			}
			item := models.ListReplyFieldItem{FieldID: field.ID, Value: value}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("writing list item for field %q: %w", name, err)
			}
		}
		return nil
	})
}

// SetTableValue replaces the rows of a table field. Row order is preserved
// through the row_index column.
func (s *FieldStore) SetTableValue(reply *models.Reply, name string, rows []TableRow) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, reply.ID, name, kindTable); err != nil {
			return err
		}

		var field models.TableReplyField
		err := tx.Where("reply_id = ? AND name = ?", reply.ID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			field = models.TableReplyField{ReplyID: reply.ID, Name: name}
			if err := tx.Create(&field).Error; err != nil {
				return fmt.Errorf("creating table field %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("reading table field %q: %w", name, err)
		} else {
			if err := deleteTableChildren(tx, field.ID); err != nil {
				return fmt.Errorf("clearing table field %q: %w", name, err)
			}
		}

		for index, row := range rows {
			rowModel := models.TableReplyFieldRow{FieldID: field.ID, RowIndex: index}
			if err := tx.Create(&rowModel).Error; err != nil {
				return fmt.Errorf("writing table row for field %q: %w", name, err)
			}
			for cellName, cellValue := range row {
				cell := models.TableReplyFieldRowCell{RowID: rowModel.ID, Name: cellName}
				switch v := cellValue.(type) {
				case StringCell:
					cell.CellType = models.CellTypeString
					cell.StringValue = string(v)
				case NumberCell:
					cell.CellType = models.CellTypeNumber
					cell.NumberValue = float64(v)
				}
				if err := tx.Create(&cell).Error; err != nil {
					return fmt.Errorf("writing table cell %q for field %q: %w", cellName, name, err)
				}
			}
		}
		return nil
	})
}

// SetAttachments replaces the attachment references of an attachment field.
// IDs are deduplicated, honoring the (field, attachment) uniqueness
// constraint.
func (s *FieldStore) SetAttachments(reply *models.Reply, name string, attachmentIDs []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOtherVariants(tx, reply.ID, name, kindAttachment); err != nil {
			return err
		}

		var field models.AttachmentReplyField
		err := tx.Where("reply_id = ? AND name = ?", reply.ID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			field = models.AttachmentReplyField{ReplyID: reply.ID, Name: name}
			if err := tx.Create(&field).Error; err != nil {
				return fmt.Errorf("creating attachment field %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("reading attachment field %q: %w", name, err)
		} else {
			if err := tx.Where("field_id = ?", field.ID).Delete(&models.AttachmentReplyFieldItem{}).Error; err != nil {
				return fmt.Errorf("clearing attachment field %q: %w", name, err)
			}
		}

		seen := mapset.NewThreadUnsafeSet[string]()
		for _, attachmentID := range attachmentIDs {
			if !seen.Add(attachmentID) {
				continue
			}
			item := models.AttachmentReplyFieldItem{FieldID: field.ID, AttachmentID: attachmentID}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("writing attachment item for field %q: %w", name, err)
			}
		}
		return nil
	})
}

// DeleteFields removes the stored variant for each named field. Names with
// no stored value are silently skipped.
func (s *FieldStore) DeleteFields(reply *models.Reply, names []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			for _, kind := range allVariantKinds {
				if err := deleteVariant(tx, reply.ID, name, kind); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// DeleteReply removes every field variant owned by the reply and then the
// reply row itself, children before owners.
func (s *FieldStore) DeleteReply(reply *models.Reply) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var listFieldIDs []uint
		if err := tx.Model(&models.ListReplyField{}).Where("reply_id = ?", reply.ID).Pluck("id", &listFieldIDs).Error; err != nil {
			return fmt.Errorf("collecting list fields: %w", err)
		}
		if len(listFieldIDs) > 0 {
			if err := tx.Where("field_id IN ?", listFieldIDs).Delete(&models.ListReplyFieldItem{}).Error; err != nil {
				return fmt.Errorf("deleting list items: %w", err)
			}
		}

		var tableFieldIDs []uint
		if err := tx.Model(&models.TableReplyField{}).Where("reply_id = ?", reply.ID).Pluck("id", &tableFieldIDs).Error; err != nil {
			return fmt.Errorf("collecting table fields: %w", err)
		}
		for _, fieldID := range tableFieldIDs {
			if err := deleteTableChildren(tx, fieldID); err != nil {
				return err
			}
		}

		var attachmentFieldIDs []uint
		if err := tx.Model(&models.AttachmentReplyField{}).Where("reply_id = ?", reply.ID).Pluck("id", &attachmentFieldIDs).Error; err != nil {
			return fmt.Errorf("collecting attachment fields: %w", err)
		}
		if len(attachmentFieldIDs) > 0 {
			if err := tx.Where("field_id IN ?", attachmentFieldIDs).Delete(&models.AttachmentReplyFieldItem{}).Error; err != nil {
				return fmt.Errorf("deleting attachment items: %w", err)
			}
		}

		for _, model := range []any{
			&models.StringReplyField{},
			&models.NumberReplyField{},
			&models.BooleanReplyField{},
			&models.ListReplyField{},
			&models.TableReplyField{},
			&models.AttachmentReplyField{},
		} {
			if err := tx.Where("reply_id = ?", reply.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("deleting reply fields: %w", err)
			}
		}

		if err := tx.Where("id = ?", reply.ID).Delete(&models.Reply{}).Error; err != nil {
			return fmt.Errorf("deleting reply: %w", err)
		}
		return nil
	})
}

// deleteOtherVariants removes every variant row for (reply, name) except the
// one being written, so a cross-type overwrite leaves exactly one row.
func deleteOtherVariants(tx *gorm.DB, replyID, name string, keep variantKind) error {
	for _, kind := range allVariantKinds {
		if kind == keep {
			continue
		}
		if err := deleteVariant(tx, replyID, name, kind); err != nil {
			return err
		}
	}
	return nil
}

func deleteVariant(tx *gorm.DB, replyID, name string, kind variantKind) error {
	switch kind {
	case kindString:
		return wrapDelete(tx.Where("reply_id = ? AND name = ?", replyID, name).Delete(&models.StringReplyField{}).Error, name)
	case kindNumber:
		return wrapDelete(tx.Where("reply_id = ? AND name = ?", replyID, name).Delete(&models.NumberReplyField{}).Error, name)
	case kindBoolean:
		return wrapDelete(tx.Where("reply_id = ? AND name = ?", replyID, name).Delete(&models.BooleanReplyField{}).Error, name)
	case kindList:
		var field models.ListReplyField
		err := tx.Where("reply_id = ? AND name = ?", replyID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("deleting field %q: %w", name, err)
		}
		if err := tx.Where("field_id = ?", field.ID).Delete(&models.ListReplyFieldItem{}).Error; err != nil {
			return fmt.Errorf("deleting field %q: %w", name, err)
		}
		return wrapDelete(tx.Delete(&field).Error, name)
	case kindTable:
		var field models.TableReplyField
		err := tx.Where("reply_id = ? AND name = ?", replyID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("deleting field %q: %w", name, err)
		}
		if err := deleteTableChildren(tx, field.ID); err != nil {
			return err
		}
		return wrapDelete(tx.Delete(&field).Error, name)
	case kindAttachment:
		var field models.AttachmentReplyField
		err := tx.Where("reply_id = ? AND name = ?", replyID, name).First(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("deleting field %q: %w", name, err)
		}
		if err := tx.Where("field_id = ?", field.ID).Delete(&models.AttachmentReplyFieldItem{}).Error; err != nil {
			return fmt.Errorf("deleting field %q: %w", name, err)
		}
		return wrapDelete(tx.Delete(&field).Error, name)
	}
	return nil
}

// deleteTableChildren removes all rows and cells of a table field.
func deleteTableChildren(tx *gorm.DB, fieldID uint) error {
	var rowIDs []uint
	if err := tx.Model(&models.TableReplyFieldRow{}).Where("field_id = ?", fieldID).Pluck("id", &rowIDs).Error; err != nil {
		return fmt.Errorf("collecting table rows: %w", err)
	}
	if len(rowIDs) > 0 {
		if err := tx.Where("row_id IN ?", rowIDs).Delete(&models.TableReplyFieldRowCell{}).Error; err != nil {
			return fmt.Errorf("deleting table cells: %w", err)
		}
	}
	if err := tx.Where("field_id = ?", fieldID).Delete(&models.TableReplyFieldRow{}).Error; err != nil {
		return fmt.Errorf("deleting table rows: %w", err)
	}
	return nil
}

func wrapDelete(err error, name string) error {
	if err != nil {
		return fmt.Errorf("deleting field %q: %w", name, err)
	}
	return nil
}
