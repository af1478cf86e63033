package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/metaformlabs/metaform-server/internal/db/models"
	"github.com/metaformlabs/metaform-server/internal/schema"
)

// newTestDB creates an in-memory SQLite DB with all reply tables migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestReply(t *testing.T, db *gorm.DB) *models.Reply {
	t.Helper()
	reply, err := NewReplyStore(db, nil).Create("inspection", "user-1")
	require.NoError(t, err)
	return reply
}

func testMetaform() *schema.Metaform {
	return &schema.Metaform{
		ID: "inspection",
		Sections: []schema.Section{
			{
				Fields: []schema.Field{
					{Name: "status", Type: schema.FieldTypeSelect},
					{Name: "score", Type: schema.FieldTypeNumber},
					{Name: "approved", Type: schema.FieldTypeBoolean},
					{Name: "tags", Type: schema.FieldTypeChecklist},
					{Name: "measurements", Type: schema.FieldTypeTable},
					{Name: "photos", Type: schema.FieldTypeFiles},
					{Name: "created", Type: schema.FieldTypeDateTime, Contexts: []string{schema.MetaContext}},
					{Name: "lastEditor", Type: schema.FieldTypeText, Contexts: []string{schema.MetaContext}},
				},
			},
		},
	}
}

// variantRowCount counts variant rows for a (reply, name) pair across every
// variant table.
func variantRowCount(t *testing.T, db *gorm.DB, replyID, name string) int {
	t.Helper()
	total := int64(0)
	for _, model := range []any{
		&models.StringReplyField{},
		&models.NumberReplyField{},
		&models.BooleanReplyField{},
		&models.ListReplyField{},
		&models.TableReplyField{},
		&models.AttachmentReplyField{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Where("reply_id = ? AND name = ?", replyID, name).Count(&count).Error)
		total += count
	}
	return int(total)
}

func TestFieldStore_ScalarRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	metaform := testMetaform()
	reply := newTestReply(t, db)

	result, err := store.SetValue(reply, "status", "approved")
	require.NoError(t, err)
	assert.Equal(t, SetResultAccepted, result)

	result, err = store.SetValue(reply, "score", 42)
	require.NoError(t, err)
	assert.Equal(t, SetResultAccepted, result)

	result, err = store.SetValue(reply, "approved", true)
	require.NoError(t, err)
	assert.Equal(t, SetResultAccepted, result)

	value, err := store.GetValue(metaform, reply, "status")
	require.NoError(t, err)
	assert.Equal(t, StringValue("approved"), value)

	value, err = store.GetValue(metaform, reply, "score")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(42.0), value)

	value, err = store.GetValue(metaform, reply, "approved")
	require.NoError(t, err)
	assert.Equal(t, BooleanValue(true), value)
}

func TestFieldStore_GetValue_Absent(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	value, err := store.GetValue(testMetaform(), reply, "status")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestFieldStore_SetValue_UpdateInPlace(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	_, err := store.SetValue(reply, "status", "draft")
	require.NoError(t, err)
	_, err = store.SetValue(reply, "status", "approved")
	require.NoError(t, err)

	value, err := store.GetValue(testMetaform(), reply, "status")
	require.NoError(t, err)
	assert.Equal(t, StringValue("approved"), value)
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "status"))
}

func TestFieldStore_SetValue_CrossTypeOverwrite(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	metaform := testMetaform()
	reply := newTestReply(t, db)

	_, err := store.SetValue(reply, "score", "pending")
	require.NoError(t, err)
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "score"))

	// Overwriting with a different runtime type must leave exactly one row.
	_, err = store.SetValue(reply, "score", 7.5)
	require.NoError(t, err)
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "score"))

	value, err := store.GetValue(metaform, reply, "score")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(7.5), value)

	_, err = store.SetValue(reply, "score", true)
	require.NoError(t, err)
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "score"))

	value, err = store.GetValue(metaform, reply, "score")
	require.NoError(t, err)
	assert.Equal(t, BooleanValue(true), value)
}

func TestFieldStore_SetValue_ListOverwrittenByScalar(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	require.NoError(t, store.SetListValue(reply, "tags", []string{"a", "b"}))
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "tags"))

	_, err := store.SetValue(reply, "tags", "scalar-now")
	require.NoError(t, err)
	assert.Equal(t, 1, variantRowCount(t, db, reply.ID, "tags"))

	// List items must not be orphaned.
	var itemCount int64
	require.NoError(t, db.Model(&models.ListReplyFieldItem{}).Count(&itemCount).Error)
	assert.Zero(t, itemCount)
}

func TestFieldStore_SetValue_SchemaMismatchIsByRuntimeType(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	// "score" is declared as a number field, but the store dispatches on the
	// value's runtime type: a string lands in the string table.
	result, err := store.SetValue(reply, "score", "not-a-number-string")
	require.NoError(t, err)
	assert.Equal(t, SetResultAccepted, result)

	value, err := store.GetValue(testMetaform(), reply, "score")
	require.NoError(t, err)
	assert.Equal(t, StringValue("not-a-number-string"), value)
}

func TestFieldStore_SetValue_UnsupportedType(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	result, err := store.SetValue(reply, "status", map[string]any{"nested": true})
	require.NoError(t, err)
	assert.Equal(t, SetResultUnsupportedType, result)
	assert.Equal(t, 0, variantRowCount(t, db, reply.ID, "status"))

	// A rejected write leaves an existing value untouched.
	_, err = store.SetValue(reply, "status", "kept")
	require.NoError(t, err)
	result, err = store.SetValue(reply, "status", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, SetResultUnsupportedType, result)

	value, err := store.GetValue(testMetaform(), reply, "status")
	require.NoError(t, err)
	assert.Equal(t, StringValue("kept"), value)
}

func TestFieldStore_SetValue_NumericKinds(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	for _, value := range []any{int(3), int32(3), int64(3), float32(3), float64(3), uint(3)} {
		result, err := store.SetValue(reply, "score", value)
		require.NoError(t, err)
		require.Equal(t, SetResultAccepted, result)

		got, err := store.GetValue(testMetaform(), reply, "score")
		require.NoError(t, err)
		require.Equal(t, NumberValue(3.0), got)
	}
}

func TestFieldStore_ListRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	require.NoError(t, store.SetListValue(reply, "tags", []string{"urgent", "site-a", "urgent", "open"}))

	value, err := store.GetValue(testMetaform(), reply, "tags")
	require.NoError(t, err)
	// Duplicates collapse, first occurrence order preserved.
	assert.Equal(t, ListValue{"urgent", "site-a", "open"}, value)

	// Replacing the items replaces, not appends.
	require.NoError(t, store.SetListValue(reply, "tags", []string{"closed"}))
	value, err = store.GetValue(testMetaform(), reply, "tags")
	require.NoError(t, err)
	assert.Equal(t, ListValue{"closed"}, value)
}

func TestFieldStore_TableRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	rows := []TableRow{
		{"point": StringCell("north wall"), "reading": NumberCell(12.5)},
		{"point": StringCell("south wall"), "reading": NumberCell(9.75)},
	}
	require.NoError(t, store.SetTableValue(reply, "measurements", rows))

	value, err := store.GetValue(testMetaform(), reply, "measurements")
	require.NoError(t, err)
	table, ok := value.(TableValue)
	require.True(t, ok)
	require.Len(t, table, 2)
	assert.Equal(t, StringCell("north wall"), table[0]["point"])
	assert.Equal(t, NumberCell(12.5), table[0]["reading"])
	assert.Equal(t, StringCell("south wall"), table[1]["point"])
	assert.Equal(t, NumberCell(9.75), table[1]["reading"])
}

func TestFieldStore_AttachmentRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	for _, id := range []string{"att-1", "att-2"} {
		require.NoError(t, db.Create(&models.Attachment{ID: id, Name: id + ".jpg", ContentType: "image/jpeg"}).Error)
	}

	require.NoError(t, store.SetAttachments(reply, "photos", []string{"att-1", "att-2", "att-1"}))

	value, err := store.GetValue(testMetaform(), reply, "photos")
	require.NoError(t, err)
	assert.Equal(t, AttachmentValue{"att-1", "att-2"}, value)
}

func TestFieldStore_MetaFields(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	metaform := testMetaform()
	reply := newTestReply(t, db)

	value, err := store.GetValue(metaform, reply, "lastEditor")
	require.NoError(t, err)
	assert.Equal(t, StringValue("user-1"), value)

	value, err = store.GetValue(metaform, reply, "created")
	require.NoError(t, err)
	require.NotNil(t, value)
	created, ok := value.(StringValue)
	require.True(t, ok)
	assert.NotEmpty(t, created)
}

func TestFieldStore_DeleteFields(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	_, err := store.SetValue(reply, "status", "approved")
	require.NoError(t, err)
	require.NoError(t, store.SetListValue(reply, "tags", []string{"a"}))

	// Deleting existing and non-existing names together is fine; missing
	// names are silently skipped.
	require.NoError(t, store.DeleteFields(reply, []string{"status", "tags", "never-written"}))

	assert.Equal(t, 0, variantRowCount(t, db, reply.ID, "status"))
	assert.Equal(t, 0, variantRowCount(t, db, reply.ID, "tags"))

	// Idempotent.
	require.NoError(t, store.DeleteFields(reply, []string{"status"}))
}

func TestFieldStore_DeleteReply_Cascade(t *testing.T) {
	db := newTestDB(t)
	store := NewFieldStore(db, nil)
	reply := newTestReply(t, db)

	_, err := store.SetValue(reply, "status", "approved")
	require.NoError(t, err)
	require.NoError(t, store.SetListValue(reply, "tags", []string{"a", "b", "c"}))
	require.NoError(t, store.SetTableValue(reply, "measurements", []TableRow{
		{"point": StringCell("north"), "reading": NumberCell(1)},
		{"point": StringCell("south"), "reading": NumberCell(2)},
	}))
	require.NoError(t, store.SetAttachments(reply, "photos", []string{"att-1", "att-2"}))

	// An unrelated reply must survive the cascade.
	other := newTestReply(t, db)
	_, err = store.SetValue(other, "status", "draft")
	require.NoError(t, err)

	require.NoError(t, store.DeleteReply(reply))

	for _, model := range []any{
		&models.StringReplyField{},
		&models.ListReplyField{},
		&models.ListReplyFieldItem{},
		&models.TableReplyField{},
		&models.TableReplyFieldRow{},
		&models.TableReplyFieldRowCell{},
		&models.AttachmentReplyField{},
		&models.AttachmentReplyFieldItem{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		if _, isString := model.(*models.StringReplyField); isString {
			assert.Equal(t, int64(1), count, "other reply's field must survive")
		} else {
			assert.Zero(t, count, "%T rows must be cascade-deleted", model)
		}
	}

	var replyCount int64
	require.NoError(t, db.Model(&models.Reply{}).Count(&replyCount).Error)
	assert.Equal(t, int64(1), replyCount)
}
