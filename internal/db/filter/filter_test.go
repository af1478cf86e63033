package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaformlabs/metaform-server/internal/schema"
)

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
					{Name: "heading", Type: schema.FieldTypeHTML},
					{Name: "created", Type: schema.FieldTypeDateTime, Contexts: []string{schema.MetaContext}},
				},
			},
		},
	}
}

func TestParse_Equals(t *testing.T) {
	set := Parse(testMetaform(), "status:approved")

	require.Equal(t, 1, set.Len())
	atom := set.Atoms()[0]
	assert.Equal(t, "status", atom.Field)
	assert.Equal(t, OperatorEquals, atom.Operator)
	assert.Equal(t, "approved", atom.Value)
	assert.Equal(t, schema.StorageTypeString, atom.Category)
	assert.False(t, atom.IsNull())
}

func TestParse_NotEquals(t *testing.T) {
	set := Parse(testMetaform(), "score^0")

	require.Equal(t, 1, set.Len())
	atom := set.Atoms()[0]
	assert.Equal(t, "score", atom.Field)
	assert.Equal(t, OperatorNotEquals, atom.Operator)
	assert.Equal(t, float64(0), atom.Value)
	assert.Equal(t, schema.StorageTypeNumber, atom.Category)
}

func TestParse_NumberLiteral(t *testing.T) {
	set := Parse(testMetaform(), "score:42")

	require.Equal(t, 1, set.Len())
	atom := set.Atoms()[0]
	assert.Equal(t, 42.0, atom.Value)
	assert.Equal(t, schema.StorageTypeNumber, atom.Category)
}

func TestParse_UnparseableNumber(t *testing.T) {
	set := Parse(testMetaform(), "score:abc")

	// The atom survives but can never match.
	require.Equal(t, 1, set.Len())
	atom := set.Atoms()[0]
	assert.True(t, atom.IsNull())
	assert.Nil(t, atom.Value)
}

func TestParse_BooleanTriState(t *testing.T) {
	set := Parse(testMetaform(), "approved:true")
	require.Equal(t, 1, set.Len())
	assert.Equal(t, true, set.Atoms()[0].Value)

	set = Parse(testMetaform(), "approved:false")
	require.Equal(t, 1, set.Len())
	assert.Equal(t, false, set.Atoms()[0].Value)

	set = Parse(testMetaform(), "approved:maybe")
	require.Equal(t, 1, set.Len())
	assert.True(t, set.Atoms()[0].IsNull())
}

func TestParse_ListField(t *testing.T) {
	set := Parse(testMetaform(), "tags:urgent")

	require.Equal(t, 1, set.Len())
	atom := set.Atoms()[0]
	assert.Equal(t, schema.StorageTypeList, atom.Category)
	assert.Equal(t, "urgent", atom.Value)
}

func TestParse_MetaField(t *testing.T) {
	// Meta fields filter through their declared type.
	set := Parse(testMetaform(), "created:2024-05-12T09")

	require.Equal(t, 1, set.Len())
	assert.Equal(t, schema.StorageTypeString, set.Atoms()[0].Category)
}

func TestParse_MalformedAtomsDropped(t *testing.T) {
	// No operator.
	assert.Equal(t, 0, Parse(testMetaform(), "bogus").Len())
	// Too many tokens.
	assert.Equal(t, 0, Parse(testMetaform(), "status:a:b").Len())
	// Operator without value.
	assert.Equal(t, 0, Parse(testMetaform(), "status:").Len())
	// Empty query.
	assert.Equal(t, 0, Parse(testMetaform(), "").Len())
}

func TestParse_NoneCategoryDropped(t *testing.T) {
	// Presentational fields can never match anything.
	assert.Equal(t, 0, Parse(testMetaform(), "heading:welcome").Len())
	// Undeclared fields resolve to no storage category.
	assert.Equal(t, 0, Parse(testMetaform(), "missing:x").Len())
}

func TestParse_MultipleAtoms(t *testing.T) {
	set := Parse(testMetaform(), "status:approved,score^0,bogus,heading:x")

	require.Equal(t, 2, set.Len())
	atoms := set.Atoms()
	assert.Equal(t, "status", atoms[0].Field)
	assert.Equal(t, "score", atoms[1].Field)
}

func TestParse_Idempotent(t *testing.T) {
	query := "status:approved,score:42,approved:true,tags:urgent"
	first := Parse(testMetaform(), query)
	second := Parse(testMetaform(), query)

	assert.Equal(t, first.Atoms(), second.Atoms())
}

func TestSet_ByCategory(t *testing.T) {
	set := Parse(testMetaform(), "status:approved,score:42,approved:true,tags:urgent")
	require.Equal(t, 4, set.Len())

	strings := set.ByCategory(schema.StorageTypeString)
	require.Len(t, strings, 1)
	assert.Equal(t, "status", strings[0].Field)

	numbers := set.ByCategory(schema.StorageTypeNumber)
	require.Len(t, numbers, 1)
	assert.Equal(t, "score", numbers[0].Field)

	booleans := set.ByCategory(schema.StorageTypeBoolean)
	require.Len(t, booleans, 1)

	lists := set.ByCategory(schema.StorageTypeList)
	require.Len(t, lists, 1)

	assert.Empty(t, set.ByCategory(schema.StorageTypeNone))
}

func TestSet_AtomsIsCopy(t *testing.T) {
	set := Parse(testMetaform(), "status:approved")
	atoms := set.Atoms()
	atoms[0].Field = "mutated"

	assert.Equal(t, "status", set.Atoms()[0].Field)
}

func TestOperator_String(t *testing.T) {
	assert.Equal(t, ":", OperatorEquals.String())
	assert.Equal(t, "^", OperatorNotEquals.String())
}
