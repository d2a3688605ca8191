package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleSchema() *Schema {
	return &Schema{
		Collection: "articles",
		Fields: []*Field{
			{Name: "title", Type: FieldText},
			{Name: "views", Type: FieldInt},
			{Name: "rating", Type: FieldFloat},
			{Name: "published", Type: FieldBool},
			{Name: "author", Type: FieldReference},
			{Name: "extra", Type: FieldDict},
			{Name: "seo", Type: FieldSchema, Fields: []*Field{
				{Name: "slug", Type: FieldText},
			}},
			{Name: "sections", Type: FieldList, Item: &Field{
				Type: FieldSchema,
				Fields: []*Field{
					{Name: "heading", Type: FieldText},
					{Name: "tags", Type: FieldList, Item: &Field{Type: FieldText}},
				},
			}},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	require.NoError(t, articleSchema().Validate())

	assert.ErrorIs(t, (&Schema{}).Validate(), ErrInvalidInput)

	dup := &Schema{Collection: "c", Fields: []*Field{{Name: "a", Type: FieldText}, {Name: "a", Type: FieldInt}}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidInput)

	noItem := &Schema{Collection: "c", Fields: []*Field{{Name: "l", Type: FieldList}}}
	assert.ErrorIs(t, noItem.Validate(), ErrInvalidInput)

	unnamed := &Schema{Collection: "c", Fields: []*Field{{Type: FieldText}}}
	assert.ErrorIs(t, unnamed.Validate(), ErrInvalidInput)

	badType := &Schema{Collection: "c", Fields: []*Field{{Name: "a", Type: "decimal"}}}
	assert.ErrorIs(t, badType.Validate(), ErrUnsupportedType)
}

func TestSchema_FieldAt(t *testing.T) {
	s := articleSchema()

	tests := []struct {
		path string
		want FieldType
	}{
		{"title", FieldText},
		{"seo", FieldSchema},
		{"seo.slug", FieldText},
		{"sections", FieldList},
		{"sections.*", FieldSchema},
		{"sections.0.heading", FieldText},
		{"sections.*.tags.3", FieldText},
		{"extra", FieldDict},
		{"extra.anything.goes", FieldAny},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := s.FieldAt(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Type)
		})
	}
}

func TestSchema_FieldAt_NotFound(t *testing.T) {
	s := articleSchema()

	for _, path := range []string{"missing", "seo.missing", "sections.first.heading", "title.sub"} {
		t.Run(path, func(t *testing.T) {
			_, err := s.FieldAt(path)
			assert.True(t, IsDotPathNotFound(err))
		})
	}
}

func TestField_IndexKind(t *testing.T) {
	tests := []struct {
		typ  FieldType
		want ValueKind
		ok   bool
	}{
		{FieldText, KindString, true},
		{FieldInt, KindInt, true},
		{FieldFloat, KindFloat, true},
		{FieldBool, KindBool, true},
		{FieldReference, KindReference, true},
		{FieldList, KindNull, false},
		{FieldDict, KindNull, false},
		{FieldAny, KindNull, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			k, ok := (&Field{Type: tt.typ}).IndexKind()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, k)
		})
	}
}
