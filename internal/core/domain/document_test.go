package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_DotNotation(t *testing.T) {
	doc := Document{
		ID:         "a",
		Collection: "articles",
		Data: map[string]any{
			"title": "Go",
			"tags":  []any{"lang", "tools"},
			"meta":  map[string]any{"views": int64(3)},
		},
	}

	v, err := doc.DotNotation("meta.views")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = doc.DotNotation("tags.1")
	require.NoError(t, err)
	assert.Equal(t, "tools", v)

	v, err = doc.DotNotation("")
	require.NoError(t, err)
	assert.Equal(t, doc.Data, v)

	_, err = doc.DotNotation("meta.likes")
	assert.True(t, IsDotPathNotFound(err))
}

func TestDocument_SetValue(t *testing.T) {
	doc := Document{}
	require.NoError(t, doc.SetValue("status", "draft"))
	assert.Equal(t, "draft", doc.Data["status"])

	require.NoError(t, doc.SetValue("status", "published"))
	v, err := doc.DotNotation("status")
	require.NoError(t, err)
	assert.Equal(t, "published", v)

	err = doc.SetValue("missing.child", 1)
	assert.True(t, IsDotPathNotFound(err))
}

func TestDocument_Clone(t *testing.T) {
	doc := &Document{
		ID:         "a",
		Collection: "articles",
		Data: map[string]any{
			"meta": map[string]any{"tags": []any{"x"}},
		},
	}

	c := doc.Clone()
	c.Data["meta"].(map[string]any)["tags"].([]any)[0] = "y"
	c.Data["new"] = true

	assert.Equal(t, "x", doc.Data["meta"].(map[string]any)["tags"].([]any)[0])
	assert.NotContains(t, doc.Data, "new")
	assert.Equal(t, doc.ID, c.ID)
}

func TestDocument_Ref(t *testing.T) {
	doc := Document{ID: "42", Collection: "authors"}
	assert.Equal(t, Reference{Collection: "authors", ID: "42"}, doc.Ref())
	assert.Equal(t, "authors/42", doc.Ref().String())
}
