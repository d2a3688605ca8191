package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusIndex() QueryIndex {
	return QueryIndex{
		Collection: "articles",
		Inclusions: []Filter{{Path: "status", Value: "published"}},
		Params:     []IndexParam{{Path: "status", Key: "status_idx"}},
	}
}

func TestQueryIndex_Validate(t *testing.T) {
	require.NoError(t, (&QueryIndex{
		Collection: "articles",
		Exclusions: []Filter{{Path: "meta.hidden", Value: true}},
		Params:     []IndexParam{{Path: "author.0.name", Key: "author", Kind: "string"}},
	}).Validate())

	tests := []struct {
		name string
		q    QueryIndex
	}{
		{"no collection", QueryIndex{Params: []IndexParam{{Path: "a", Key: "a"}}}},
		{"no params", QueryIndex{Collection: "c"}},
		{"empty key", QueryIndex{Collection: "c", Params: []IndexParam{{Path: "a"}}}},
		{"duplicate key", QueryIndex{Collection: "c", Params: []IndexParam{{Path: "a", Key: "k"}, {Path: "b", Key: "k"}}}},
		{"empty param path", QueryIndex{Collection: "c", Params: []IndexParam{{Key: "k"}}}},
		{"wildcard param path", QueryIndex{Collection: "c", Params: []IndexParam{{Path: "a.*.b", Key: "k"}}}},
		{"unknown kind", QueryIndex{Collection: "c", Params: []IndexParam{{Path: "a", Key: "k", Kind: "decimal"}}}},
		{"empty segment in filter", QueryIndex{
			Collection: "c",
			Inclusions: []Filter{{Path: "a..b", Value: 1}},
			Params:     []IndexParam{{Path: "a", Key: "k"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.q.Validate(), ErrInvalidInput)
		})
	}
}

func TestQueryIndex_Hash(t *testing.T) {
	a := statusIndex()
	b := statusIndex()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)

	b.Name = "named"
	assert.Equal(t, a.Hash(), b.Hash(), "name is not part of the hash")

	b.Inclusions[0].Value = "draft"
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := statusIndex()
	c.Params[0].Kind = "string"
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestQueryIndex_HashNormalizesFilterValues(t *testing.T) {
	a := QueryIndex{Collection: "c", Inclusions: []Filter{{Path: "n", Value: 3}}, Params: []IndexParam{{Path: "n", Key: "n"}}}
	b := QueryIndex{Collection: "c", Inclusions: []Filter{{Path: "n", Value: int64(3)}}, Params: []IndexParam{{Path: "n", Key: "n"}}}
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestQueryIndex_IndexName(t *testing.T) {
	q := statusIndex()
	assert.Equal(t, q.Hash(), q.IndexName())

	q.Name = "status"
	assert.Equal(t, "status", q.IndexName())
}

func TestQueryIndex_Param(t *testing.T) {
	q := statusIndex()

	p, ok := q.Param("status_idx")
	assert.True(t, ok)
	assert.Equal(t, "status", p.Path)

	_, ok = q.Param("other")
	assert.False(t, ok)
}

func TestIndexParam_DeclaredKind(t *testing.T) {
	k, ok := IndexParam{Kind: "float"}.DeclaredKind()
	assert.True(t, ok)
	assert.Equal(t, KindFloat, k)

	_, ok = IndexParam{}.DeclaredKind()
	assert.False(t, ok)

	_, ok = IndexParam{Kind: "nope"}.DeclaredKind()
	assert.False(t, ok)
}

func TestRegisterOutcome_String(t *testing.T) {
	assert.Equal(t, "created", RegisterCreated.String())
	assert.Equal(t, "changed", RegisterChanged.String())
	assert.Equal(t, "unchanged", RegisterUnchanged.String())
	assert.Equal(t, "unknown", RegisterOutcome(9).String())
}
