package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cebimar/veliger/internal/catalog"
)

func TestResolve(t *testing.T) {
	store := catalog.NewStore(
		catalog.Record{Path: "/trip1/sample_01.jpg"},
		catalog.Record{Path: "/trip2/Sample_01.JPG"},
		catalog.Record{Path: "/trip2/sample_02.jpg"},
	)
	r := NewResolver(nil)

	res, err := r.Resolve(store, "sample_03.jpg")
	require.NoError(t, err)
	assert.Equal(t, New, res.Outcome)

	res, err = r.Resolve(store, "SAMPLE_02.jpg")
	require.NoError(t, err)
	assert.Equal(t, Found, res.Outcome)
	assert.Equal(t, 2, res.Row)

	res, err = r.Resolve(store, "sample_01.jpg")
	var amb *AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, Ambiguous, res.Outcome)
	assert.Equal(t, []int{0, 1}, amb.Rows)
}

func TestResolveEmptyCandidate(t *testing.T) {
	store := catalog.NewStore(catalog.Record{Path: "/a.jpg"})
	res, err := NewResolver(nil).Resolve(store, "")
	require.NoError(t, err)
	assert.Equal(t, New, res.Outcome)
}

func TestResolveKeyPrefersExactBaseName(t *testing.T) {
	store := catalog.NewStore(
		catalog.Record{Path: "/lib/ba.jpg"},
		catalog.Record{Path: "/lib/A.jpg"},
		catalog.Record{Path: "/other/a.jpg"},
	)
	r := NewResolver(nil)

	res, err := r.ResolveKey(store, "ba.jpg")
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Found, Row: 0}, res)

	_, err = r.ResolveKey(store, "a.jpg")
	var amb *AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []int{0, 1, 2}, amb.Rows)

	store = catalog.NewStore(catalog.Record{Path: "/lib/ba.jpg"}, catalog.Record{Path: "/lib/a.jpg"})
	res, err = r.ResolveKey(store, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Found, Row: 1}, res)

	_, err = r.Resolve(store, "a.jpg")
	assert.ErrorAs(t, err, &amb)
}
