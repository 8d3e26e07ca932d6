package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/cebimar/veliger/internal/catalog"
)

func TestObserveAppends(t *testing.T) {
	store := catalog.NewStore()
	l := New(language.Portuguese)
	store.Subscribe(l.Observe)

	store.Insert(catalog.Record{Path: "/a.jpg", Tags: "larva, plankton", City: "Santos"})
	_, err := store.SetField(0, catalog.FieldCity, "Ubatuba")
	assert.NoError(t, err)

	assert.Equal(t, []string{"larva", "plankton"}, l.Get(Tags))
	assert.Equal(t, []string{"Santos", "Ubatuba"}, l.Get(Cities))
	assert.Empty(t, l.Get(Countries))
}

func TestRebuildDedupesAndSorts(t *testing.T) {
	l := New(language.Portuguese)
	l.Add(Countries, "Chile")
	l.Add(Countries, "Brasil")
	l.Add(Countries, "Chile")
	l.Rebuild([]catalog.Record{{Country: "Áustria"}, {Country: "argentina"}, {Country: "Brasil"}})
	assert.Equal(t, []string{"argentina", "Áustria", "Brasil", "Chile"}, l.Get(Countries))
}

func TestComplete(t *testing.T) {
	l := New(language.Und)
	l.Add(Taxa, "Mollusca")
	l.Add(Taxa, "Bryozoa")
	l.Add(Taxa, "Molgula")
	assert.Equal(t, []string{"Mollusca", "Molgula"}, l.Complete(Taxa, "mol"))
	assert.Empty(t, l.Complete("unknown", ""))
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := New(language.Und)
	l.Add(Authors, "F. Müller")
	restored := FromSnapshot(language.Und, map[string][]string{Authors: {"F. Müller"}, "bogus": {"x"}})
	assert.Equal(t, l.Snapshot(), restored.Snapshot())
}

func TestListFor(t *testing.T) {
	name, ok := ListFor(catalog.FieldSublocation)
	assert.True(t, ok)
	assert.Equal(t, Places, name)
	_, ok = ListFor(catalog.FieldTitle)
	assert.False(t, ok)
}
