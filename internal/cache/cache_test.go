package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/refs"
)

func sampleState() State {
	return State{
		Records: []catalog.Record{
			{Path: "/a/one.jpg", Title: "Larva", Tags: "larva, plankton"},
			{Path: "/a/two.mov", Caption: "Medusa."},
		},
		References:  []refs.Reference{{ID: "12", Authors: "Strathmann", Year: "1987"}},
		Pending:     []string{"one.jpg"},
		Suggestions: map[string][]string{"tags": {"larva", "plankton"}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(NewFileBackend(t.TempDir()), nil)
	require.NoError(t, c.Save(ctx, sampleState()))

	st, report := c.Load(ctx)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Corrupt)
	assert.Equal(t, sampleState(), st)
}

func TestLoadEmptyDirReportsMissing(t *testing.T) {
	st, report := New(NewFileBackend(t.TempDir()), nil).Load(context.Background())
	assert.Equal(t, Units(), report.Missing)
	assert.Empty(t, st.Records)
	assert.Empty(t, st.Pending)
}

func TestCorruptUnitResetsOnlyItself(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := NewFileBackend(dir)
	c := New(backend, nil)
	require.NoError(t, c.Save(ctx, sampleState()))

	require.NoError(t, os.WriteFile(backend.path(UnitJournal), []byte("{garbage"), 0o644))

	st, report := c.Load(ctx)
	assert.Equal(t, []Unit{UnitJournal}, report.Corrupt)
	assert.Empty(t, st.Pending)
	assert.Len(t, st.Records, 2)
	assert.Len(t, st.References, 1)
	assert.Equal(t, []string{"larva", "plankton"}, st.Suggestions["tags"])
}

func TestChecksumMismatchIsCorrupt(t *testing.T) {
	ctx := context.Background()
	backend := NewFileBackend(t.TempDir())
	c := New(backend, nil)
	require.NoError(t, c.Save(ctx, sampleState()))

	data, err := os.ReadFile(backend.path(UnitRecords))
	require.NoError(t, err)
	tampered := []byte(string(data))
	for i := range tampered {
		if tampered[i] == 'L' {
			tampered[i] = 'M'
			break
		}
	}
	require.NoError(t, os.WriteFile(backend.path(UnitRecords), tampered, 0o644))

	st, report := c.Load(ctx)
	assert.Equal(t, []Unit{UnitRecords}, report.Corrupt)
	assert.Empty(t, st.Records)
	assert.Equal(t, []string{"one.jpg"}, st.Pending)
}

type failingBackend struct {
	*FileBackend
	fail Unit
}

func (b failingBackend) Save(ctx context.Context, unit Unit, payload []byte) error {
	if unit == b.fail {
		return errors.New("disk full")
	}
	return b.FileBackend.Save(ctx, unit, payload)
}

func TestSaveContinuesPastFailingUnit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := New(failingBackend{FileBackend: NewFileBackend(dir), fail: UnitReferences}, nil)
	err := c.Save(ctx, sampleState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references")

	_, statErr := os.Stat(filepath.Join(dir, ".suggestionscache"))
	assert.NoError(t, statErr)
}

func TestEmptyStateEncodesEmptyLists(t *testing.T) {
	ctx := context.Background()
	c := New(NewFileBackend(t.TempDir()), nil)
	require.NoError(t, c.Save(ctx, State{}))
	st, report := c.Load(ctx)
	assert.Empty(t, report.Corrupt)
	assert.Empty(t, report.Missing)
	assert.NotNil(t, st.Records)
	assert.Empty(t, st.Records)
}
