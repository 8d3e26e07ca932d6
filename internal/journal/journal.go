// Package journal tracks which assets have catalog edits that have not been
// written back to the files yet.
package journal

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/cebimar/veliger/internal/catalog"
)

// ErrDropped is returned by a commit write func for a name that has nothing
// left to write. The name leaves the journal without being counted.
var ErrDropped = errors.New("journal: entry dropped")

// CommitError reports the first asset whose write failed. Written counts the
// assets committed before it.
type CommitError struct {
	Filename string
	Written  int
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("journal: commit %s: %v", e.Filename, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Journal is the set of base filenames with pending edits.
type Journal struct {
	pending map[string]struct{}
}

func New(names ...string) *Journal {
	j := &Journal{pending: make(map[string]struct{}, len(names))}
	for _, n := range names {
		j.Mark(n)
	}
	return j
}

// Key is the journal key for an asset path.
func Key(path string) string {
	return filepath.Base(path)
}

// Mark adds name and reports whether it was newly added.
func (j *Journal) Mark(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := j.pending[name]; ok {
		return false
	}
	j.pending[name] = struct{}{}
	return true
}

// Observe is a catalog.Listener. Updates that change a value mark the asset.
func (j *Journal) Observe(ev catalog.Event) {
	if ev.Kind != catalog.EventUpdated || ev.Old == ev.New {
		return
	}
	j.Mark(Key(ev.Record.Path))
}

func (j *Journal) IsPending(name string) bool {
	_, ok := j.pending[name]
	return ok
}

// Discard drops name without writing it.
func (j *Journal) Discard(name string) bool {
	if _, ok := j.pending[name]; !ok {
		return false
	}
	delete(j.pending, name)
	return true
}

func (j *Journal) Clear() { clear(j.pending) }

func (j *Journal) Len() int { return len(j.pending) }

// Pending returns the pending names in commit order.
func (j *Journal) Pending() []string {
	out := make([]string, 0, len(j.pending))
	for n := range j.pending {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Commit calls write for each pending name in commit order and stops at the
// first failure. Names written successfully or dropped leave the journal;
// the failed name and those after it stay pending.
func (j *Journal) Commit(write func(name string) error) (int, error) {
	written := 0
	for _, name := range j.Pending() {
		err := write(name)
		if errors.Is(err, ErrDropped) {
			delete(j.pending, name)
			continue
		}
		if err != nil {
			return written, &CommitError{Filename: name, Written: written, Err: err}
		}
		delete(j.pending, name)
		written++
	}
	return written, nil
}
