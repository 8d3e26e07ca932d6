package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/refs"
	"github.com/cebimar/veliger/internal/suggest"
)

// RebuildSuggestions merges every catalog value into the suggestion lists
// and re-sorts them.
func (e *Engine) RebuildSuggestions(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suggestions.Rebuild(e.store.Records())
	e.persist(ctx, opSuggestions)
}

// Suggestions returns one list, or an error for an unknown list name.
func (e *Engine) Suggestions(list string) ([]string, error) {
	if !knownList(list) {
		return nil, newServiceError(opSuggestions, "unknown_list", fmt.Errorf("engine: unknown list %q", list))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestions.Get(list), nil
}

// Complete returns the entries of list that start with prefix.
func (e *Engine) Complete(list, prefix string) ([]string, error) {
	if !knownList(list) {
		return nil, newServiceError(opSuggestions, "unknown_list", fmt.Errorf("engine: unknown list %q", list))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestions.Complete(list, prefix), nil
}

func knownList(name string) bool {
	for _, n := range suggest.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// SyncReferences replaces the reference table with the contents of src.
func (e *Engine) SyncReferences(ctx context.Context, src refs.Source) (int, error) {
	list, err := src.References(ctx)
	if err != nil {
		return 0, newServiceError(opSyncReferences, "source_failed", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refs.Replace(list)
	e.logger.Info("references synced", zap.Int("references", e.refs.Len()))
	e.persist(ctx, opSyncReferences)
	return e.refs.Len(), nil
}

func (e *Engine) References() []refs.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refs.All()
}

// MissingReference is an entry citing ids absent from the reference table.
type MissingReference struct {
	Row  int      `json:"row"`
	Path string   `json:"path"`
	IDs  []string `json:"ids"`
}

// MissingReferences lists every entry whose references field names an id
// the table does not hold.
func (e *Engine) MissingReferences() []MissingReference {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []MissingReference
	for i, r := range e.store.Records() {
		if ids := e.refs.Missing(r.References); len(ids) > 0 {
			out = append(out, MissingReference{Row: i, Path: r.Path, IDs: ids})
		}
	}
	return out
}
