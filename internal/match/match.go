// Package match resolves a file name to the catalog rows that refer to it.
package match

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/cebimar/veliger/internal/catalog"
)

// Outcome of a lookup.
type Outcome int

const (
	New Outcome = iota
	Found
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case New:
		return "new"
	case Found:
		return "found"
	default:
		return "ambiguous"
	}
}

// AmbiguousMatchError is returned when more than one row matches. The caller
// must not pick one of them.
type AmbiguousMatchError struct {
	Candidate string
	Rows      []int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("match: %q matches %d entries", e.Candidate, len(e.Rows))
}

// Result of resolving one candidate.
type Result struct {
	Outcome Outcome
	Row     int
}

// Resolver performs case-insensitive substring matching of candidates
// against the path column.
type Resolver struct {
	logger *zap.Logger
	fold   cases.Caser
}

func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, fold: cases.Fold()}
}

// Rows returns every row whose path contains candidate.
func (r *Resolver) Rows(store *catalog.Store, candidate string) []int {
	needle := r.fold.String(candidate)
	if needle == "" {
		return nil
	}
	return store.Find(catalog.FieldPath, func(path string) bool {
		return strings.Contains(r.fold.String(path), needle)
	})
}

// Resolve classifies candidate. More than one match yields an
// *AmbiguousMatchError, which is also logged.
func (r *Resolver) Resolve(store *catalog.Store, candidate string) (Result, error) {
	return r.classify(candidate, r.Rows(store, candidate))
}

// ResolveKey classifies a journal key, which is the base name of a cataloged
// path. When several paths contain key, a single row whose base name equals
// key is the match.
func (r *Resolver) ResolveKey(store *catalog.Store, key string) (Result, error) {
	rows := r.Rows(store, key)
	if len(rows) > 1 {
		needle := r.fold.String(key)
		var exact []int
		for _, row := range rows {
			rec, err := store.Record(row)
			if err == nil && r.fold.String(filepath.Base(rec.Path)) == needle {
				exact = append(exact, row)
			}
		}
		if len(exact) == 1 {
			return Result{Outcome: Found, Row: exact[0]}, nil
		}
	}
	return r.classify(key, rows)
}

func (r *Resolver) classify(candidate string, rows []int) (Result, error) {
	switch len(rows) {
	case 0:
		return Result{Outcome: New, Row: -1}, nil
	case 1:
		return Result{Outcome: Found, Row: rows[0]}, nil
	}
	r.logger.Warn("ambiguous match", zap.String("candidate", candidate), zap.Ints("rows", rows))
	return Result{Outcome: Ambiguous, Row: -1}, &AmbiguousMatchError{Candidate: candidate, Rows: rows}
}
