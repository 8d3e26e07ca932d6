package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/geo"
	"github.com/cebimar/veliger/internal/journal"
	"github.com/cebimar/veliger/internal/match"
	"github.com/cebimar/veliger/internal/media"
	"github.com/cebimar/veliger/internal/metadata"
	"github.com/cebimar/veliger/internal/metrics"
)

// ImportAsset catalogs the file at path. A file whose name already matches
// exactly one entry is a duplicate; a name matching several entries is
// ambiguous and nothing is imported.
func (e *Engine) ImportAsset(ctx context.Context, path string) (catalog.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.importLocked(path)
	if err != nil {
		return catalog.Record{}, err
	}
	e.persist(ctx, opImportAsset)
	return rec, nil
}

func (e *Engine) importLocked(path string) (catalog.Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		e.metrics.Import(metrics.ImportFailed)
		return catalog.Record{}, newServiceError(opImportAsset, "invalid_path", err)
	}
	if media.Classify(abs) == media.KindUnsupported {
		e.metrics.Import(metrics.ImportUnsupported)
		return catalog.Record{}, newServiceError(opImportAsset, "unsupported", fmt.Errorf("%w: %s", media.ErrUnsupported, abs))
	}

	res, err := e.resolver.Resolve(e.store, filepath.Base(abs))
	if err != nil {
		e.metrics.Import(metrics.ImportAmbiguous)
		return catalog.Record{}, newServiceError(opImportAsset, "ambiguous", err)
	}
	if res.Outcome == match.Found {
		existing, _ := e.store.Record(res.Row)
		e.metrics.Import(metrics.ImportDuplicate)
		return catalog.Record{}, newServiceError(opImportAsset, "duplicate",
			&DuplicateError{Path: abs, Existing: existing.Path, Row: res.Row})
	}

	rec, err := e.codec.Read(abs, metadata.ReadOptions{Charset: e.charset})
	if err != nil {
		e.metrics.Import(metrics.ImportFailed)
		return catalog.Record{}, newServiceError(opImportAsset, "read_failed", err)
	}
	inserted := e.store.Insert(rec)
	e.metrics.Import(metrics.ImportNew)
	e.logger.Info("asset imported", zap.String("path", abs))
	return inserted, nil
}

// ImportSummary counts the outcome of a directory import.
type ImportSummary struct {
	New         int      `json:"new"`
	Duplicate   int      `json:"duplicate"`
	Ambiguous   int      `json:"ambiguous"`
	Unsupported int      `json:"unsupported"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
}

// ImportDir imports every asset under root and snapshots once at the end.
func (e *Engine) ImportDir(ctx context.Context, root string) (ImportSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum ImportSummary
	defer func() {
		if sum.New > 0 {
			e.persist(ctx, opImportDir)
		}
	}()
	lib := media.NewLibrary(root)
	for path, walkErr := range lib.Discover() {
		if err := ctx.Err(); err != nil {
			return sum, newServiceError(opImportDir, "canceled", err)
		}
		if walkErr != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, walkErr.Error())
			e.logger.Warn("import walk error", zap.String("root", lib.Root()), zap.Error(walkErr))
			continue
		}
		_, err := e.importLocked(path)
		var dup *DuplicateError
		var amb *match.AmbiguousMatchError
		switch {
		case err == nil:
			sum.New++
		case errors.As(err, &dup):
			sum.Duplicate++
		case errors.As(err, &amb):
			sum.Ambiguous++
			sum.Errors = append(sum.Errors, err.Error())
		case errors.Is(err, media.ErrUnsupported):
			sum.Unsupported++
		default:
			sum.Failed++
			sum.Errors = append(sum.Errors, err.Error())
		}
	}
	e.logger.Info("directory imported", zap.String("root", root),
		zap.Int("new", sum.New), zap.Int("duplicate", sum.Duplicate), zap.Int("failed", sum.Failed))
	return sum, nil
}

// EditField sets field to value on every row and returns the committed,
// normalized value. Coordinates must parse; the whole edit is rejected
// otherwise.
func (e *Engine) EditField(ctx context.Context, rows []int, field catalog.Field, value string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(rows) == 0 {
		return "", newServiceError(opEditField, "no_rows", ErrNoRows)
	}
	if _, err := e.store.SetFieldRows(rows, field, value); err != nil {
		return "", newServiceError(opEditField, editReason(err), err)
	}
	rec, _ := e.store.Record(rows[0])
	e.persist(ctx, opEditField)
	return rec.Get(field), nil
}

func editReason(err error) string {
	var pe *geo.ParseError
	switch {
	case errors.As(err, &pe):
		return "invalid_coordinate"
	case errors.Is(err, catalog.ErrImmutableField), errors.Is(err, catalog.ErrUnknownField):
		return "immutable_field"
	case errors.Is(err, catalog.ErrRowOutOfRange):
		return "row_out_of_range"
	}
	return "invalid_value"
}

// pendingKeys returns the journal keys of rows that have pending edits, in
// commit order.
func (e *Engine) pendingKeys(rows []int) []string {
	var keys []string
	for _, r := range rows {
		rec, err := e.store.Record(r)
		if err != nil {
			continue
		}
		key := journal.Key(rec.Path)
		if e.journal.IsPending(key) && !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// settle discards each key once every row still carrying it is in done.
// Rows that share a key with an untouched row keep it pending.
func (e *Engine) settle(keys []string, done map[int]bool) {
	for _, key := range keys {
		rows := e.store.Find(catalog.FieldPath, func(p string) bool { return journal.Key(p) == key })
		if slices.ContainsFunc(rows, func(r int) bool { return !done[r] }) {
			continue
		}
		if e.journal.Discard(key) {
			e.logger.Debug("pending edits settled", zap.String("file", key))
		}
	}
}

// DeleteRows removes rows from the catalog. Rows with pending edits are
// refused with a PendingWritesError unless force is set, in which case their
// pending edits are discarded.
func (e *Engine) DeleteRows(ctx context.Context, rows []int, force bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(rows) == 0 {
		return 0, newServiceError(opDeleteRows, "no_rows", ErrNoRows)
	}
	for _, r := range rows {
		if _, err := e.store.Record(r); err != nil {
			return 0, newServiceError(opDeleteRows, "row_out_of_range", err)
		}
	}
	pending := e.pendingKeys(rows)
	if len(pending) > 0 && !force {
		return 0, newServiceError(opDeleteRows, "pending_writes", &PendingWritesError{Filenames: pending})
	}
	removed, err := e.store.Remove(rows)
	if err != nil {
		return 0, newServiceError(opDeleteRows, "remove_failed", err)
	}
	for _, key := range pending {
		e.logger.Warn("pending edits discarded", zap.String("file", key))
	}
	e.settle(pending, nil)
	e.persist(ctx, opDeleteRows)
	return len(removed), nil
}

// Clear empties the catalog under the same pending-edit guard as DeleteRows.
func (e *Engine) Clear(ctx context.Context, force bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.journal.Len(); n > 0 && !force {
		return 0, newServiceError(opClear, "pending_writes", &PendingWritesError{Filenames: e.journal.Pending()})
	}
	e.journal.Clear()
	n := e.store.Clear()
	e.persist(ctx, opClear)
	return n, nil
}

// CommitSummary reports a commit.
type CommitSummary struct {
	Written int                    `json:"written"`
	Lost    []string               `json:"lost,omitempty"`
	Results []metadata.WriteResult `json:"results"`
}

// CommitPending writes every pending asset in commit order and stops at the
// first failure, which is returned as a *journal.CommitError naming the file.
// Pending names with no catalog entry are dropped and reported as lost.
func (e *Engine) CommitPending(ctx context.Context) (CommitSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum CommitSummary
	n, err := e.journal.Commit(func(name string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := e.resolver.ResolveKey(e.store, name)
		if err != nil {
			return err
		}
		if res.Outcome == match.New {
			e.logger.Warn("pending file has no catalog entry, dropping", zap.String("file", name))
			sum.Lost = append(sum.Lost, name)
			return fmt.Errorf("%s: %w", name, journal.ErrDropped)
		}
		rec, err := e.store.Record(res.Row)
		if err != nil {
			return err
		}
		wr, err := e.codec.Write(rec)
		if err != nil {
			return err
		}
		sum.Results = append(sum.Results, wr)
		return nil
	})
	sum.Written = n
	e.metrics.Commit(sum.Written, err)
	e.persist(ctx, opCommitPending)
	if err != nil {
		var ce *journal.CommitError
		if errors.As(err, &ce) {
			e.logger.Error("commit stopped", zap.String("file", ce.Filename), zap.Int("written", sum.Written), zap.Error(ce.Err))
		}
		return sum, newServiceError(opCommitPending, "write_failed", err)
	}
	e.logger.Info("pending edits committed", zap.Int("written", sum.Written))
	return sum, nil
}
