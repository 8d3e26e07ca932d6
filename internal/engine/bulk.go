package engine

import (
	"context"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/journal"
	"github.com/cebimar/veliger/internal/media"
	"github.com/cebimar/veliger/internal/metadata"
)

// Copy keeps the descriptive fields of row for a later Paste.
func (e *Engine) Copy(row int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.store.Record(row)
	if err != nil {
		return newServiceError(opCopy, "row_out_of_range", err)
	}
	e.clipboard = &rec
	return nil
}

// Paste applies the copied descriptive fields to every row.
func (e *Engine) Paste(ctx context.Context, rows []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clipboard == nil {
		return newServiceError(opPaste, "empty_clipboard", ErrClipboardEmpty)
	}
	if len(rows) == 0 {
		return newServiceError(opPaste, "no_rows", ErrNoRows)
	}
	for f := catalog.FieldTitle; f <= catalog.FieldDate; f++ {
		if _, err := e.store.SetFieldRows(rows, f, e.clipboard.Get(f)); err != nil {
			return newServiceError(opPaste, editReason(err), err)
		}
	}
	e.persist(ctx, opPaste)
	return nil
}

// FolderSummary reports an ApplyToFolder run.
type FolderSummary struct {
	Written []string `json:"written"`
	Failed  []string `json:"failed,omitempty"`
}

// rowOf returns the row cataloging exactly path, or -1.
func (e *Engine) rowOf(path string) int {
	rows := e.store.Find(catalog.FieldPath, func(p string) bool { return p == path })
	if len(rows) == 0 {
		return -1
	}
	return rows[0]
}

// ApplyToFolder writes the descriptive fields of row into every asset under
// root. Cataloged assets are written from their catalog entry with those
// fields replaced, so the entry and the file agree and are not left pending.
// If the source row or any cataloged asset under root has pending edits the
// run is refused with a PendingWritesError unless force is set.
func (e *Engine) ApplyToFolder(ctx context.Context, row int, root string, force bool) (FolderSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	src, err := e.store.Record(row)
	if err != nil {
		return FolderSummary{}, newServiceError(opApplyToFolder, "row_out_of_range", err)
	}

	lib := media.NewLibrary(root)
	if err := lib.IsWritable(); err != nil {
		return FolderSummary{}, newServiceError(opApplyToFolder, "not_writable", err)
	}
	var paths []string
	for path, walkErr := range lib.Discover() {
		if err := ctx.Err(); err != nil {
			return FolderSummary{}, newServiceError(opApplyToFolder, "canceled", err)
		}
		if walkErr != nil {
			e.logger.Warn("folder walk error", zap.String("root", root), zap.Error(walkErr))
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		paths = append(paths, path)
	}

	affected := []int{row}
	for _, path := range paths {
		if r := e.rowOf(path); r >= 0 {
			affected = append(affected, r)
		}
	}
	pending := e.pendingKeys(affected)
	if len(pending) > 0 && !force {
		return FolderSummary{}, newServiceError(opApplyToFolder, "pending_writes", &PendingWritesError{Filenames: pending})
	}

	var sum FolderSummary
	done := map[int]bool{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			e.settle(pending, done)
			return sum, newServiceError(opApplyToFolder, "canceled", err)
		}
		r := e.rowOf(path)
		var rec catalog.Record
		if r >= 0 {
			rec, _ = e.store.Record(r)
		} else if rec, err = e.codec.Read(path, metadata.ReadOptions{Charset: e.charset}); err != nil {
			sum.Failed = append(sum.Failed, path)
			e.logger.Warn("folder read failed", zap.String("path", path), zap.Error(err))
			continue
		}
		rec.CopyDescriptive(src)
		if _, err := e.codec.Write(rec); err != nil {
			sum.Failed = append(sum.Failed, path)
			e.logger.Warn("folder write failed", zap.String("path", path), zap.Error(err))
			continue
		}
		sum.Written = append(sum.Written, path)
		if r < 0 {
			continue
		}
		if err := e.store.Replace(r, rec); err != nil {
			e.logger.Warn("catalog update failed", zap.String("path", path), zap.Error(err))
			continue
		}
		done[r] = true
		if key := journal.Key(path); !slices.Contains(pending, key) {
			pending = append(pending, key)
		}
	}
	e.settle(pending, done)
	e.persist(ctx, opApplyToFolder)
	return sum, nil
}

// ConvertCharset re-reads each photo row's file treating IPTC text as
// Latin-1 and writes it back as UTF-8. The entry takes the values read from
// the file, so rows with pending edits are refused with a PendingWritesError
// unless force is set, which discards those edits.
func (e *Engine) ConvertCharset(ctx context.Context, rows []int, force bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(rows) == 0 {
		return 0, newServiceError(opConvertCharset, "no_rows", ErrNoRows)
	}
	var photos []int
	for _, row := range rows {
		cur, err := e.store.Record(row)
		if err != nil {
			return 0, newServiceError(opConvertCharset, "row_out_of_range", err)
		}
		if media.Classify(cur.Path) == media.KindPhoto && !slices.Contains(photos, row) {
			photos = append(photos, row)
		}
	}
	pending := e.pendingKeys(photos)
	if len(pending) > 0 && !force {
		return 0, newServiceError(opConvertCharset, "pending_writes", &PendingWritesError{Filenames: pending})
	}

	done := map[int]bool{}
	var keys []string
	defer func() {
		e.settle(keys, done)
		if len(done) > 0 {
			e.persist(ctx, opConvertCharset)
		}
	}()
	for _, row := range photos {
		cur, _ := e.store.Record(row)
		rec, err := e.codec.Read(cur.Path, metadata.ReadOptions{Charset: metadata.CharsetLatin1})
		if err != nil {
			return len(done), newServiceError(opConvertCharset, "read_failed", err)
		}
		rec.References = cur.References
		if _, err := e.codec.Write(rec); err != nil {
			return len(done), newServiceError(opConvertCharset, "write_failed", err)
		}
		if err := e.store.Replace(row, rec); err != nil {
			return len(done), newServiceError(opConvertCharset, editReason(err), err)
		}
		done[row] = true
		if key := journal.Key(cur.Path); !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return len(done), nil
}
