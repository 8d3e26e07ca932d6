package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRows         = errors.New("engine: no rows selected")
	ErrClipboardEmpty = errors.New("engine: nothing copied")
	ErrEntryNotFound  = errors.New("engine: no catalog entry for file")

	errMissingCodec = errors.New("codec is required")
	errMissingCache = errors.New("cache is required")
)

// ServiceError carries a stable code of the form operation.reason.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opNew            = "engine.new"
	opImportAsset    = "engine.import_asset"
	opImportDir      = "engine.import_dir"
	opEditField      = "engine.edit_field"
	opDeleteRows     = "engine.delete_rows"
	opClear          = "engine.clear"
	opCommitPending  = "engine.commit_pending"
	opDiscard        = "engine.discard"
	opSnapshot       = "engine.snapshot"
	opCopy           = "engine.copy"
	opPaste          = "engine.paste"
	opApplyToFolder  = "engine.apply_to_folder"
	opConvertCharset = "engine.convert_charset"
	opSyncReferences = "engine.sync_references"
	opSuggestions    = "engine.suggestions"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// DuplicateError is returned when an imported file is already cataloged.
type DuplicateError struct {
	Path     string
	Existing string
	Row      int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("engine: %s already cataloged as %s", e.Path, e.Existing)
}

// PendingWritesError is returned when rows selected for deletion have edits
// that were not written back. Repeat with force to discard them.
type PendingWritesError struct {
	Filenames []string
}

func (e *PendingWritesError) Error() string {
	return fmt.Sprintf("engine: unsaved edits for %s", strings.Join(e.Filenames, ", "))
}
