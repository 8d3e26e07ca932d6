// Package cache persists the engine state between sessions as four
// independent snapshot units.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/refs"
)

var (
	// ErrUnitMissing is returned by a Backend when a unit was never saved.
	ErrUnitMissing = errors.New("cache: unit missing")
	// ErrCorrupt marks a unit that exists but cannot be decoded.
	ErrCorrupt = errors.New("cache: unit corrupt")
)

// Unit names one snapshot unit.
type Unit string

const (
	UnitRecords     Unit = "records"
	UnitReferences  Unit = "references"
	UnitJournal     Unit = "journal"
	UnitSuggestions Unit = "suggestions"
)

// Units lists every unit in save order.
func Units() []Unit {
	return []Unit{UnitRecords, UnitReferences, UnitJournal, UnitSuggestions}
}

// Backend stores opaque unit payloads.
type Backend interface {
	Save(ctx context.Context, unit Unit, payload []byte) error
	Load(ctx context.Context, unit Unit) ([]byte, error)
}

// State is everything the engine persists.
type State struct {
	Records     []catalog.Record
	References  []refs.Reference
	Pending     []string
	Suggestions map[string][]string
}

// LoadReport lists units that were missing or corrupt and therefore reset.
type LoadReport struct {
	Missing []Unit
	Corrupt []Unit
}

const envelopeVersion = 1

type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"saved_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache encodes State into units over a Backend.
type Cache struct {
	backend Backend
	logger  *zap.Logger
	clock   func() time.Time
}

func New(backend Backend, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, logger: logger, clock: time.Now}
}

// Save writes every unit. A failing unit does not stop the others; the
// returned error joins all failures.
func (c *Cache) Save(ctx context.Context, st State) error {
	payloads := map[Unit]any{
		UnitRecords:     nonNil(st.Records),
		UnitReferences:  nonNil(st.References),
		UnitJournal:     nonNil(st.Pending),
		UnitSuggestions: st.Suggestions,
	}
	var errs []error
	for _, unit := range Units() {
		data, err := c.encode(payloads[unit])
		if err == nil {
			err = c.backend.Save(ctx, unit, data)
		}
		if err != nil {
			c.logger.Error("snapshot unit not saved", zap.String("unit", string(unit)), zap.Error(err))
			errs = append(errs, fmt.Errorf("save %s: %w", unit, err))
		}
	}
	return errors.Join(errs...)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (c *Cache) encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(payload)
	return json.Marshal(envelope{
		Version:  envelopeVersion,
		Checksum: hex.EncodeToString(sum[:]),
		SavedAt:  c.clock().UTC(),
		Payload:  payload,
	})
}

func decode(data []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != envelopeVersion {
		return fmt.Errorf("%w: version %d", ErrCorrupt, env.Version)
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

// Load restores State. It never fails: a missing or corrupt unit comes back
// empty and is listed in the report, leaving the other units intact.
func (c *Cache) Load(ctx context.Context) (State, LoadReport) {
	var st State
	var report LoadReport
	targets := map[Unit]any{
		UnitRecords:     &st.Records,
		UnitReferences:  &st.References,
		UnitJournal:     &st.Pending,
		UnitSuggestions: &st.Suggestions,
	}
	for _, unit := range Units() {
		data, err := c.backend.Load(ctx, unit)
		if err == nil {
			err = decode(data, targets[unit])
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrUnitMissing):
			c.logger.Info("snapshot unit missing, starting empty", zap.String("unit", string(unit)))
			report.Missing = append(report.Missing, unit)
		default:
			c.logger.Warn("snapshot unit unreadable, starting empty", zap.String("unit", string(unit)), zap.Error(err))
			report.Corrupt = append(report.Corrupt, unit)
		}
		resetUnit(&st, unit)
	}
	return st, report
}

func resetUnit(st *State, unit Unit) {
	switch unit {
	case UnitRecords:
		st.Records = nil
	case UnitReferences:
		st.References = nil
	case UnitJournal:
		st.Pending = nil
	case UnitSuggestions:
		st.Suggestions = nil
	}
}
