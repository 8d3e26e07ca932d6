package catalog

import (
	"fmt"
	"slices"
	"time"

	"github.com/cebimar/veliger/internal/geo"
)

// EventKind classifies a store mutation.
type EventKind int

const (
	EventInserted EventKind = iota + 1
	EventUpdated
	EventRemoved
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventInserted:
		return "inserted"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	}
	return "unknown"
}

// Event describes one mutation. Row is the index at the time of the
// mutation. For EventUpdated, Old and New hold the previous and committed
// values of Field; for inserts and removals Record holds the entry.
type Event struct {
	Kind   EventKind
	Row    int
	Field  Field
	Old    string
	New    string
	Record Record
}

// Listener receives store events synchronously, before the mutating call
// returns. Listeners must not mutate the store.
type Listener func(Event)

// Store is the ordered in-memory table of entry records. New entries go to
// the head. A Store is not safe for concurrent use.
type Store struct {
	rows      []Record
	listeners map[int]Listener
	nextID    int
}

func NewStore(records ...Record) *Store {
	s := &Store{listeners: map[int]Listener{}}
	s.rows = make([]Record, 0, len(records))
	for _, r := range records {
		s.rows = append(s.rows, r.Normalized())
	}
	return s
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() { delete(s.listeners, id) }
}

func (s *Store) emit(ev Event) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.listeners[id](ev)
	}
}

func (s *Store) Len() int { return len(s.rows) }

func (s *Store) checkRow(row int) error {
	if row < 0 || row >= len(s.rows) {
		return fmt.Errorf("%w: %d (have %d)", ErrRowOutOfRange, row, len(s.rows))
	}
	return nil
}

// Record returns a copy of the entry at row.
func (s *Store) Record(row int) (Record, error) {
	if err := s.checkRow(row); err != nil {
		return Record{}, err
	}
	return s.rows[row], nil
}

// Records returns a copy of every entry in table order.
func (s *Store) Records() []Record {
	return slices.Clone(s.rows)
}

// Column returns the values of f in table order.
func (s *Store) Column(f Field) []string {
	out := make([]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Get(f)
	}
	return out
}

// Find returns the rows whose value for f satisfies pred, in table order.
func (s *Store) Find(f Field, pred func(string) bool) []int {
	var rows []int
	for i, r := range s.rows {
		if pred(r.Get(f)) {
			rows = append(rows, i)
		}
	}
	return rows
}

// Insert normalizes r and places it at the head of the table.
func (s *Store) Insert(r Record) Record {
	r = r.Normalized()
	s.rows = slices.Insert(s.rows, 0, r)
	s.emit(Event{Kind: EventInserted, Row: 0, Record: r})
	return r
}

// Replace overwrites every editable field of the entry at row with the
// values of r, emitting one update per field.
func (s *Store) Replace(row int, r Record) error {
	if err := s.checkRow(row); err != nil {
		return err
	}
	for _, f := range Fields() {
		if !f.Editable() {
			continue
		}
		if err := validate(f, r.Get(f)); err != nil {
			return err
		}
	}
	for _, f := range Fields() {
		if !f.Editable() {
			continue
		}
		if _, err := s.setField(row, f, r.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

// SetField commits value to (row, f) after normalization and returns the
// previous value. An update event is emitted even when the value is
// unchanged.
func (s *Store) SetField(row int, f Field, value string) (string, error) {
	if err := s.checkRow(row); err != nil {
		return "", err
	}
	if err := validate(f, value); err != nil {
		return "", err
	}
	return s.setField(row, f, value)
}

// SetFieldRows applies one value to each of rows. Every row and the value are
// validated before any row changes.
func (s *Store) SetFieldRows(rows []int, f Field, value string) ([]string, error) {
	for _, row := range rows {
		if err := s.checkRow(row); err != nil {
			return nil, err
		}
	}
	if err := validate(f, value); err != nil {
		return nil, err
	}
	olds := make([]string, 0, len(rows))
	for _, row := range rows {
		old, err := s.setField(row, f, value)
		if err != nil {
			return olds, err
		}
		olds = append(olds, old)
	}
	return olds, nil
}

func (s *Store) setField(row int, f Field, value string) (string, error) {
	if err := validate(f, value); err != nil {
		return "", err
	}
	rec := &s.rows[row]
	p := rec.slot(f)
	old := *p
	committed := canonical(f, Normalize(f, value))
	*p = committed
	s.emit(Event{Kind: EventUpdated, Row: row, Field: f, Old: old, New: committed, Record: *rec})
	return old, nil
}

// Remove deletes the given rows, highest index first, and returns the removed
// entries in that order. Duplicate rows are ignored.
func (s *Store) Remove(rows []int) ([]Record, error) {
	uniq := slices.Clone(rows)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	for _, row := range uniq {
		if err := s.checkRow(row); err != nil {
			return nil, err
		}
	}
	removed := make([]Record, 0, len(uniq))
	for i := len(uniq) - 1; i >= 0; i-- {
		row := uniq[i]
		rec := s.rows[row]
		s.rows = slices.Delete(s.rows, row, row+1)
		removed = append(removed, rec)
		s.emit(Event{Kind: EventRemoved, Row: row, Record: rec})
	}
	return removed, nil
}

// Clear empties the table.
func (s *Store) Clear() int {
	n := len(s.rows)
	s.rows = s.rows[:0]
	s.emit(Event{Kind: EventCleared})
	return n
}

func validate(f Field, value string) error {
	if !f.Editable() {
		if f < 0 || f >= fieldCount {
			return fmt.Errorf("%w: %d", ErrUnknownField, int(f))
		}
		return fmt.Errorf("%w: %s", ErrImmutableField, f)
	}
	v := Normalize(f, value)
	switch f {
	case FieldSize:
		if !validSize(v) {
			return fmt.Errorf("%w: %q", ErrInvalidSize, v)
		}
	case FieldDate:
		if v == "" {
			return nil
		}
		if _, err := time.Parse(DateLayout, v); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, v)
		}
	case FieldLatitude, FieldLongitude:
		if v == "" {
			return nil
		}
		if _, err := parseCoordinate(f, v); err != nil {
			return err
		}
	}
	return nil
}

func parseCoordinate(f Field, v string) (geo.DMS, error) {
	if f == FieldLatitude {
		return geo.ParseLatitude(v)
	}
	return geo.ParseLongitude(v)
}

// canonical rewrites coordinates to their formatted form so equal positions
// compare equal.
func canonical(f Field, v string) string {
	if (f != FieldLatitude && f != FieldLongitude) || v == "" {
		return v
	}
	d, err := parseCoordinate(f, v)
	if err != nil {
		return v
	}
	return d.String()
}
