// Package refs holds the bibliographic reference table. Entries link to
// references by id only; removing a reference leaves those links in place.
package refs

import (
	"context"
	"slices"
	"strings"
)

// Reference is one bibliographic record as supplied by the importer.
type Reference struct {
	ID      string `json:"id"`
	Year    string `json:"year"`
	Authors string `json:"authors"`
	Title   string `json:"title"`
	Outlet  string `json:"outlet"`
	Volume  string `json:"volume"`
	Issue   string `json:"issue"`
	Pages   string `json:"pages"`
}

// Citation renders a short citation such as "Smith, Jones (1999)".
func (r Reference) Citation() string {
	if r.Year == "" {
		return r.Authors
	}
	return r.Authors + " (" + r.Year + ")"
}

// Source supplies references from an external bibliography.
type Source interface {
	References(ctx context.Context) ([]Reference, error)
}

// Table is the ordered reference table.
type Table struct {
	rows []Reference
}

func NewTable(refs ...Reference) *Table {
	t := &Table{}
	t.Replace(refs)
	return t
}

// Replace swaps the whole table, keeping the last entry for a repeated id.
func (t *Table) Replace(refs []Reference) {
	index := make(map[string]int, len(refs))
	rows := make([]Reference, 0, len(refs))
	for _, r := range refs {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			continue
		}
		if i, ok := index[r.ID]; ok {
			rows[i] = r
			continue
		}
		index[r.ID] = len(rows)
		rows = append(rows, r)
	}
	t.rows = rows
}

// Upsert adds ref or overwrites the entry with the same id.
func (t *Table) Upsert(ref Reference) {
	for i := range t.rows {
		if t.rows[i].ID == ref.ID {
			t.rows[i] = ref
			return
		}
	}
	t.rows = append(t.rows, ref)
}

func (t *Table) Remove(id string) bool {
	for i := range t.rows {
		if t.rows[i].ID == id {
			t.rows = slices.Delete(t.rows, i, i+1)
			return true
		}
	}
	return false
}

func (t *Table) Get(id string) (Reference, bool) {
	for _, r := range t.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Reference{}, false
}

func (t *Table) All() []Reference { return slices.Clone(t.rows) }

func (t *Table) Len() int { return len(t.rows) }

// ParseIDs splits the references field of an entry into ids.
func ParseIDs(field string) []string {
	var ids []string
	for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == ';' }) {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Missing returns the ids in field that have no entry in the table.
func (t *Table) Missing(field string) []string {
	var missing []string
	for _, id := range ParseIDs(field) {
		if _, ok := t.Get(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
