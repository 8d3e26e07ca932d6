// Package suggest keeps per-field autocompletion lists built from catalog
// values.
package suggest

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/cebimar/veliger/internal/catalog"
)

// List names.
const (
	Tags      = "tags"
	Taxa      = "taxa"
	Sources   = "sources"
	Authors   = "authors"
	Rights    = "rights"
	Places    = "places"
	Cities    = "cities"
	States    = "states"
	Countries = "countries"
)

var listFields = map[string]catalog.Field{
	Tags:      catalog.FieldTags,
	Taxa:      catalog.FieldTaxon,
	Sources:   catalog.FieldSource,
	Authors:   catalog.FieldAuthor,
	Rights:    catalog.FieldRights,
	Places:    catalog.FieldSublocation,
	Cities:    catalog.FieldCity,
	States:    catalog.FieldState,
	Countries: catalog.FieldCountry,
}

// Names returns every list name in a fixed order.
func Names() []string {
	return []string{Tags, Taxa, Sources, Authors, Rights, Places, Cities, States, Countries}
}

// ListFor returns the list fed by field f.
func ListFor(f catalog.Field) (string, bool) {
	for name, lf := range listFields {
		if lf == f {
			return name, true
		}
	}
	return "", false
}

// Lists holds the suggestion lists. Values are appended as they are seen and
// only deduplicated and sorted by Rebuild.
type Lists struct {
	lists map[string][]string
	tag   language.Tag
}

func New(tag language.Tag) *Lists {
	l := &Lists{lists: make(map[string][]string, len(listFields)), tag: tag}
	for _, n := range Names() {
		l.lists[n] = nil
	}
	return l
}

// FromSnapshot restores lists saved with Snapshot. Unknown list names are
// dropped.
func FromSnapshot(tag language.Tag, saved map[string][]string) *Lists {
	l := New(tag)
	for name, values := range saved {
		if _, ok := l.lists[name]; ok {
			l.lists[name] = slices.Clone(values)
		}
	}
	return l
}

// Add appends value to list unless it is empty or already the last entry.
func (l *Lists) Add(list, value string) {
	values, ok := l.lists[list]
	if !ok || value == "" {
		return
	}
	if len(values) > 0 && values[len(values)-1] == value {
		return
	}
	l.lists[list] = append(values, value)
}

func (l *Lists) addRecordField(f catalog.Field, value string) {
	list, ok := ListFor(f)
	if !ok {
		return
	}
	if f == catalog.FieldTags {
		for _, tag := range catalog.SplitTags(value) {
			l.Add(list, tag)
		}
		return
	}
	l.Add(list, value)
}

// Observe is a catalog.Listener feeding inserted and edited values.
func (l *Lists) Observe(ev catalog.Event) {
	switch ev.Kind {
	case catalog.EventInserted:
		for _, f := range catalog.Fields() {
			l.addRecordField(f, ev.Record.Get(f))
		}
	case catalog.EventUpdated:
		if ev.Old != ev.New {
			l.addRecordField(ev.Field, ev.New)
		}
	}
}

// Rebuild merges the values of records into every list, then deduplicates
// and sorts each list by the configured collation.
func (l *Lists) Rebuild(records []catalog.Record) {
	for _, r := range records {
		for _, f := range listFields {
			l.addRecordField(f, r.Get(f))
		}
	}
	col := collate.New(l.tag, collate.IgnoreCase)
	for name, values := range l.lists {
		seen := make(map[string]struct{}, len(values))
		uniq := make([]string, 0, len(values))
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			uniq = append(uniq, v)
		}
		col.SortStrings(uniq)
		l.lists[name] = uniq
	}
}

// Get returns a copy of list.
func (l *Lists) Get(list string) []string {
	return slices.Clone(l.lists[list])
}

// Complete returns the distinct entries of list starting with prefix,
// ignoring case.
func (l *Lists) Complete(list, prefix string) []string {
	fold := cases.Fold()
	p := fold.String(prefix)
	var out []string
	seen := map[string]struct{}{}
	for _, v := range l.lists[list] {
		if _, dup := seen[v]; dup {
			continue
		}
		if strings.HasPrefix(fold.String(v), p) {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Snapshot returns a copy of every list.
func (l *Lists) Snapshot() map[string][]string {
	out := make(map[string][]string, len(l.lists))
	for name, values := range l.lists {
		out[name] = slices.Clone(values)
	}
	return out
}
