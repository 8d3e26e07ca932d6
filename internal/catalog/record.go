package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField   = errors.New("catalog: unknown field")
	ErrImmutableField = errors.New("catalog: field cannot be edited")
	ErrInvalidSize    = errors.New("catalog: invalid size class")
	ErrInvalidDate    = errors.New("catalog: invalid capture date")
	ErrRowOutOfRange  = errors.New("catalog: row out of range")
)

// Field identifies one column of an entry record. The numeric order is the
// column order of the catalog table.
type Field int

const (
	FieldPath Field = iota
	FieldTitle
	FieldCaption
	FieldTags
	FieldTaxon
	FieldSource
	FieldAuthor
	FieldRights
	FieldSize
	FieldSublocation
	FieldCity
	FieldState
	FieldCountry
	FieldLatitude
	FieldLongitude
	FieldDate
	FieldTimestamp
	FieldReferences
	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldPath:        "path",
	FieldTitle:       "title",
	FieldCaption:     "caption",
	FieldTags:        "tags",
	FieldTaxon:       "taxon",
	FieldSource:      "source",
	FieldAuthor:      "author",
	FieldRights:      "rights",
	FieldSize:        "size",
	FieldSublocation: "sublocation",
	FieldCity:        "city",
	FieldState:       "state",
	FieldCountry:     "country",
	FieldLatitude:    "latitude",
	FieldLongitude:   "longitude",
	FieldDate:        "date",
	FieldTimestamp:   "timestamp",
	FieldReferences:  "references",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Editable reports whether curators may change the field through an edit.
func (f Field) Editable() bool {
	return f > FieldPath && f < fieldCount && f != FieldTimestamp
}

// Fields returns every field in column order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := FieldPath; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// ParseField resolves a column name such as "caption" to its Field.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == name {
			return Field(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// DateLayout is the record form of capture dates and import timestamps.
const DateLayout = "2006-01-02 15:04:05"

// Size classes in display order. The empty string means unset.
const (
	SizeUnset  = ""
	SizeMicro  = "<0,1 mm"
	SizeTiny   = "0,1 - 1,0 mm"
	SizeSmall  = "1,0 - 10 mm"
	SizeMedium = "10 - 100 mm"
	SizeLarge  = ">100 mm"
)

var sizeClasses = []string{SizeUnset, SizeMicro, SizeTiny, SizeSmall, SizeMedium, SizeLarge}

// SizeClasses returns the ordered size enumeration.
func SizeClasses() []string {
	return append([]string(nil), sizeClasses...)
}

func validSize(v string) bool {
	for _, s := range sizeClasses {
		if s == v {
			return true
		}
	}
	return false
}

// Record is one catalog entry per asset. Every field is text; tags holds the
// display form of the tag set.
type Record struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	Caption     string `json:"caption"`
	Tags        string `json:"tags"`
	Taxon       string `json:"taxon"`
	Source      string `json:"source"`
	Author      string `json:"author"`
	Rights      string `json:"rights"`
	Size        string `json:"size"`
	Sublocation string `json:"sublocation"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Date        string `json:"date"`
	Timestamp   string `json:"timestamp"`
	References  string `json:"references"`
}

func (r *Record) slot(f Field) *string {
	switch f {
	case FieldPath:
		return &r.Path
	case FieldTitle:
		return &r.Title
	case FieldCaption:
		return &r.Caption
	case FieldTags:
		return &r.Tags
	case FieldTaxon:
		return &r.Taxon
	case FieldSource:
		return &r.Source
	case FieldAuthor:
		return &r.Author
	case FieldRights:
		return &r.Rights
	case FieldSize:
		return &r.Size
	case FieldSublocation:
		return &r.Sublocation
	case FieldCity:
		return &r.City
	case FieldState:
		return &r.State
	case FieldCountry:
		return &r.Country
	case FieldLatitude:
		return &r.Latitude
	case FieldLongitude:
		return &r.Longitude
	case FieldDate:
		return &r.Date
	case FieldTimestamp:
		return &r.Timestamp
	case FieldReferences:
		return &r.References
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (r Record) Get(f Field) string {
	if p := r.slot(f); p != nil {
		return *p
	}
	return ""
}

// Set stores v into f without normalization.
func (r *Record) Set(f Field, v string) error {
	p := r.slot(f)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	*p = v
	return nil
}

// TagList returns the tag set in stored order.
func (r Record) TagList() []string {
	return SplitTags(r.Tags)
}

// Normalized returns a copy with every field passed through Normalize.
func (r Record) Normalized() Record {
	out := r
	for _, f := range Fields() {
		p := out.slot(f)
		*p = Normalize(f, *p)
	}
	return out
}

// CopyDescriptive copies the curator-supplied fields of src onto r, leaving
// path, import timestamp and references alone.
func (r *Record) CopyDescriptive(src Record) {
	for f := FieldTitle; f <= FieldDate; f++ {
		*r.slot(f) = src.Get(f)
	}
}
