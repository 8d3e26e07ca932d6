package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cebimar/veliger/internal/catalog"
)

const (
	iimMarker = 0x1c

	recordEnvelope    = 1
	recordApplication = 2

	datasetCodedCharset  = 90 // 1:90
	datasetRecordVersion = 0  // 2:00
	datasetKeywords      = 25 // 2:25

	// fewer mapped datasets than this means the file carries no catalog data
	minPopulatedSlots = 4

	maxShortLength = 0x7fff
)

var utf8Declaration = []byte{0x1b, 0x25, 0x47}

var errTruncated = errors.New("iptc: truncated data")

// dataset is one IIM tag.
type dataset struct {
	Record byte
	Number byte
	Value  []byte
}

// iptcSlots maps record-2 datasets to catalog fields. Keywords are handled
// separately since the dataset repeats.
var iptcSlots = []struct {
	number byte
	field  catalog.Field
}{
	{5, catalog.FieldTitle},         // object name
	{40, catalog.FieldSize},         // special instructions
	{80, catalog.FieldAuthor},       // by-line
	{90, catalog.FieldCity},         // city
	{92, catalog.FieldSublocation},  // sub-location
	{95, catalog.FieldState},        // province/state
	{101, catalog.FieldCountry},     // country name
	{105, catalog.FieldTaxon},       // headline
	{110, catalog.FieldReferences},  // credit
	{115, catalog.FieldSource},      // source
	{116, catalog.FieldRights},      // copyright notice
	{120, catalog.FieldCaption},     // caption/abstract
}

func decodeIIM(b []byte) ([]dataset, error) {
	var out []dataset
	for i := 0; i < len(b); {
		if b[i] != iimMarker {
			if allZero(b[i:]) {
				break
			}
			return out, fmt.Errorf("iptc: unexpected byte 0x%02x at offset %d", b[i], i)
		}
		if i+5 > len(b) {
			return out, errTruncated
		}
		rec, num := b[i+1], b[i+2]
		n := int(binary.BigEndian.Uint16(b[i+3 : i+5]))
		i += 5
		if n > maxShortLength {
			k := n & maxShortLength
			if k == 0 || k > 4 || i+k > len(b) {
				return out, errTruncated
			}
			n = 0
			for _, c := range b[i : i+k] {
				n = n<<8 | int(c)
			}
			i += k
		}
		if n < 0 || i+n > len(b) {
			return out, errTruncated
		}
		out = append(out, dataset{Record: rec, Number: num, Value: bytes.Clone(b[i : i+n])})
		i += n
	}
	return out, nil
}

func encodeIIM(ds []dataset) []byte {
	var buf bytes.Buffer
	for _, d := range ds {
		buf.Write([]byte{iimMarker, d.Record, d.Number})
		if len(d.Value) <= maxShortLength {
			_ = binary.Write(&buf, binary.BigEndian, uint16(len(d.Value)))
		} else {
			_ = binary.Write(&buf, binary.BigEndian, uint16(0x8004))
			_ = binary.Write(&buf, binary.BigEndian, uint32(len(d.Value)))
		}
		buf.Write(d.Value)
	}
	return buf.Bytes()
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// encodeRecordIPTC renders every mapped field of rec, including empty ones,
// so a file written here always reads back as carrying catalog data.
func encodeRecordIPTC(rec catalog.Record) []byte {
	ds := []dataset{
		{Record: recordEnvelope, Number: datasetCodedCharset, Value: utf8Declaration},
		{Record: recordApplication, Number: datasetRecordVersion, Value: []byte{0x00, 0x04}},
	}
	for _, slot := range iptcSlots {
		ds = append(ds, dataset{Record: recordApplication, Number: slot.number, Value: []byte(rec.Get(slot.field))})
	}
	for _, tag := range rec.TagList() {
		ds = append(ds, dataset{Record: recordApplication, Number: datasetKeywords, Value: []byte(tag)})
	}
	return encodeIIM(ds)
}

// iptcFields holds decoded textual values.
type iptcFields struct {
	values    map[catalog.Field]string
	keywords  []string
	populated int
}

func decodeRecordIPTC(ds []dataset, cs Charset) iptcFields {
	if cs == CharsetAuto {
		for _, d := range ds {
			if d.Record == recordEnvelope && d.Number == datasetCodedCharset && bytes.Equal(d.Value, utf8Declaration) {
				cs = CharsetUTF8
			}
		}
	}
	fieldOf := make(map[byte]catalog.Field, len(iptcSlots))
	for _, slot := range iptcSlots {
		fieldOf[slot.number] = slot.field
	}

	out := iptcFields{values: map[catalog.Field]string{}}
	present := map[byte]struct{}{}
	for _, d := range ds {
		if d.Record != recordApplication {
			continue
		}
		if d.Number == datasetKeywords {
			present[d.Number] = struct{}{}
			out.keywords = append(out.keywords, decodeText(d.Value, cs))
			continue
		}
		f, ok := fieldOf[d.Number]
		if !ok {
			continue
		}
		present[d.Number] = struct{}{}
		if _, seen := out.values[f]; !seen {
			out.values[f] = decodeText(d.Value, cs)
		}
	}
	out.populated = len(present)
	return out
}

func (f iptcFields) apply(rec *catalog.Record) bool {
	if f.populated < minPopulatedSlots {
		return false
	}
	for field, v := range f.values {
		_ = rec.Set(field, v)
	}
	rec.Tags = catalog.TagText(f.keywords)
	return true
}
