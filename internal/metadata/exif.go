package metadata

import (
	"fmt"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/geo"
)

const (
	exifDateLayout = "2006:01:02 15:04:05"

	// SentinelDate is stored in both capture date slots when an entry has no
	// date. It reads back as an empty date.
	SentinelDate = "1900:01:01 00:00:00"

	ifdPathExif = "IFD/Exif"
	ifdPathGPS  = "IFD/GPSInfo"
	zeroDate    = "0000:00:00 00:00:00"
)

// Step outcomes recorded in a WriteResult.
const (
	ActionWritten  = "written"
	ActionDeleted  = "deleted"
	ActionSentinel = "sentinel"
	ActionSkipped  = "skipped"
)

// StepOutcome records what a binary write step did and why.
type StepOutcome struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// exifData is the binary metadata read from an image.
type exifData struct {
	Latitude  string
	Longitude string
	Date      string
}

func readEXIF(sl *jis.SegmentList) (exifData, error) {
	rootIfd, _, err := sl.Exif()
	if err != nil {
		return exifData{}, err
	}
	var out exifData

	if gpsIfd, err := rootIfd.ChildWithIfdPath(exifcommon.IfdGpsInfoStandardIfdIdentity); err == nil {
		lat, latErr := readCoordinate(gpsIfd, geo.Latitude, "GPSLatitudeRef", "GPSLatitude")
		lon, lonErr := readCoordinate(gpsIfd, geo.Longitude, "GPSLongitudeRef", "GPSLongitude")
		if latErr == nil && lonErr == nil {
			out.Latitude = lat.String()
			out.Longitude = lon.String()
		}
	}

	type dateSlot struct {
		ifd  *exif.Ifd
		name string
	}
	var slots []dateSlot
	if exifIfd, err := rootIfd.ChildWithIfdPath(exifcommon.IfdExifStandardIfdIdentity); err == nil {
		slots = append(slots, dateSlot{exifIfd, "DateTimeOriginal"}, dateSlot{exifIfd, "DateTimeDigitized"})
	}
	slots = append(slots, dateSlot{rootIfd, "DateTime"})
	for _, slot := range slots {
		raw, err := tagString(slot.ifd, slot.name)
		if err != nil || raw == "" || raw == zeroDate {
			continue
		}
		t, err := time.Parse(exifDateLayout, raw)
		if err != nil {
			continue
		}
		if raw != SentinelDate {
			out.Date = t.Format(catalog.DateLayout)
		}
		break
	}
	return out, nil
}

func tagString(ifd *exif.Ifd, name string) (string, error) {
	entries, err := ifd.FindTagWithName(name)
	if err != nil {
		return "", err
	}
	v, err := entries[0].Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("exif: %s is %T, not text", name, v)
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00")), nil
}

func readCoordinate(ifd *exif.Ifd, axis geo.Axis, refTag, valueTag string) (geo.DMS, error) {
	ref, err := tagString(ifd, refTag)
	if err != nil {
		return geo.DMS{}, err
	}
	entries, err := ifd.FindTagWithName(valueTag)
	if err != nil {
		return geo.DMS{}, err
	}
	v, err := entries[0].Value()
	if err != nil {
		return geo.DMS{}, err
	}
	rats, ok := v.([]exifcommon.Rational)
	if !ok {
		return geo.DMS{}, fmt.Errorf("exif: %s is %T, not rational", valueTag, v)
	}
	parts := make([]geo.Rational, len(rats))
	for i, r := range rats {
		parts[i] = geo.Rational{Numerator: r.Numerator, Denominator: r.Denominator}
	}
	return geo.FromRationals(axis, ref, parts)
}

func rootBuilder(sl *jis.SegmentList) (*exif.IfdBuilder, error) {
	if _, _, err := sl.FindExif(); err == nil {
		return sl.ConstructExifBuilder()
	}
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

// applyEXIF writes the GPS block and capture dates of rec into sl. A position
// that fails to parse is an error; a missing GPS block to delete and date
// slots that cannot be written are recorded as skipped steps.
func applyEXIF(sl *jis.SegmentList, rec catalog.Record) (gpsStep, dateStep StepOutcome, err error) {
	pair, hasGPS, err := geo.ParsePair(rec.Latitude, rec.Longitude)
	if err != nil {
		return gpsStep, dateStep, err
	}
	rootIb, err := rootBuilder(sl)
	if err != nil {
		return gpsStep, dateStep, fmt.Errorf("exif builder: %w", err)
	}

	if hasGPS {
		if err := setGPS(rootIb, pair); err != nil {
			return gpsStep, dateStep, fmt.Errorf("set gps: %w", err)
		}
		gpsStep = StepOutcome{Action: ActionWritten}
	} else {
		gpsStep = deleteGPS(rootIb)
	}

	dateStep = setDates(rootIb, rec.Date)

	if err := sl.SetExif(rootIb); err != nil {
		return gpsStep, dateStep, fmt.Errorf("store exif: %w", err)
	}
	return gpsStep, dateStep, nil
}

func setGPS(rootIb *exif.IfdBuilder, p geo.Pair) error {
	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, ifdPathGPS)
	if err != nil {
		return err
	}
	if err := gpsIb.SetStandardWithName("GPSVersionID", []uint8{2, 2, 0, 0}); err != nil {
		return err
	}
	for _, c := range []struct {
		refTag, valueTag string
		dms              geo.DMS
	}{
		{"GPSLatitudeRef", "GPSLatitude", p.Latitude},
		{"GPSLongitudeRef", "GPSLongitude", p.Longitude},
	} {
		if err := gpsIb.SetStandardWithName(c.refTag, c.dms.Ref); err != nil {
			return err
		}
		r := c.dms.Rationals()
		value := make([]exifcommon.Rational, len(r))
		for i, q := range r {
			value[i] = exifcommon.Rational{Numerator: q.Numerator, Denominator: q.Denominator}
		}
		if err := gpsIb.SetStandardWithName(c.valueTag, value); err != nil {
			return err
		}
	}
	return nil
}

func deleteGPS(rootIb *exif.IfdBuilder) StepOutcome {
	n, err := rootIb.DeleteAll(exifcommon.IfdGpsInfoStandardIfdIdentity.TagId())
	switch {
	case err != nil:
		return StepOutcome{Action: ActionSkipped, Reason: err.Error()}
	case n == 0:
		return StepOutcome{Action: ActionSkipped, Reason: "no gps block present"}
	}
	return StepOutcome{Action: ActionDeleted}
}

func setDates(rootIb *exif.IfdBuilder, date string) StepOutcome {
	value, action := SentinelDate, ActionSentinel
	if date != "" {
		t, err := time.Parse(catalog.DateLayout, date)
		if err != nil {
			return StepOutcome{Action: ActionSkipped, Reason: fmt.Sprintf("unparseable date %q", date)}
		}
		value, action = t.Format(exifDateLayout), ActionWritten
	}
	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, ifdPathExif)
	if err != nil {
		return StepOutcome{Action: ActionSkipped, Reason: err.Error()}
	}
	for _, name := range []string{"DateTimeOriginal", "DateTimeDigitized"} {
		if err := exifIb.SetStandardWithName(name, value); err != nil {
			return StepOutcome{Action: ActionSkipped, Reason: err.Error()}
		}
	}
	return StepOutcome{Action: action}
}
