// Package geo converts GPS coordinates between decimal degrees, the
// degree/minute/second text form shown to curators, and EXIF rationals.
package geo

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCoordinate is returned when a coordinate text is empty.
var ErrNoCoordinate = errors.New("geo: no coordinate")

// Axis selects latitude or longitude rules.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

func (a Axis) String() string {
	if a == Latitude {
		return "latitude"
	}
	return "longitude"
}

func (a Axis) limit() int {
	if a == Latitude {
		return 90
	}
	return 180
}

func (a Axis) refs() (pos, neg string) {
	if a == Latitude {
		return "N", "S"
	}
	return "E", "W"
}

// ParseError reports malformed coordinate text.
type ParseError struct {
	Axis   Axis
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("geo: invalid %s %q: %s", e.Axis, e.Input, e.Reason)
}

// DMS is a hemisphere reference plus whole degrees, minutes and seconds.
type DMS struct {
	Ref     string
	Degrees int
	Minutes int
	Seconds int
}

// Axis derives the axis from the hemisphere reference.
func (d DMS) Axis() Axis {
	if d.Ref == "E" || d.Ref == "W" {
		return Longitude
	}
	return Latitude
}

// guards float error when a decimal produced by Decimal is converted back
const secondsEpsilon = 1e-6

// FromDecimal converts signed decimal degrees, truncating to whole seconds.
func FromDecimal(axis Axis, v float64) (DMS, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > float64(axis.limit()) {
		return DMS{}, &ParseError{Axis: axis, Input: strconv.FormatFloat(v, 'f', -1, 64), Reason: "out of range"}
	}
	total := int(math.Floor(math.Abs(v)*3600 + secondsEpsilon))
	// a value that truncates to zero keeps the positive reference
	pos, neg := axis.refs()
	ref := pos
	if v < 0 && total > 0 {
		ref = neg
	}
	return DMS{
		Ref:     ref,
		Degrees: total / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}, nil
}

// Decimal returns signed decimal degrees. Southern and western references
// are negative.
func (d DMS) Decimal() float64 {
	v := float64(d.Degrees) + float64(d.Minutes)/60 + float64(d.Seconds)/3600
	if d.Ref == "S" || d.Ref == "W" {
		return -v
	}
	return v
}

// String formats d as N 23°32'51" for latitude and W 046°38'10" for longitude.
// Parse also accepts two-digit longitude degrees; String always pads to three.
func (d DMS) String() string {
	if d.Axis() == Latitude {
		return fmt.Sprintf("%s %02d°%02d'%02d\"", d.Ref, d.Degrees, d.Minutes, d.Seconds)
	}
	return fmt.Sprintf("%s %03d°%02d'%02d\"", d.Ref, d.Degrees, d.Minutes, d.Seconds)
}

var (
	latPattern = regexp.MustCompile(`^([NS]) (\d{2})°(\d{2})'(\d{2})"$`)
	lonPattern = regexp.MustCompile(`^([EW]) (\d{2,3})°(\d{2})'(\d{2})"$`)
)

// Parse reads the text form of a coordinate for axis.
func Parse(axis Axis, s string) (DMS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DMS{}, ErrNoCoordinate
	}
	pattern := latPattern
	if axis == Longitude {
		pattern = lonPattern
	}
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return DMS{}, &ParseError{Axis: axis, Input: s, Reason: "unexpected format"}
	}
	deg, _ := strconv.Atoi(m[2])
	min, _ := strconv.Atoi(m[3])
	sec, _ := strconv.Atoi(m[4])
	d := DMS{Ref: m[1], Degrees: deg, Minutes: min, Seconds: sec}
	if err := d.check(axis, s); err != nil {
		return DMS{}, err
	}
	return d, nil
}

func ParseLatitude(s string) (DMS, error)  { return Parse(Latitude, s) }
func ParseLongitude(s string) (DMS, error) { return Parse(Longitude, s) }

func (d DMS) check(axis Axis, input string) error {
	switch {
	case d.Minutes > 59 || d.Seconds > 59:
		return &ParseError{Axis: axis, Input: input, Reason: "minutes and seconds must be below 60"}
	case d.Degrees > axis.limit():
		return &ParseError{Axis: axis, Input: input, Reason: "degrees out of range"}
	case d.Degrees == axis.limit() && (d.Minutes > 0 || d.Seconds > 0):
		return &ParseError{Axis: axis, Input: input, Reason: "degrees out of range"}
	}
	return nil
}

// Rational is an unsigned EXIF rational.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// Rationals returns the exact degree, minute and second triple.
func (d DMS) Rationals() [3]Rational {
	return [3]Rational{
		{Numerator: uint32(d.Degrees), Denominator: 1},
		{Numerator: uint32(d.Minutes), Denominator: 1},
		{Numerator: uint32(d.Seconds), Denominator: 1},
	}
}

// FromRationals decodes a triple as written by cameras, which may carry
// fractional minutes or seconds.
func FromRationals(axis Axis, ref string, r []Rational) (DMS, error) {
	pos, neg := axis.refs()
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref != pos && ref != neg {
		return DMS{}, &ParseError{Axis: axis, Input: ref, Reason: "unknown reference"}
	}
	if len(r) != 3 {
		return DMS{}, &ParseError{Axis: axis, Input: fmt.Sprint(r), Reason: "expected three rationals"}
	}
	parts := [3]float64{}
	for i, q := range r {
		if q.Denominator == 0 {
			return DMS{}, &ParseError{Axis: axis, Input: fmt.Sprint(r), Reason: "zero denominator"}
		}
		parts[i] = float64(q.Numerator) / float64(q.Denominator)
	}
	v := parts[0] + parts[1]/60 + parts[2]/3600
	if ref == neg {
		v = -v
	}
	return FromDecimal(axis, v)
}

// Pair holds a complete position.
type Pair struct {
	Latitude  DMS
	Longitude DMS
}

// ParsePair parses both texts. ok is false when either is empty, which means
// the position is absent.
func ParsePair(lat, lon string) (p Pair, ok bool, err error) {
	la, err := ParseLatitude(lat)
	if errors.Is(err, ErrNoCoordinate) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, err
	}
	lo, err := ParseLongitude(lon)
	if errors.Is(err, ErrNoCoordinate) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, err
	}
	return Pair{Latitude: la, Longitude: lo}, true, nil
}
