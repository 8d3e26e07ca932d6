package metadata

import (
	"bytes"
	"fmt"
	"slices"

	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
)

const (
	markerSOI   = 0xd8
	markerAPP0  = 0xe0
	markerAPP13 = 0xed
	markerAPP15 = 0xef

	// segment length field counts itself
	maxSegmentPayload = 0xffff - 2
)

func parseJPEG(data []byte) (*jis.SegmentList, error) {
	mc, err := jis.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse jpeg: %w", err)
	}
	sl, ok := mc.(*jis.SegmentList)
	if !ok {
		return nil, fmt.Errorf("parse jpeg: unexpected media context %T", mc)
	}
	return sl, nil
}

func isAPP(marker byte) bool {
	return marker >= markerAPP0 && marker <= markerAPP15
}

func photoshopSegment(sl *jis.SegmentList) (int, *jis.Segment) {
	for i, s := range sl.Segments() {
		if s.MarkerId == markerAPP13 && bytes.HasPrefix(s.Data, []byte(photoshopSignature)) {
			return i, s
		}
	}
	return -1, nil
}

// readIPTC returns the IIM datasets of the image, or nil when it has none.
func readIPTC(sl *jis.SegmentList) ([]dataset, error) {
	_, seg := photoshopSegment(sl)
	if seg == nil {
		return nil, nil
	}
	res, err := parseResources(seg.Data)
	if err != nil {
		return nil, err
	}
	raw, ok := findResource(res, iptcResourceID)
	if !ok {
		return nil, nil
	}
	return decodeIIM(raw)
}

// withIPTC returns a segment list whose Photoshop block carries iim. Other
// resources in the block are kept. A missing block is inserted after the
// leading application segments.
func withIPTC(sl *jis.SegmentList, iim []byte) (*jis.SegmentList, error) {
	segs := slices.Clone(sl.Segments())
	idx, seg := photoshopSegment(sl)

	var res []resource
	if seg != nil {
		var err error
		if res, err = parseResources(seg.Data); err != nil {
			return nil, fmt.Errorf("existing photoshop block: %w", err)
		}
	}
	res = upsertResource(res, iptcResourceID, iim)
	payload := buildResources(res)
	if len(payload) > maxSegmentPayload {
		return nil, fmt.Errorf("iptc block of %d bytes exceeds segment limit", len(payload))
	}

	if seg != nil {
		replaced := *seg
		replaced.Data = payload
		segs[idx] = &replaced
		return jis.NewSegmentList(segs), nil
	}

	at := 0
	if len(segs) > 0 && segs[0].MarkerId == markerSOI {
		at = 1
	}
	for at < len(segs) && isAPP(segs[at].MarkerId) {
		at++
	}
	app13 := &jis.Segment{MarkerId: markerAPP13, MarkerName: "APP13", Data: payload}
	segs = slices.Insert(segs, at, app13)
	return jis.NewSegmentList(segs), nil
}

func encodeJPEG(sl *jis.SegmentList) ([]byte, error) {
	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
