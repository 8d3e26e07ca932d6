package metadata

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/geo"
	"github.com/cebimar/veliger/internal/media"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestCodec() *Codec {
	return NewCodec(Config{Clock: func() time.Time { return fixedNow }})
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: 80, B: uint8(y * 16), A: 255})
		}
	}
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 80}))
	return path
}

func fullRecord(path string) catalog.Record {
	return catalog.Record{
		Path:        path,
		Title:       "Larva",
		Caption:     "Veliger larva under the microscope.",
		Tags:        "larva, mollusca",
		Taxon:       "Gastropoda",
		Source:      "A. Specialist",
		Author:      "B. Photographer",
		Rights:      "CC BY",
		Size:        catalog.SizeTiny,
		Sublocation: "Praia do Segredo",
		City:        "São Sebastião",
		State:       "SP",
		Country:     "Brasil",
		Latitude:    `S 23°49'41"`,
		Longitude:   `W 045°25'22"`,
		Date:        "2010-02-03 14:15:16",
		References:  "12, 40",
	}
}

func TestPhotoWriteReadRoundTrip(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0001.jpg")
	c := newTestCodec()
	rec := fullRecord(path)

	res, err := c.Write(rec)
	require.NoError(t, err)
	assert.Equal(t, ActionWritten, res.GPS.Action)
	assert.Equal(t, ActionWritten, res.Date.Action)

	got, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	rec.Timestamp = fixedNow.Local().Format(catalog.DateLayout)
	assert.Equal(t, rec, got)

	_, err = media.Probe(path)
	assert.NoError(t, err, "image data must survive the rewrite")
}

func TestPhotoWriteWithoutGPSDeletesBlock(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0002.jpg")
	c := newTestCodec()
	rec := fullRecord(path)
	_, err := c.Write(rec)
	require.NoError(t, err)

	rec.Latitude, rec.Longitude = "", ""
	res, err := c.Write(rec)
	require.NoError(t, err)
	assert.Equal(t, ActionDeleted, res.GPS.Action)

	got, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, got.Latitude)
	assert.Empty(t, got.Longitude)
	assert.Equal(t, "Larva", got.Title)
}

func TestPhotoWriteMissingGPSBlockIsRecordedNotFailed(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0003.jpg")
	res, err := newTestCodec().Write(catalog.Record{Path: path, Title: "only a title", Latitude: `S 23°49'41"`})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, res.GPS.Action)
	assert.NotEmpty(t, res.GPS.Reason)
}

// An entry without a capture date stores the sentinel; it reads back empty.
func TestPhotoWriteEmptyDateStoresSentinel(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0004.jpg")
	c := newTestCodec()
	res, err := c.Write(catalog.Record{Path: path, Title: "undated"})
	require.NoError(t, err)
	assert.Equal(t, ActionSentinel, res.Date.Action)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sl, err := parseJPEG(data)
	require.NoError(t, err)
	rootIfd, _, err := sl.Exif()
	require.NoError(t, err)
	assert.NotNil(t, rootIfd)
	bin, err := readEXIF(sl)
	require.NoError(t, err)
	assert.Empty(t, bin.Date)

	got, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, got.Date)
	assert.Equal(t, "undated", got.Title)
}

func TestPhotoWriteInvalidCoordinateFailsWithoutChange(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0005.jpg")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = newTestCodec().Write(catalog.Record{Path: path, Latitude: "nowhere", Longitude: `W 045°25'22"`})
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "exif", we.Op)
	var pe *geo.ParseError
	assert.ErrorAs(t, err, &pe)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPhotoWriteTouchesModTime(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0006.jpg")
	res, err := newTestCodec().Write(catalog.Record{Path: path})
	require.NoError(t, err)
	assert.Equal(t, ActionWritten, res.Touch.Action)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(fixedNow))
}

func TestPhotoWriteTouchFailureIsAnOutcome(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "IMG_0007.jpg")
	c := newTestCodec()
	c.chtimes = func(string, time.Time) error { return errors.New("operation not permitted") }

	res, err := c.Write(fullRecord(path))
	require.NoError(t, err, "the asset is already replaced")
	assert.Equal(t, ActionSkipped, res.Touch.Action)
	assert.Contains(t, res.Touch.Reason, "not permitted")

	back, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Larva", back.Title)
}

func TestReadDegradesOnCorruptPhoto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))
	rec, err := newTestCodec().Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, path, rec.Path)
	assert.NotEmpty(t, rec.Timestamp)
	assert.Empty(t, rec.Title)
}

func TestReadFreshPhotoHasEmptyFields(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "fresh.JPG")
	rec, err := newTestCodec().Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, catalog.Record{Path: path, Timestamp: rec.Timestamp}, rec)
}

func TestReadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := newTestCodec().Read(path, ReadOptions{})
	assert.True(t, errors.Is(err, media.ErrUnsupported))

	_, err = newTestCodec().Write(catalog.Record{Path: path})
	assert.ErrorIs(t, err, media.ErrUnsupported)
}

func TestVideoSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.MOV")
	require.NoError(t, os.WriteFile(path, []byte("moov"), 0o644))
	c := newTestCodec()

	rec, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, rec.Title)

	want := fullRecord(path)
	res, err := c.Write(want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.txt"), res.Sidecar)

	got, err := c.Read(path, ReadOptions{})
	require.NoError(t, err)
	want.Timestamp = got.Timestamp
	assert.Equal(t, want, got)
	assert.Equal(t, fixedNow.Local().Format(catalog.DateLayout), got.Timestamp)
}

func TestVideoSidecarPartialOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	sidecar := "title: Medusa\ntags: [Cnidaria, plankton, cnidaria]\nreferences: 12\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.txt"), []byte(sidecar), 0o644))

	rec, err := newTestCodec().Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Medusa", rec.Title)
	assert.Equal(t, "cnidaria, plankton", rec.Tags)
	assert.Equal(t, "12", rec.References)
	assert.Empty(t, rec.Author)
}

func TestVideoCorruptSidecarDegrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.avi")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.txt"), []byte("title: [unclosed"), 0o644))

	rec, err := newTestCodec().Read(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, rec.Title)
}
