// Package metadata reads catalog fields from assets and writes them back:
// IPTC and EXIF for JPEG photos, a YAML sidecar for videos.
package metadata

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/fsutil"
	"github.com/cebimar/veliger/internal/media"
)

// WriteError reports a failed write-back. Nothing was changed on disk.
// Steps after the file is replaced are reported in WriteResult instead.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("metadata: write %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadOptions tune a read.
type ReadOptions struct {
	Charset Charset
}

// WriteResult describes a completed write-back.
type WriteResult struct {
	Path    string      `json:"path"`
	Kind    string      `json:"kind"`
	Sidecar string      `json:"sidecar,omitempty"`
	GPS     StepOutcome `json:"gps"`
	Date    StepOutcome `json:"date"`
	Touch   StepOutcome `json:"touch"`
}

// Observer receives codec outcomes, typically for metrics.
type Observer interface {
	ObserveRead(kind string, degraded bool)
	ObserveWrite(kind string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRead(string, bool)   {}
func (nopObserver) ObserveWrite(string, error) {}

type Config struct {
	Logger   *zap.Logger
	Observer Observer
	Clock    func() time.Time
}

// Codec converts between assets and entry records.
type Codec struct {
	logger   *zap.Logger
	observer Observer
	clock    func() time.Time
	chtimes  func(path string, t time.Time) error
}

func NewCodec(cfg Config) *Codec {
	c := &Codec{logger: cfg.Logger, observer: cfg.Observer, clock: cfg.Clock, chtimes: fsutil.Touch}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// Read builds the entry record for path. Unreadable or missing metadata
// degrades to empty fields and is only logged; the returned error is set
// for unsupported files and files that cannot be stat'ed.
func (c *Codec) Read(path string, opts ReadOptions) (catalog.Record, error) {
	kind := media.Classify(path)
	if kind == media.KindUnsupported {
		return catalog.Record{}, fmt.Errorf("%w: %s", media.ErrUnsupported, path)
	}
	ts, err := media.ImportTimestamp(path)
	if err != nil {
		return catalog.Record{}, err
	}
	rec := catalog.Record{Path: path, Timestamp: ts}

	var readErr error
	switch kind {
	case media.KindPhoto:
		readErr = c.readPhoto(path, &rec, opts)
	case media.KindVideo:
		_, readErr = readSidecar(media.SidecarPath(path), &rec)
	}
	if readErr != nil {
		c.logger.Warn("metadata unreadable, using defaults",
			zap.String("path", path), zap.String("kind", kind.String()), zap.Error(readErr))
		rec = catalog.Record{Path: path, Timestamp: ts}
	}
	c.observer.ObserveRead(kind.String(), readErr != nil)
	return rec.Normalized(), nil
}

func (c *Codec) readPhoto(path string, rec *catalog.Record, opts ReadOptions) error {
	if _, err := media.Probe(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sl, err := parseJPEG(data)
	if err != nil {
		return err
	}
	ds, err := readIPTC(sl)
	if err != nil {
		return fmt.Errorf("iptc: %w", err)
	}
	if !decodeRecordIPTC(ds, opts.Charset).apply(rec) {
		c.logger.Debug("no catalog data in iptc", zap.String("path", path), zap.Int("datasets", len(ds)))
	}
	bin, err := readEXIF(sl)
	if err != nil {
		c.logger.Debug("no exif", zap.String("path", path), zap.Error(err))
		return nil
	}
	rec.Latitude, rec.Longitude, rec.Date = bin.Latitude, bin.Longitude, bin.Date
	return nil
}

// Write stores rec into the asset at rec.Path and touches its modification
// time. The file is replaced in one rename, so a failed write leaves it as it
// was.
func (c *Codec) Write(rec catalog.Record) (WriteResult, error) {
	kind := media.Classify(rec.Path)
	res := WriteResult{Path: rec.Path, Kind: kind.String()}
	var err error
	switch kind {
	case media.KindPhoto:
		err = c.writePhoto(rec, &res)
	case media.KindVideo:
		err = c.writeVideo(rec, &res)
	default:
		err = &WriteError{Path: rec.Path, Op: "classify", Err: media.ErrUnsupported}
	}
	c.observer.ObserveWrite(kind.String(), err)
	if err != nil {
		c.logger.Error("metadata write failed", zap.String("path", rec.Path), zap.Error(err))
		return res, err
	}
	c.logger.Debug("metadata written", zap.String("path", rec.Path),
		zap.String("gps", res.GPS.Action), zap.String("date", res.Date.Action))
	return res, nil
}

func (c *Codec) writePhoto(rec catalog.Record, res *WriteResult) error {
	fail := func(op string, err error) error { return &WriteError{Path: rec.Path, Op: op, Err: err} }

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return fail("read", err)
	}
	sl, err := parseJPEG(data)
	if err != nil {
		return fail("parse", err)
	}
	sl, err = withIPTC(sl, encodeRecordIPTC(rec))
	if err != nil {
		return fail("iptc", err)
	}
	res.GPS, res.Date, err = applyEXIF(sl, rec)
	if err != nil {
		return fail("exif", err)
	}
	if res.GPS.Action == ActionSkipped {
		c.logger.Debug("gps delete skipped", zap.String("path", rec.Path), zap.String("reason", res.GPS.Reason))
	}
	if res.Date.Action == ActionSkipped {
		c.logger.Warn("capture date not written", zap.String("path", rec.Path), zap.String("reason", res.Date.Reason))
	}
	out, err := encodeJPEG(sl)
	if err != nil {
		return fail("encode", err)
	}
	if err := fsutil.WriteFileAtomic(rec.Path, out, 0o644); err != nil {
		return fail("replace", err)
	}
	res.Touch = c.touch(rec.Path)
	return nil
}

// touch runs after the asset is already replaced, so a failure is an outcome
// of the write rather than an error.
func (c *Codec) touch(path string) StepOutcome {
	if err := c.chtimes(path, c.clock()); err != nil {
		c.logger.Warn("modification time not updated", zap.String("path", path), zap.Error(err))
		return StepOutcome{Action: ActionSkipped, Reason: err.Error()}
	}
	return StepOutcome{Action: ActionWritten}
}

func (c *Codec) writeVideo(rec catalog.Record, res *WriteResult) error {
	if _, err := os.Stat(rec.Path); err != nil {
		return &WriteError{Path: rec.Path, Op: "stat", Err: err}
	}
	res.Sidecar = media.SidecarPath(rec.Path)
	res.GPS = StepOutcome{Action: ActionSkipped, Reason: "stored in sidecar"}
	res.Date = StepOutcome{Action: ActionSkipped, Reason: "stored in sidecar"}
	if err := writeSidecar(res.Sidecar, rec); err != nil {
		return &WriteError{Path: rec.Path, Op: "sidecar", Err: err}
	}
	res.Touch = c.touch(rec.Path)
	return nil
}
