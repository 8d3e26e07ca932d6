package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/fsutil"
)

var ErrUnsupported = errors.New("media: unsupported file type")
var ErrInvalidImage = errors.New("media: invalid image")

// Kind classifies an asset by extension.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPhoto
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	}
	return "unsupported"
}

var photoExts = map[string]struct{}{".jpg": {}, ".jpeg": {}}

var videoExts = map[string]struct{}{
	".avi": {}, ".mov": {}, ".mp4": {}, ".ogg": {}, ".ogv": {}, ".dv": {},
	".mpg": {}, ".mpeg": {}, ".flv": {}, ".m2ts": {}, ".wmv": {},
}

// Classify returns the kind of path, ignoring extension case.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := photoExts[ext]; ok {
		return KindPhoto
	}
	if _, ok := videoExts[ext]; ok {
		return KindVideo
	}
	return KindUnsupported
}

// SidecarPath returns the metadata sidecar of a video: the asset path with
// its extension replaced by .txt.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
}

// ImportTimestamp formats the modification time of path in record form.
func ImportTimestamp(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnsupported, path)
	}
	return info.ModTime().Format(catalog.DateLayout), nil
}

// Info describes a decoded photo.
type Info struct {
	Format string
	Width  int
	Height int
}

// Probe decodes the image header of path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, ErrInvalidImage
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Library is a directory tree of assets.
type Library struct {
	root string
}

func NewLibrary(root string) *Library {
	return &Library{root: root}
}

func (l *Library) Root() string { return l.root }

// Discover walks the tree and yields every importable asset path in lexical
// order. Walk errors are yielded with an empty path; the walk continues past
// unreadable directories.
func (l *Library) Discover() iter.Seq2[string, error] {
	return Discover(l.root)
}

// Discover walks root like Library.Discover. A root that is itself an asset
// yields just that file.
func Discover(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield("", err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if Classify(path) == KindUnsupported {
				return nil
			}
			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// IsWritable checks that the library root accepts new files.
func (l *Library) IsWritable() error {
	return fsutil.IsWritable(l.root)
}
