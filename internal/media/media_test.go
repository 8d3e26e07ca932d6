package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"/a/b.jpg":     KindPhoto,
		"/a/b.JPEG":    KindPhoto,
		"/a/b.MOV":     KindVideo,
		"clip.m2ts":    KindVideo,
		"clip.ogv":     KindVideo,
		"/a/b.png":     KindUnsupported,
		"/a/b.txt":     KindUnsupported,
		"/a/jpg":       KindUnsupported,
	}
	for in, expect := range cases {
		if got := Classify(in); got != expect {
			t.Fatalf("classify %q => %s, expected %s", in, got, expect)
		}
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/v/clip.01.MP4"); got != "/v/clip.01.txt" {
		t.Fatalf("unexpected sidecar path: %s", got)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	files := []string{"a.jpg", "sub/b.MOV", "sub/notes.txt", ".hidden/c.jpg", "sub/deeper/d.jpeg"}
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var got []string
	for path, err := range NewLibrary(root).Discover() {
		if err != nil {
			t.Fatalf("walk error: %v", err)
		}
		rel, _ := filepath.Rel(root, path)
		got = append(got, filepath.ToSlash(rel))
	}
	expect := []string{"a.jpg", "sub/b.MOV", "sub/deeper/d.jpeg"}
	if len(got) != len(expect) {
		t.Fatalf("expected %v got %v", expect, got)
	}
	for i := range got {
		if got[i] != expect[i] {
			t.Fatalf("entry %d expected %q got %q", i, expect[i], got[i])
		}
	}
}

func TestDiscoverStopsEarly(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if err := os.WriteFile(filepath.Join(root, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	n := 0
	for range Discover(root) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected one yield, got %d", n)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Format != "png" || info.Width != 4 || info.Height != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}

	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Probe(bad); err == nil {
		t.Fatalf("expected error for invalid image")
	}
}

func TestImportTimestamp(t *testing.T) {
	if _, err := ImportTimestamp(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
	if _, err := ImportTimestamp(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
