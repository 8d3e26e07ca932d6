//go:build integration

package veliger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/text/language"

	"github.com/cebimar/veliger/internal/cache"
	"github.com/cebimar/veliger/internal/config"
	"github.com/cebimar/veliger/internal/engine"
	"github.com/cebimar/veliger/internal/httpapi"
	"github.com/cebimar/veliger/internal/metadata"
	"github.com/cebimar/veliger/migrations"
)

func startMaria(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11.4",
		Env:          map[string]string{"MARIADB_ROOT_PASSWORD": "root", "MARIADB_DATABASE": "veliger", "MARIADB_USER": "veliger", "MARIADB_PASSWORD": "veliger"},
		ExposedPorts: []string{"3306/tcp"},
		WaitingFor:   wait.ForListeningPort("3306/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start mariadb: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("veliger:veliger@tcp(%s:%s)/veliger?parseTime=true&multiStatements=true", host, port.Port())
	return container, dsn
}

func writeJPEG(t *testing.T, path string) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
}

func newEngine(t *testing.T, db *sqlx.DB, codec *metadata.Codec) *engine.Engine {
	e, err := engine.New(engine.Config{
		Codec:    codec,
		Cache:    cache.New(cache.NewSQLBackend(db), nil),
		Language: language.BrazilianPortuguese,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	e.Reload(context.Background())
	return e
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()

	container, dsn := startMaria(t, ctx)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	asset := filepath.Join(t.TempDir(), "P1010001.jpg")
	writeJPEG(t, asset)

	codec := metadata.NewCodec(metadata.Config{})
	e := newEngine(t, db, codec)
	cfg := &config.Config{AuthMode: config.AuthNone, SwaggerUIPath: "/swagger", OpenAPIPath: "/openapi.yaml"}
	ts := httptest.NewServer(httpapi.NewRouter(httpapi.Options{Config: cfg, Catalog: e, Ready: cache.NewSQLBackend(db)}))
	t.Cleanup(ts.Close)

	call(t, http.MethodPost, ts.URL+"/api/records", map[string]any{"path": asset}, http.StatusCreated)
	call(t, http.MethodPatch, ts.URL+"/api/records/fields", map[string]any{"rows": []int{0}, "field": "caption", "value": "Veliger larva"}, http.StatusOK)
	call(t, http.MethodPatch, ts.URL+"/api/records/fields", map[string]any{"rows": []int{0}, "field": "latitude", "value": `S 23°49'41"`}, http.StatusOK)
	call(t, http.MethodPatch, ts.URL+"/api/records/fields", map[string]any{"rows": []int{0}, "field": "longitude", "value": `W 045°25'20"`}, http.StatusOK)
	call(t, http.MethodPatch, ts.URL+"/api/records/fields", map[string]any{"rows": []int{0}, "field": "tags", "value": "Larva, Plankton"}, http.StatusOK)
	call(t, http.MethodPost, ts.URL+"/api/commit", nil, http.StatusOK)
	call(t, http.MethodGet, ts.URL+"/readyz", nil, http.StatusOK)

	onDisk, err := codec.Read(asset, metadata.ReadOptions{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if onDisk.Caption != "Veliger larva." || onDisk.Latitude != `S 23°49'41"` || onDisk.Tags != "larva, plankton" {
		t.Fatalf("unexpected metadata on disk: %+v", onDisk)
	}

	restored := newEngine(t, db, codec)
	if got, want := restored.Entries(), e.Entries(); len(got) != 1 || got[0] != want[0] {
		t.Fatalf("restored %+v, want %+v", got, want)
	}
	if pending := restored.Pending(); len(pending) != 0 {
		t.Fatalf("expected nothing pending after commit, got %v", pending)
	}
}

func call(t *testing.T, method, url string, body any, want int) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d body %s", method, url, resp.StatusCode, string(b))
	}
}
