package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/fsutil"
)

// sidecar is the on-disk record written next to a video.
type sidecar struct {
	Title       string   `yaml:"title"`
	Author      string   `yaml:"author"`
	City        string   `yaml:"city"`
	Sublocation string   `yaml:"sublocation"`
	State       string   `yaml:"state"`
	Country     string   `yaml:"country"`
	Taxon       string   `yaml:"taxon"`
	Rights      string   `yaml:"rights"`
	Caption     string   `yaml:"caption"`
	Size        string   `yaml:"size"`
	Source      string   `yaml:"source"`
	Date        string   `yaml:"date"`
	Latitude    string   `yaml:"latitude"`
	Longitude   string   `yaml:"longitude"`
	References  string   `yaml:"references"`
	Tags        []string `yaml:"tags"`
}

var sidecarKeys = map[string]catalog.Field{
	"title":       catalog.FieldTitle,
	"author":      catalog.FieldAuthor,
	"city":        catalog.FieldCity,
	"sublocation": catalog.FieldSublocation,
	"state":       catalog.FieldState,
	"country":     catalog.FieldCountry,
	"taxon":       catalog.FieldTaxon,
	"rights":      catalog.FieldRights,
	"caption":     catalog.FieldCaption,
	"size":        catalog.FieldSize,
	"source":      catalog.FieldSource,
	"date":        catalog.FieldDate,
	"latitude":    catalog.FieldLatitude,
	"longitude":   catalog.FieldLongitude,
	"references":  catalog.FieldReferences,
}

func sidecarFromRecord(rec catalog.Record) sidecar {
	return sidecar{
		Title:       rec.Title,
		Author:      rec.Author,
		City:        rec.City,
		Sublocation: rec.Sublocation,
		State:       rec.State,
		Country:     rec.Country,
		Taxon:       rec.Taxon,
		Rights:      rec.Rights,
		Caption:     rec.Caption,
		Size:        rec.Size,
		Source:      rec.Source,
		Date:        rec.Date,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		References:  rec.References,
		Tags:        rec.TagList(),
	}
}

// readSidecar overlays the keys present in the sidecar at path onto rec. A
// missing sidecar leaves rec untouched and is not an error.
func readSidecar(path string, rec *catalog.Record) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, fmt.Errorf("sidecar %s: %w", path, err)
	}
	for key, value := range raw {
		if key == "tags" {
			rec.Tags = catalog.TagText(stringList(value))
			continue
		}
		f, ok := sidecarKeys[key]
		if !ok || value == nil {
			continue
		}
		_ = rec.Set(f, fmt.Sprint(value))
	}
	return true, nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}

func writeSidecar(path string, rec catalog.Record) error {
	data, err := yaml.Marshal(sidecarFromRecord(rec))
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
