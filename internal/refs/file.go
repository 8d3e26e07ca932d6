package refs

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads references from a YAML list exported by the
// bibliography manager.
type FileSource struct {
	Path string
}

type fileReference struct {
	ID      string `yaml:"id"`
	Year    string `yaml:"year"`
	Authors string `yaml:"authors"`
	Title   string `yaml:"title"`
	Outlet  string `yaml:"outlet"`
	Volume  string `yaml:"volume"`
	Issue   string `yaml:"issue"`
	Pages   string `yaml:"pages"`
}

func (s FileSource) References(ctx context.Context) ([]Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read references: %w", err)
	}
	var rows []fileReference
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse references %s: %w", s.Path, err)
	}
	out := make([]Reference, len(rows))
	for i, r := range rows {
		out[i] = Reference(r)
	}
	return out, nil
}
