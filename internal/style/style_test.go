package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
)

func TestFilterMatch(t *testing.T) {
	f := NewFilter(&FilterConfig{
		Include:    map[string][]string{"amenity": nil, "shop": {"bakery", "butcher"}},
		Exclude:    map[string][]string{"access": {"private"}},
		RequireAny: []string{"name"},
	})

	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"included key", osm.Tags{{Key: "name", Value: "A"}, {Key: "amenity", Value: "cafe"}}, true},
		{"included value", osm.Tags{{Key: "name", Value: "B"}, {Key: "shop", Value: "bakery"}}, true},
		{"other value", osm.Tags{{Key: "name", Value: "C"}, {Key: "shop", Value: "florist"}}, false},
		{"missing required", osm.Tags{{Key: "amenity", Value: "cafe"}}, false},
		{"excluded", osm.Tags{{Key: "name", Value: "D"}, {Key: "amenity", Value: "cafe"}, {Key: "access", Value: "private"}}, false},
		{"no tags", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Match(tt.tags); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	var fs *Filters
	if !fs.Match(Points, nil) {
		t.Error("nil Filters should match")
	}
	if !NewFilters(nil).Match(Polygons, osm.Tags{{Key: "a", Value: "b"}}) {
		t.Error("empty config should match")
	}
	if NewFilter(nil).HasFilter() {
		t.Error("nil config should not filter")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	content := `points:
  require_any: [name]
lines:
  exclude:
    highway: [footway, path]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	fs := NewFilters(cfg)

	if fs.Match(Points, osm.Tags{{Key: "amenity", Value: "bench"}}) {
		t.Error("unnamed point should be dropped")
	}
	if fs.Match(Lines, osm.Tags{{Key: "highway", Value: "path"}}) {
		t.Error("path should be excluded")
	}
	if !fs.Match(Lines, osm.Tags{{Key: "highway", Value: "primary"}}) {
		t.Error("primary should be kept")
	}
	if !fs.Match(Polygons, osm.Tags{{Key: "highway", Value: "path"}}) {
		t.Error("polygons have no filter")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
