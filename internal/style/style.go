// Package style filters features by their tags before they are written.
// A style file holds one optional filter per geometry kind.
package style

import (
	"fmt"
	"os"

	"github.com/paulmach/osm"
	"gopkg.in/yaml.v3"
)

// Kind is the geometry kind a filter applies to
type Kind int

const (
	Points Kind = iota
	Lines
	Polygons
)

// Config is the style file layout
type Config struct {
	Points   *FilterConfig `yaml:"points,omitempty"`
	Lines    *FilterConfig `yaml:"lines,omitempty"`
	Polygons *FilterConfig `yaml:"polygons,omitempty"` // way polygons and areas
}

// FilterConfig defines filtering rules for a geometry kind
type FilterConfig struct {
	// Include keeps only features with one of these key/values;
	// an empty value list or "*" accepts any value
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude drops features with one of these key/values, after Include
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny drops features that have none of these keys
	RequireAny []string `yaml:"require_any,omitempty"`
}

// LoadConfig loads a style configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}

	return &cfg, nil
}

// Filters holds the compiled filter for each kind
type Filters struct {
	byKind [3]*Filter
}

// NewFilters compiles cfg; a nil cfg accepts everything
func NewFilters(cfg *Config) *Filters {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Filters{byKind: [3]*Filter{
		NewFilter(cfg.Points),
		NewFilter(cfg.Lines),
		NewFilter(cfg.Polygons),
	}}
}

// Match reports whether a feature of kind with tags should be written
func (fs *Filters) Match(kind Kind, tags osm.Tags) bool {
	if fs == nil {
		return true
	}
	return fs.byKind[kind].Match(tags)
}

// Filter checks tags against one FilterConfig
type Filter struct {
	cfg *FilterConfig
}

// NewFilter creates a filter from configuration
func NewFilter(cfg *FilterConfig) *Filter {
	if cfg == nil {
		cfg = &FilterConfig{}
	}
	return &Filter{cfg: cfg}
}

func valueMatches(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, allowed := range values {
		if allowed == v || allowed == "*" {
			return true
		}
	}
	return false
}

// Match returns true if the feature should be included
func (f *Filter) Match(tags osm.Tags) bool {
	if !f.HasFilter() {
		return true
	}

	if len(f.cfg.RequireAny) > 0 {
		found := false
		for _, key := range f.cfg.RequireAny {
			if tags.HasTag(key) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.cfg.Include) > 0 {
		matched := false
		for _, tag := range tags {
			if values, ok := f.cfg.Include[tag.Key]; ok && valueMatches(values, tag.Value) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, tag := range tags {
		if values, ok := f.cfg.Exclude[tag.Key]; ok && valueMatches(values, tag.Value) {
			return false
		}
	}

	return true
}

// HasFilter returns true if filtering is enabled
func (f *Filter) HasFilter() bool {
	if f == nil || f.cfg == nil {
		return false
	}
	return len(f.cfg.Include) > 0 || len(f.cfg.Exclude) > 0 || len(f.cfg.RequireAny) > 0
}
