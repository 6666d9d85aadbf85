package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/source"
	"github.com/wegman-software/osm2geojson-go/internal/tile"
)

const (
	// Stdio stands for stdout as output and stdin as input
	Stdio = "-"

	// DefaultZoom is the zoom level of tile lists
	DefaultZoom = 15

	// DefaultTileListStore is where tilelist finds the locations of the
	// previous export
	DefaultTileListStore = "sparse_file_array,locations.dump"
)

// Config holds the configuration of an export run
type Config struct {
	// Input settings
	InputFile string
	Progress  bool // Show a progress bar for the input file
	Workers   int  // PBF decoder goroutines

	// Output settings
	OutputFile     string // "-" for stdout
	ErrorFile      string // Optional side file listing failed objects
	AttrPrefix     string // Prefix of metadata property names
	WithID         bool   // Write a feature id
	NodesAttribute string // Property listing a way's node ids, empty for none

	// Location cache
	LocationStore string // Store token, derived from Nodes when empty
	Nodes         string // "sparse" or "dense"
	DumpFile      string // Dump the location store here after the run

	// Feature selection
	Polygons   bool   // Write matching closed ways as polygons
	WayAreas   bool   // Assemble areas from closed ways outside relations
	RulesFile  string // YAML area rule table replacing the defaults
	StyleFile  string // YAML tag filters per geometry kind
	TileFile   string // Tile list restricting the output
	TileFormat string // "zxy" triples or "xy" pairs in TileFile
	Zoom       uint32 // Zoom level of TileFile

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging, 0 disables
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFile:      Stdio,
		AttrPrefix:      feature.DefaultPrefix,
		Nodes:           "sparse",
		TileFormat:      "zxy",
		Zoom:            DefaultZoom,
		Workers:         runtime.NumCPU(),
		MetricsInterval: 30 * time.Second,
	}
}

// Dense reports whether node ids are expected to be dense
func (c *Config) Dense() bool {
	return c.Nodes == "dense"
}

// StoreToken returns the location store token to use
func (c *Config) StoreToken() string {
	if c.LocationStore != "" {
		return c.LocationStore
	}
	return locations.DefaultToken(c.Dense())
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.InputFile == Stdio {
		return fmt.Errorf("input must be a file: the export reads it twice")
	}
	if _, _, err := source.DetectFormat(c.InputFile); err != nil {
		return err
	}
	if c.OutputFile == "" {
		c.OutputFile = Stdio
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Nodes != "sparse" && c.Nodes != "dense" {
		return fmt.Errorf("nodes must be 'sparse' or 'dense', got %q", c.Nodes)
	}
	if err := locations.Check(c.StoreToken()); err != nil {
		return err
	}
	if c.DumpFile != "" && samePath(c.DumpFile, locations.BackingPath(c.StoreToken())) {
		return fmt.Errorf("dump file %s is the location store's own file, which already is a dump", c.DumpFile)
	}
	if c.Zoom > tile.MaxZoom {
		return fmt.Errorf("zoom must be between 0 and %d, got %d", tile.MaxZoom, c.Zoom)
	}
	if _, err := tile.ParseListFormat(c.TileFormat); err != nil {
		return err
	}
	if c.MetricsInterval < 0 {
		return fmt.Errorf("metrics interval must not be negative")
	}
	return nil
}

// samePath reports whether a and b name the same path; an empty b never
// matches
func samePath(a, b string) bool {
	if b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// TileListConfig holds the configuration of the tilelist command
type TileListConfig struct {
	ChangeFile    string
	LocationStore string
	Zoom          uint32
	WithZoom      bool   // Write "z x y" instead of "x y"
	OutputFile    string // "-" for stdout
}

// DefaultTileListConfig returns the tilelist defaults
func DefaultTileListConfig() *TileListConfig {
	return &TileListConfig{
		LocationStore: DefaultTileListStore,
		Zoom:          DefaultZoom,
		OutputFile:    Stdio,
	}
}

// Validate checks that the configuration is valid
func (c *TileListConfig) Validate() error {
	if c.ChangeFile == "" {
		return fmt.Errorf("change file is required")
	}
	format, _, err := source.DetectFormat(c.ChangeFile)
	if err != nil {
		return err
	}
	if format != source.FormatXML {
		return fmt.Errorf("change file must be an OsmChange XML file: %s", c.ChangeFile)
	}
	if err := locations.Check(c.LocationStore); err != nil {
		return err
	}
	if c.Zoom > tile.MaxZoom {
		return fmt.Errorf("zoom must be between 0 and %d, got %d", tile.MaxZoom, c.Zoom)
	}
	if c.OutputFile == "" {
		c.OutputFile = Stdio
	}
	return nil
}
