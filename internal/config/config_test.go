package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, Stdio, cfg.OutputFile)
	assert.Equal(t, "@", cfg.AttrPrefix)
	assert.Equal(t, uint32(15), cfg.Zoom)
	assert.Equal(t, "sparse_mmap_array", cfg.StoreToken())

	cfg.Nodes = "dense"
	assert.Equal(t, "dense_mmap_array", cfg.StoreToken())

	cfg.LocationStore = "sparse_mem_map"
	assert.Equal(t, "sparse_mem_map", cfg.StoreToken())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"xml input", func(c *Config) { c.InputFile = "extract.osm.bz2" }, false},
		{"missing input", func(c *Config) { c.InputFile = "" }, true},
		{"stdin", func(c *Config) { c.InputFile = "-" }, true},
		{"unknown format", func(c *Config) { c.InputFile = "data.csv" }, true},
		{"no workers", func(c *Config) { c.Workers = 0 }, true},
		{"bad nodes", func(c *Config) { c.Nodes = "medium" }, true},
		{"bad store", func(c *Config) { c.LocationStore = "fancy_store" }, true},
		{"store without path", func(c *Config) { c.LocationStore = "dense_file_array" }, true},
		{"store with path", func(c *Config) { c.LocationStore = "dense_file_array,nodes.bin" }, false},
		{"dump to store file", func(c *Config) {
			c.LocationStore = "sparse_file_array,nodes.bin"
			c.DumpFile = "./nodes.bin"
		}, true},
		{"dump next to store file", func(c *Config) {
			c.LocationStore = "dense_file_array,nodes.bin"
			c.DumpFile = "nodes.dump"
		}, false},
		{"dump over preloaded file", func(c *Config) {
			c.LocationStore = "sparse_mem_array,nodes.dump"
			c.DumpFile = "nodes.dump"
		}, false},
		{"zoom too high", func(c *Config) { c.Zoom = 31 }, true},
		{"max zoom", func(c *Config) { c.Zoom = 30 }, false},
		{"pair tiles", func(c *Config) { c.TileFormat = "xy" }, false},
		{"bad tile format", func(c *Config) { c.TileFormat = "z/x/y" }, true},
		{"negative metrics", func(c *Config) { c.MetricsInterval = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.InputFile = "planet.osm.pbf"
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmptyOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputFile = "a.osm.pbf"
	cfg.OutputFile = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Stdio, cfg.OutputFile)
}

func TestTileListValidate(t *testing.T) {
	cfg := DefaultTileListConfig()
	assert.Error(t, cfg.Validate())

	cfg.ChangeFile = "changes.osc.gz"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sparse_file_array,locations.dump", cfg.LocationStore)

	cfg.ChangeFile = "changes.osm.pbf"
	assert.Error(t, cfg.Validate())

	cfg.ChangeFile = "changes.osc"
	cfg.Zoom = 40
	assert.Error(t, cfg.Validate())
}
