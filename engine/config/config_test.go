package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.EqualValues(t, 256*MiB, cfg.Memory.ChunkSize)
	assert.EqualValues(t, 16*MiB, cfg.Memory.MinStagingSize)
	assert.False(t, cfg.Memory.CoalesceFreeRegions)
	assert.Equal(t, [4]float32{0.1, 0.1, 0.1, 1.0}, cfg.Renderer.ClearColor)
	assert.Equal(t, 2, cfg.Jobs.Workers)
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg := Default()
	err := Decode([]byte(`
[window]
title = "demo"
width = 800
height = 600

[memory]
chunk_size = 67108864
coalesce_free_regions = true

[log]
level = "debug"
`), cfg)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Window.Title)
	assert.EqualValues(t, 800, cfg.Window.Width)
	assert.EqualValues(t, 64*MiB, cfg.Memory.ChunkSize)
	assert.True(t, cfg.Memory.CoalesceFreeRegions)
	assert.EqualValues(t, 16*MiB, cfg.Memory.MinStagingSize)
	assert.Equal(t, "assets/shaders", cfg.Assets.Shaders)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "[window]\nfullscreen = true\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"zero chunk", "[memory]\nchunk_size = 0\n"},
		{"no workers", "[jobs]\nworkers = 0\n"},
		{"negative queue", "[jobs]\nqueue_size = -1\n"},
		{"bad syntax", "[window\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Decode([]byte(tt.data), Default()))
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vesta.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nvalidation = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Renderer.Validation)
	assert.True(t, cfg.Renderer.Depth)
}
