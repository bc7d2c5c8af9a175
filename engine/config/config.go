package config

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	MiB = 1 << 20

	DefaultChunkSize      = 256 * MiB
	DefaultMinStagingSize = 16 * MiB
)

// Config is the engine configuration, usually decoded from vesta.toml.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Memory   MemoryConfig   `toml:"memory"`
	Assets   AssetsConfig   `toml:"assets"`
	Jobs     JobsConfig     `toml:"jobs"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Validation enables the Khronos validation layer and the debug callback.
	Validation bool `toml:"validation"`
	// Depth adds a depth attachment to the main render pass.
	Depth bool `toml:"depth"`
	// PreferVSync forces FIFO presentation.
	PreferVSync bool       `toml:"prefer_vsync"`
	ClearColor  [4]float32 `toml:"clear_color"`
}

type MemoryConfig struct {
	// ChunkSize is the size of each coarse device allocation a pool grows by.
	ChunkSize uint64 `toml:"chunk_size"`
	// MinStagingSize is the smallest staging buffer ever created.
	MinStagingSize uint64 `toml:"min_staging_size"`
	// CoalesceFreeRegions merges adjacent free regions on free.
	CoalesceFreeRegions bool `toml:"coalesce_free_regions"`
}

type AssetsConfig struct {
	Root      string `toml:"root"`
	Shaders   string `toml:"shaders"`
	HotReload bool   `toml:"hot_reload"`
}

// JobsConfig sizes the background pool used for asset decoding.
type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Vesta",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Validation: false,
			Depth:      true,
			ClearColor: [4]float32{0.1, 0.1, 0.1, 1.0},
		},
		Memory: MemoryConfig{
			ChunkSize:      DefaultChunkSize,
			MinStagingSize: DefaultMinStagingSize,
		},
		Assets: AssetsConfig{
			Root:    "assets",
			Shaders: "assets/shaders",
		},
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 64,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file on top of the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	return cfg, nil
}

// Decode overlays TOML data on cfg and validates the result.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Memory.ChunkSize == 0 {
		return errors.New("memory.chunk_size must be non-zero")
	}
	if c.Memory.MinStagingSize == 0 {
		return errors.New("memory.min_staging_size must be non-zero")
	}
	if c.Assets.Shaders == "" {
		return errors.New("assets.shaders must be set")
	}
	if c.Jobs.Workers < 1 {
		return errors.Newf("jobs.workers must be at least 1, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize < 0 {
		return errors.Newf("jobs.queue_size must not be negative, got %d", c.Jobs.QueueSize)
	}
	return nil
}
