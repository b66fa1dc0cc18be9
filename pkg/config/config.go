package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the inspector binaries.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Server  ServerConfig  `yaml:"server"`
	Archive ArchiveConfig `yaml:"archive"`
	Log     LogConfig     `yaml:"log"`
}

// RenderConfig controls the demo renderer.
type RenderConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	SamplesPerPixel int    `yaml:"samples_per_pixel"`
	MaxDepth        int    `yaml:"max_depth"`
	TileSize        int    `yaml:"tile_size"`
	Workers         int    `yaml:"workers"`
	Scene           string `yaml:"scene"`
	MeshPath        string `yaml:"mesh_path"`
	OutputDir       string `yaml:"output_dir"`

	// SubdivisionBudget caps the total number of heatmap tree nodes.
	SubdivisionBudget int64 `yaml:"subdivision_budget"`
}

// ServerConfig holds the listen addresses for the two servers.
type ServerConfig struct {
	// ListenAddr is the TCP address for the binary inspection protocol.
	ListenAddr string `yaml:"listen_addr"`
	// HTTPAddr is the address for the diagnostics and websocket endpoints.
	HTTPAddr string `yaml:"http_addr"`
}

// ArchiveConfig controls the pixel capture archive.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file or flags are given.
func Default() Config {
	return Config{
		Render: RenderConfig{
			Width:             256,
			Height:            256,
			SamplesPerPixel:   32,
			MaxDepth:          40,
			TileSize:          64,
			Workers:           runtime.NumCPU(),
			Scene:             "cornell",
			OutputDir:         "output",
			SubdivisionBudget: 1 << 23,
		},
		Server: ServerConfig{
			ListenAddr: ":50013",
			HTTPAddr:   ":8080",
		},
		Archive: ArchiveConfig{
			Path: "archive",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file.
// Fields not set in the file keep their zero values; call Resolve afterwards.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Width           int
	Height          int
	SamplesPerPixel int
	MaxDepth        int
	Workers         int
	Scene           string
	MeshPath        string
	OutputDir       string
	ListenAddr      string
	HTTPAddr        string
	ArchivePath     string
	LogLevel        string
}

// Resolve applies flag overrides and fills remaining zero values with
// defaults. Precedence is flag > file > default.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override the config file
	if flags.Width > 0 {
		c.Render.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Render.Height = flags.Height
	}
	if flags.SamplesPerPixel > 0 {
		c.Render.SamplesPerPixel = flags.SamplesPerPixel
	}
	if flags.MaxDepth > 0 {
		c.Render.MaxDepth = flags.MaxDepth
	}
	if flags.Workers > 0 {
		c.Render.Workers = flags.Workers
	}
	if flags.Scene != "" {
		c.Render.Scene = flags.Scene
	}
	if flags.MeshPath != "" {
		c.Render.MeshPath = flags.MeshPath
	}
	if flags.OutputDir != "" {
		c.Render.OutputDir = flags.OutputDir
	}
	if flags.ListenAddr != "" {
		c.Server.ListenAddr = flags.ListenAddr
	}
	if flags.HTTPAddr != "" {
		c.Server.HTTPAddr = flags.HTTPAddr
	}
	// passing an archive path on the command line turns the archive on
	if flags.ArchivePath != "" {
		c.Archive.Enabled = true
		c.Archive.Path = flags.ArchivePath
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}

	// fill whatever is still unset with defaults
	def := Default()
	if c.Render.Width <= 0 {
		c.Render.Width = def.Render.Width
	}
	if c.Render.Height <= 0 {
		c.Render.Height = def.Render.Height
	}
	if c.Render.SamplesPerPixel <= 0 {
		c.Render.SamplesPerPixel = def.Render.SamplesPerPixel
	}
	if c.Render.MaxDepth <= 0 {
		c.Render.MaxDepth = def.Render.MaxDepth
	}
	if c.Render.TileSize <= 0 {
		c.Render.TileSize = def.Render.TileSize
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = def.Render.Workers
	}
	if c.Render.Scene == "" {
		c.Render.Scene = def.Render.Scene
	}
	if c.Render.OutputDir == "" {
		c.Render.OutputDir = def.Render.OutputDir
	}
	if c.Render.SubdivisionBudget <= 0 {
		c.Render.SubdivisionBudget = def.Render.SubdivisionBudget
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = def.Server.ListenAddr
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = def.Server.HTTPAddr
	}
	if c.Archive.Path == "" {
		c.Archive.Path = def.Archive.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
