package core

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// EngineConfig is the on-disk engine configuration, stored as TOML.
type EngineConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Number of frames the CPU may record ahead of the GPU. Clamped to [2,3].
	FramesInFlight uint8 `toml:"frames_in_flight"`
	VSync          bool  `toml:"vsync"`
	// Spin drives the time based rotation the scene shaders apply on the GPU.
	Spin bool `toml:"spin"`
}

type AssetsConfig struct {
	Dir        string `toml:"dir"`
	ShaderDir  string `toml:"shader_dir"`
	WatchFiles bool   `toml:"watch_files"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Window: WindowConfig{
			Title:  "Lantern",
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			VSync:          true,
			Spin:           true,
		},
		Assets: AssetsConfig{
			Dir:        "assets",
			ShaderDir:  "assets/shaders",
			WatchFiles: false,
		},
		Log: LogConfig{Level: "debug"},
	}
}

// LoadConfig reads a TOML engine configuration. A missing file is not an
// error; the defaults are returned instead.
func LoadConfig(path string) (*EngineConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			LogInfo("no config file at '%s', using defaults", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %q", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}

	if cfg.Renderer.FramesInFlight < 2 {
		cfg.Renderer.FramesInFlight = 2
	}
	if cfg.Renderer.FramesInFlight > 3 {
		cfg.Renderer.FramesInFlight = 3
	}

	SetLogLevel(cfg.LogLevel())
	return cfg, nil
}

// LogLevel maps the configured level string onto the logger levels.
func (c *EngineConfig) LogLevel() LogLevel {
	switch c.Log.Level {
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return DebugLevel
	}
}
