package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"gopkg.in/yaml.v3"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
)

// Source selection values for Config.Source.
const (
	SourceSynthetic = "synthetic"
	SourceMic       = "mic"
	SourceWav       = "wav"
	SourceNone      = "none"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// Headless disables the desktop window; frames render into an
	// in-memory surface instead
	Headless bool

	// WindowWidth and WindowHeight are the initial surface dimensions in pixels
	WindowWidth  int
	WindowHeight int

	// Source selects the frequency source: synthetic, mic, wav, or none
	Source string

	// WavPath is the input file for the wav source
	WavPath string

	// SampleRate is the capture/decode rate in Hz
	SampleRate int

	// Device is the capture device index (-1 for default)
	Device int

	// StatusAddr is the listen address for the WebSocket status console
	// (empty disables the endpoint)
	StatusAddr string

	// MonitorInterval is the spacing between performance samples
	MonitorInterval time.Duration

	// Visualizer is the tier-0 rendering configuration
	Visualizer domain.VisualizerConfig

	// Targets is the performance budget the governor enforces
	Targets domain.PerformanceTargets

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogFormat selects the log output format ("text" or "json")
	LogFormat string

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:           "com.pulsarviz.pulsar",
		AppName:         "Pulsar",
		Headless:        false,
		WindowWidth:     640,
		WindowHeight:    640,
		Source:          SourceSynthetic,
		SampleRate:      44100,
		Device:          -1,
		StatusAddr:      "",
		MonitorInterval: time.Second,
		Visualizer:      domain.DefaultVisualizerConfig(),
		Targets:         domain.DefaultPerformanceTargets(),
		LogLevel:        loggerCfg.Level,
		LogFormat:       loggerCfg.Format,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSynthetic, SourceMic, SourceWav, SourceNone:
	default:
		return domain.NewValidationError("Source", c.Source, "must be synthetic, mic, wav, or none")
	}
	if c.Source == SourceWav && c.WavPath == "" {
		return domain.NewValidationError("WavPath", c.WavPath, "wav source requires an input file")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return domain.NewValidationError("WindowWidth", c.WindowWidth, "window dimensions must be positive")
	}
	if c.SampleRate <= 0 {
		return domain.NewValidationError("SampleRate", c.SampleRate, "sample rate must be positive")
	}
	if c.MonitorInterval <= 0 {
		return domain.NewValidationError("MonitorInterval", c.MonitorInterval, "sample interval must be positive")
	}
	if c.Targets.TargetFPS <= 0 {
		return domain.NewValidationError("Targets.TargetFPS", c.Targets.TargetFPS, "target frame rate must be positive")
	}
	if c.Targets.MinFPS <= 0 || c.Targets.MinFPS > c.Targets.TargetFPS {
		return domain.NewValidationError("Targets.MinFPS", c.Targets.MinFPS, "minimum frame rate must be positive and at most the target")
	}
	if c.Targets.MaxCPUPercent <= 0 || c.Targets.MaxCPUPercent > 100 {
		return domain.NewValidationError("Targets.MaxCPUPercent", c.Targets.MaxCPUPercent, "CPU budget must be in (0, 100]")
	}
	if c.Targets.MaxMemoryMB <= 0 {
		return domain.NewValidationError("Targets.MaxMemoryMB", c.Targets.MaxMemoryMB, "memory budget must be positive")
	}
	if c.Targets.MonitoringWindow <= 0 {
		return domain.NewValidationError("Targets.MonitoringWindow", c.Targets.MonitoringWindow, "monitoring window must be positive")
	}

	return c.Visualizer.Validate()
}

// fileConfig is the YAML wire form of Config. Its fields are pre-filled
// from the in-memory config before unmarshalling, so keys absent from the
// file keep their current values and partial files stay valid.
type fileConfig struct {
	Window struct {
		Width    int  `yaml:"width"`
		Height   int  `yaml:"height"`
		Headless bool `yaml:"headless"`
	} `yaml:"window"`
	Source struct {
		Kind       string `yaml:"kind"`
		WavPath    string `yaml:"wav_path"`
		SampleRate int    `yaml:"sample_rate"`
		Device     int    `yaml:"device"`
	} `yaml:"source"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
	Visualizer struct {
		Segments      int     `yaml:"segments"`
		Smoothing     float64 `yaml:"smoothing"`
		TransformSize int     `yaml:"transform_size"`
		StrokeWeight  float64 `yaml:"stroke_weight"`
		RotationSpeed float64 `yaml:"rotation_speed"`
	} `yaml:"visualizer"`
	Performance struct {
		TargetFPS        float64 `yaml:"target_fps"`
		MinFPS           float64 `yaml:"min_fps"`
		MaxCPUPercent    float64 `yaml:"max_cpu_percent"`
		MaxMemoryMB      float64 `yaml:"max_memory_mb"`
		WindowSeconds    int     `yaml:"window_seconds"`
		SampleIntervalMS int     `yaml:"sample_interval_ms"`
	} `yaml:"performance"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFile merges settings from a YAML file over the receiver.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	file.Window.Width = c.WindowWidth
	file.Window.Height = c.WindowHeight
	file.Window.Headless = c.Headless
	file.Source.Kind = c.Source
	file.Source.WavPath = c.WavPath
	file.Source.SampleRate = c.SampleRate
	file.Source.Device = c.Device
	file.Status.Addr = c.StatusAddr
	file.Visualizer.Segments = c.Visualizer.SegmentCount
	file.Visualizer.Smoothing = c.Visualizer.SmoothingFactor
	file.Visualizer.TransformSize = c.Visualizer.TransformSize
	file.Visualizer.StrokeWeight = c.Visualizer.StrokeWeight
	file.Visualizer.RotationSpeed = c.Visualizer.RotationSpeed
	file.Performance.TargetFPS = c.Targets.TargetFPS
	file.Performance.MinFPS = c.Targets.MinFPS
	file.Performance.MaxCPUPercent = c.Targets.MaxCPUPercent
	file.Performance.MaxMemoryMB = c.Targets.MaxMemoryMB
	file.Performance.WindowSeconds = int(c.Targets.MonitoringWindow / time.Second)
	file.Performance.SampleIntervalMS = int(c.MonitorInterval / time.Millisecond)
	file.Log.Format = c.LogFormat

	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.WindowWidth = file.Window.Width
	c.WindowHeight = file.Window.Height
	c.Headless = file.Window.Headless
	c.Source = file.Source.Kind
	c.WavPath = file.Source.WavPath
	c.SampleRate = file.Source.SampleRate
	c.Device = file.Source.Device
	c.StatusAddr = file.Status.Addr
	c.Visualizer.SegmentCount = file.Visualizer.Segments
	c.Visualizer.SmoothingFactor = file.Visualizer.Smoothing
	c.Visualizer.TransformSize = file.Visualizer.TransformSize
	c.Visualizer.StrokeWeight = file.Visualizer.StrokeWeight
	c.Visualizer.RotationSpeed = file.Visualizer.RotationSpeed
	c.Targets.TargetFPS = file.Performance.TargetFPS
	c.Targets.MinFPS = file.Performance.MinFPS
	c.Targets.MaxCPUPercent = file.Performance.MaxCPUPercent
	c.Targets.MaxMemoryMB = file.Performance.MaxMemoryMB
	c.Targets.MonitoringWindow = time.Duration(file.Performance.WindowSeconds) * time.Second
	c.MonitorInterval = time.Duration(file.Performance.SampleIntervalMS) * time.Millisecond
	c.LogFormat = file.Log.Format

	if file.Log.Level != "" {
		level, err := logger.ParseLevel(file.Log.Level)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		c.LogLevel = level
	}

	return nil
}
