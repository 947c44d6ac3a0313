// Package main is the production entry point for the Pulsar visualizer.
//
// Pulsar renders a rotating radial spectrum from a live frequency source
// with clean architecture:
// - Event-driven communication (no callbacks)
// - Dependency injection for testability
// - Ports and adapters around the signal pipeline
// - Tiered performance governing under load
//
// Build:
//
//	go build -o build/pulsar ./cmd
//
// Run:
//
//	./build/pulsar --source synthetic
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsarviz/pulsar/internal/app"
	"github.com/pulsarviz/pulsar/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions collects flag values before they are merged into the
// application config. Merging happens after the optional config file
// loads, so flags the user set explicitly win over file settings.
type cliOptions struct {
	configPath string

	headless bool
	width    int
	height   int

	source     string
	wavPath    string
	sampleRate int
	device     int

	statusAddr string

	segments      int
	smoothing     float64
	transformSize int
	strokeWeight  float64
	rotationSpeed float64

	targetFPS      float64
	minFPS         float64
	maxCPU         float64
	maxMemoryMB    float64
	monitorWindow  time.Duration
	sampleInterval time.Duration

	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	defaults := app.DefaultConfig()

	var opts cliOptions

	rootCmd := &cobra.Command{
		Use:   "pulsar",
		Short: "Real-time radial audio visualizer",
		Long: "Pulsar renders a rotating radial spectrum from a microphone, a WAV file,\n" +
			"or a synthetic generator, and steps rendering fidelity down and back up\n" +
			"automatically when the host cannot keep the frame rate.",
		Version:       app.GetVersionInfo().FullString(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runVisualizer(config)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.Flags()

	// Configuration file
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")

	// Window configuration
	flags.BoolVar(&opts.headless, "headless", defaults.Headless, "Run without a window, rendering into memory")
	flags.IntVar(&opts.width, "width", defaults.WindowWidth, "Initial window width in pixels")
	flags.IntVar(&opts.height, "height", defaults.WindowHeight, "Initial window height in pixels")

	// Source configuration
	flags.StringVar(&opts.source, "source", defaults.Source, "Frequency source: synthetic, mic, wav, or none")
	flags.StringVar(&opts.wavPath, "wav", defaults.WavPath, "Input file for the wav source")
	flags.IntVar(&opts.sampleRate, "sample-rate", defaults.SampleRate, "Capture/decode rate in Hz")
	flags.IntVar(&opts.device, "device", defaults.Device, "Capture device index (-1 for default)")

	// Status console
	flags.StringVar(&opts.statusAddr, "status-addr", defaults.StatusAddr, "Listen address for the WebSocket status console (empty disables it)")

	// Visualizer configuration (tier-0 baseline)
	flags.IntVar(&opts.segments, "segments", defaults.Visualizer.SegmentCount, "Number of rays rendered around the circle")
	flags.Float64Var(&opts.smoothing, "smoothing", defaults.Visualizer.SmoothingFactor, "Amplitude smoothing factor in [0.0, 1.0)")
	flags.IntVar(&opts.transformSize, "transform-size", defaults.Visualizer.TransformSize, "Frequency transform length (power of two)")
	flags.Float64Var(&opts.strokeWeight, "stroke-weight", defaults.Visualizer.StrokeWeight, "Base line weight for rays")
	flags.Float64Var(&opts.rotationSpeed, "rotation-speed", defaults.Visualizer.RotationSpeed, "Rotation increment per tick in radians")

	// Performance budget
	flags.Float64Var(&opts.targetFPS, "target-fps", defaults.Targets.TargetFPS, "Frame rate the scheduler aims for")
	flags.Float64Var(&opts.minFPS, "min-fps", defaults.Targets.MinFPS, "Lowest average frame rate considered healthy")
	flags.Float64Var(&opts.maxCPU, "max-cpu", defaults.Targets.MaxCPUPercent, "Highest estimated CPU percentage considered healthy")
	flags.Float64Var(&opts.maxMemoryMB, "max-memory-mb", defaults.Targets.MaxMemoryMB, "Highest memory footprint in MB considered healthy")
	flags.DurationVar(&opts.monitorWindow, "monitor-window", defaults.Targets.MonitoringWindow, "Age bound of the rolling sample window")
	flags.DurationVar(&opts.sampleInterval, "sample-interval", defaults.MonitorInterval, "Spacing between performance samples")

	// Logging
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	flags.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log output format: text or json")

	return rootCmd
}

// buildConfig layers the settings: defaults first, then the config file,
// then any flags the user set explicitly.
func buildConfig(cmd *cobra.Command, opts cliOptions) (app.Config, error) {
	config := app.DefaultConfig()

	if opts.configPath != "" {
		if err := config.LoadFile(opts.configPath); err != nil {
			return app.Config{}, err
		}
	}

	flags := cmd.Flags()

	if flags.Changed("headless") {
		config.Headless = opts.headless
	}
	if flags.Changed("width") {
		config.WindowWidth = opts.width
	}
	if flags.Changed("height") {
		config.WindowHeight = opts.height
	}
	if flags.Changed("source") {
		config.Source = opts.source
	}
	if flags.Changed("wav") {
		config.WavPath = opts.wavPath
	}
	if flags.Changed("sample-rate") {
		config.SampleRate = opts.sampleRate
	}
	if flags.Changed("device") {
		config.Device = opts.device
	}
	if flags.Changed("status-addr") {
		config.StatusAddr = opts.statusAddr
	}
	if flags.Changed("segments") {
		config.Visualizer.SegmentCount = opts.segments
	}
	if flags.Changed("smoothing") {
		config.Visualizer.SmoothingFactor = opts.smoothing
	}
	if flags.Changed("transform-size") {
		config.Visualizer.TransformSize = opts.transformSize
	}
	if flags.Changed("stroke-weight") {
		config.Visualizer.StrokeWeight = opts.strokeWeight
	}
	if flags.Changed("rotation-speed") {
		config.Visualizer.RotationSpeed = opts.rotationSpeed
	}
	if flags.Changed("target-fps") {
		config.Targets.TargetFPS = opts.targetFPS
	}
	if flags.Changed("min-fps") {
		config.Targets.MinFPS = opts.minFPS
	}
	if flags.Changed("max-cpu") {
		config.Targets.MaxCPUPercent = opts.maxCPU
	}
	if flags.Changed("max-memory-mb") {
		config.Targets.MaxMemoryMB = opts.maxMemoryMB
	}
	if flags.Changed("monitor-window") {
		config.Targets.MonitoringWindow = opts.monitorWindow
	}
	if flags.Changed("sample-interval") {
		config.MonitorInterval = opts.sampleInterval
	}
	if flags.Changed("log-level") {
		level, err := logger.ParseLevel(opts.logLevel)
		if err != nil {
			return app.Config{}, err
		}
		config.LogLevel = level
	}
	if flags.Changed("log-format") {
		config.LogFormat = opts.logFormat
	}

	return config, nil
}

// runVisualizer creates the application and blocks until the window closes
// or a termination signal arrives.
func runVisualizer(config app.Config) error {
	application, err := app.NewApplication(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Ensure a graceful shutdown
	defer application.Shutdown()

	// Translate SIGINT and SIGTERM into a stop request
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		<-signals
		application.Stop()
	}()

	// Run application (blocks until stopped or the window closed)
	application.Run()

	return nil
}
