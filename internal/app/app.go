// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/pulsarviz/pulsar/internal/adapter/eventbus"
	"github.com/pulsarviz/pulsar/internal/adapter/repository/memory"
	"github.com/pulsarviz/pulsar/internal/adapter/source/mic"
	"github.com/pulsarviz/pulsar/internal/adapter/source/synthetic"
	"github.com/pulsarviz/pulsar/internal/adapter/source/wavfile"
	"github.com/pulsarviz/pulsar/internal/adapter/status/console"
	"github.com/pulsarviz/pulsar/internal/adapter/status/websocket"
	surfacefyne "github.com/pulsarviz/pulsar/internal/adapter/surface/fyne"
	"github.com/pulsarviz/pulsar/internal/adapter/surface/headless"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
	"github.com/pulsarviz/pulsar/internal/ports"
	"github.com/pulsarviz/pulsar/internal/render"
	"github.com/pulsarviz/pulsar/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	config  Config
	fyneApp fyne.App

	// Infrastructure
	eventBus   ports.EventBus
	sampleRepo ports.SampleRepository
	surface    ports.RenderSurface
	window     *surfacefyne.Window

	// Status sinks
	consoleSink *console.Sink
	statusHub   *websocket.Hub

	// Services
	visualizer *service.VisualizerService
	scheduler  *service.SchedulerService
	monitor    *service.MonitorService
	governor   *service.GovernorService

	// Lifecycle management
	quit         chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
//
// The render scheduler and the performance monitor start their background
// routines inside this call; a returned application is already ticking.
func NewApplication(config Config) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		config: config,
		quit:   make(chan struct{}),
	}

	// Step 1: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: config.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("app_name", config.AppName),
		slog.String("source", config.Source),
		slog.Bool("headless", config.Headless))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create the performance sample repository
	app.sampleRepo = memory.NewSampleRepository(memory.DefaultSampleCapacity)

	// Step 4: Create status sinks; they subscribe before any service publishes
	app.consoleSink = console.NewSink(
		app.logger.With(slog.String("sink", "console")),
		app.eventBus,
	)
	if config.StatusAddr != "" {
		app.statusHub = websocket.NewHub(
			app.logger.With(slog.String("sink", "websocket")),
			app.eventBus,
			app.sampleRepo,
			config.Visualizer,
		)
		app.statusHub.Listen(config.StatusAddr)
	}

	// Step 5: Create the render surface
	if config.Headless {
		app.surface = headless.NewSurface(config.WindowWidth, config.WindowHeight)
	} else {
		if config.TestFyneApp != nil {
			app.fyneApp = config.TestFyneApp
		} else {
			app.fyneApp = fyneapp.NewWithID(config.AppID)
		}
		app.window = surfacefyne.NewWindow(app.fyneApp, config.AppName, config.WindowWidth, config.WindowHeight)
		app.window.SetOnClosed(app.Stop)
		app.surface = app.window.Surface()
	}

	// Step 6: Create the visualizer state service
	visualizer, err := service.NewVisualizerService(
		app.logger.With(slog.String("service", "visualizer")),
		app.eventBus,
		config.Visualizer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create visualizer service: %w", err)
	}
	app.visualizer = visualizer

	// Step 7: Create the radial renderer and the render scheduler
	app.scheduler = service.NewSchedulerService(
		app.logger.With(slog.String("service", "scheduler")),
		app.visualizer,
		render.NewRadialRenderer(app.surface),
		config.Targets,
	)

	// Step 8: Create the performance monitor
	app.monitor = service.NewMonitorService(
		app.logger.With(slog.String("service", "monitor")),
		app.scheduler,
		app.sampleRepo,
		app.eventBus,
		config.Targets,
		config.MonitorInterval,
		service.RuntimeMemoryProbe,
	)

	// Step 9: Create the performance governor
	app.governor = service.NewGovernorService(
		app.logger.With(slog.String("service", "governor")),
		app.visualizer,
		app.sampleRepo,
		app.eventBus,
		config.Targets,
	)

	// Step 10: Connect the configured frequency source. Acquisition failure
	// is not fatal: the pipeline keeps running and renders the error state
	// with the failure reason.
	source, err := buildSource(app.logger, config)
	if err != nil {
		app.logger.Warn("frequency source unavailable",
			slog.String("source", config.Source),
			slog.Any("error", err))
		app.visualizer.Fail(err.Error())
	} else if source != nil {
		if err := app.visualizer.Connect(context.Background(), source); err != nil {
			app.logger.Warn("failed to connect frequency source",
				slog.String("source", source.Name()),
				slog.Any("error", err))
		}
	}

	return app, nil
}

// buildSource constructs the frequency source selected by the config.
// SourceNone yields a nil source and the visualizer stays idle.
func buildSource(log *slog.Logger, config Config) (ports.FrequencySource, error) {
	sourceCfg := ports.SourceConfig{
		TransformSize: config.Visualizer.TransformSize,
		SampleRate:    config.SampleRate,
		Device:        config.Device,
		Path:          config.WavPath,
	}

	switch config.Source {
	case SourceNone:
		return nil, nil
	case SourceSynthetic:
		return synthetic.NewGenerator(sourceCfg), nil
	case SourceMic:
		capture, err := mic.NewCapture(log.With(slog.String("source", "mic")), sourceCfg)
		if err != nil {
			return nil, err
		}
		return capture, nil
	case SourceWav:
		reader, err := wavfile.NewReader(log.With(slog.String("source", "wavfile")), sourceCfg)
		if err != nil {
			return nil, err
		}
		return reader, nil
	default:
		return nil, domain.NewValidationError("Source", config.Source, "unknown source kind")
	}
}

// Run starts the application and blocks until Stop is called or the window
// closes. This is called from main.go after the application is created.
func (a *Application) Run() {
	a.logger.Info("Pulsar visualizer started")

	if a.window != nil {
		// Show and run UI (blocks until the window is closed)
		a.window.ShowAndRun()
		return
	}

	<-a.quit
}

// Stop ends Run. Safe to call from any goroutine and more than once.
func (a *Application) Stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
		if a.fyneApp != nil {
			a.fyneApp.Quit()
		}
	})
}

// Shutdown gracefully shuts down the application.
// This should be called via deferring in main.go. Repeat calls are no-ops.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *Application) shutdown() {
	a.logger.Info("shutting down application")

	// Producers stop before consumers: the render tick first, then the
	// sampler, then the governor, then the source feeding them all.
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown render scheduler", slog.Any("error", err))
		}
	}

	if a.monitor != nil {
		if err := a.monitor.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown performance monitor", slog.Any("error", err))
		}
	}

	if a.governor != nil {
		if err := a.governor.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown performance governor", slog.Any("error", err))
		}
	}

	if a.visualizer != nil {
		if err := a.visualizer.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown visualizer service", slog.Any("error", err))
		}
	}

	// Status sinks detach from the bus before it closes
	if a.statusHub != nil {
		if err := a.statusHub.Close(); err != nil {
			a.logger.Warn("failed to close status hub", slog.Any("error", err))
		}
	}

	if a.consoleSink != nil {
		if err := a.consoleSink.Close(); err != nil {
			a.logger.Warn("failed to close console sink", slog.Any("error", err))
		}
	}

	if a.surface != nil {
		if err := a.surface.Close(); err != nil {
			a.logger.Warn("failed to close render surface", slog.Any("error", err))
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("failed to close event bus", slog.Any("error", err))
		}
	}

	a.logger.Info("application shutdown complete")
}

// Visualizer returns the visualization state service.
func (a *Application) Visualizer() *service.VisualizerService {
	return a.visualizer
}

// Scheduler returns the render scheduler.
func (a *Application) Scheduler() *service.SchedulerService {
	return a.scheduler
}

// Monitor returns the performance monitor.
func (a *Application) Monitor() *service.MonitorService {
	return a.monitor
}

// Governor returns the performance governor.
func (a *Application) Governor() *service.GovernorService {
	return a.governor
}

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Surface returns the active render surface.
func (a *Application) Surface() ports.RenderSurface {
	return a.surface
}
