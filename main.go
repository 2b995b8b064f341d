package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/videoswitch/cmd"
	"github.com/smazurov/videoswitch/internal/api"
	"github.com/smazurov/videoswitch/internal/config"
	"github.com/smazurov/videoswitch/internal/devices"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/metrics"
	"github.com/smazurov/videoswitch/internal/processor"
	"github.com/smazurov/videoswitch/internal/switcher"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Settings file (hot-reloaded)
	SettingsFile string `help:"Runtime settings file" default:"settings.toml" toml:"settings.file" env:"SETTINGS_FILE"`

	// Capture settings
	DevDir         string `help:"Directory scanned for V4L2 device nodes" default:"/dev" toml:"capture.dev_dir" env:"CAPTURE_DEV_DIR"`
	CaptureWidth   int    `help:"Capture width in pixels" default:"1280" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight  int    `help:"Capture height in pixels" default:"720" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureFPS     int    `help:"Capture frame rate" default:"30" toml:"capture.fps" env:"CAPTURE_FPS"`
	VirtualCameras string `help:"Comma-separated virtual camera names to serve" default:"bars,gradient" toml:"capture.virtual_cameras" env:"CAPTURE_VIRTUAL_CAMERAS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSwitcher  string `help:"Switcher logging level" default:"info" toml:"logging.switcher" env:"LOGGING_SWITCHER"`
	LoggingCapture   string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingMedia     string `help:"Media decode logging level" default:"info" toml:"logging.media" env:"LOGGING_MEDIA"`
	LoggingProcessor string `help:"Frame processor logging level" default:"info" toml:"logging.processor" env:"LOGGING_PROCESSOR"`
	LoggingDevices   string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"switcher":  opts.LoggingSwitcher,
				"capture":   opts.LoggingCapture,
				"media":     opts.LoggingMedia,
				"processor": opts.LoggingProcessor,
				"devices":   opts.LoggingDevices,
				"api":       opts.LoggingAPI,
			},
		})
		logger := logging.GetLogger("main")

		bus := events.New()

		// Mirror log records onto the bus for the SSE log stream.
		logging.OnEntry(func(e logging.Entry) {
			bus.Publish(events.LogEntryEvent{
				Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
				Level:      e.Level,
				Module:     e.Module,
				Message:    e.Message,
				Attributes: e.Attributes,
			})
		})

		fps := float64(opts.CaptureFPS)
		var virtuals []string
		for _, name := range strings.Split(opts.VirtualCameras, ",") {
			if name = strings.TrimSpace(name); name != "" {
				virtuals = append(virtuals, name)
			}
		}

		manager := devices.NewManager(bus, opts.DevDir,
			devices.NewV4L2Provider(devices.V4L2Config{
				DevDir: opts.DevDir,
				Width:  opts.CaptureWidth,
				Height: opts.CaptureHeight,
				FPS:    fps,
			}),
			devices.NewSyntheticProvider(virtuals,
				opts.CaptureWidth, opts.CaptureHeight, fps),
		)

		collectors := metrics.New()
		collectors.Observe(bus)

		proc := processor.New(collectors)

		settings, err := config.LoadSettings(opts.SettingsFile)
		if err != nil {
			logger.Warn("Failed to load settings, using defaults", "error", err)
		}

		openDecoder := func(source media.ContentSource) (media.Decoder, error) {
			path := source.FileRef
			if media.IsImagePath(path) {
				return media.NewImageDecoder(path)
			}
			return media.NewFileDecoder(path, media.FileDecoderConfig{
				Width:  opts.CaptureWidth,
				Height: opts.CaptureHeight,
				FPS:    fps,
			})
		}

		engine := switcher.New(switcher.Config{
			Bus:               bus,
			Processor:         proc,
			Captures:          manager.CreateCaptureSession,
			OpenDecoder:       openDecoder,
			DefaultTransition: time.Duration(settings.TransitionSeconds * float64(time.Second)),
		})
		engine.SetStudioMode(settings.StudioMode)

		watchdog := metrics.NewWatchdog(collectors, bus,
			engine.Program().PipelineKey, settings.WatchdogTargetFPS)

		applySettings := func(s config.Settings) {
			engine.SetDefaultTransition(time.Duration(s.TransitionSeconds * float64(time.Second)))
			engine.SetStudioMode(s.StudioMode)
			watchdog.SetTarget(s.WatchdogTargetFPS)
		}

		watcher := config.NewWatcher(opts.SettingsFile, config.LoadSettings)
		watcher.OnReload(applySettings)

		server := api.NewServer(&api.Options{
			Engine:         engine,
			Devices:        manager,
			Bus:            bus,
			MetricsHandler: collectors.Handler(),
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			SettingsPath:   opts.SettingsFile,
			OnSettings:     applySettings,
		})

		runCtx, cancelRun := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if monErr := manager.StartMonitoring(runCtx); monErr != nil {
				logger.Warn("Device hotplug monitoring unavailable", "error", monErr)
			}
			watchdog.Start(runCtx)
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Settings file watching unavailable", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			cancelRun()
			watchdog.Stop()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping settings watcher", "error", stopErr)
			}
			manager.StopMonitoring()

			// Releases both slots' devices, decoders, and pipelines.
			engine.Shutdown()
			collectors.Close()
		})
	})

	cli.Root().AddCommand(cmd.DevicesCmd)

	cli.Run()
}
