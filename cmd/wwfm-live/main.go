// Command wwfm-live is the Worldwide FM live-stream playback daemon.
// Run with --mock to use a simulated stream (no network or audio output).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/worldwidefm/wwfm-live/internal/api"
	"github.com/worldwidefm/wwfm-live/internal/auth"
	"github.com/worldwidefm/wwfm-live/internal/config"
	"github.com/worldwidefm/wwfm-live/internal/display"
	"github.com/worldwidefm/wwfm-live/internal/events"
	"github.com/worldwidefm/wwfm-live/internal/identity"
	"github.com/worldwidefm/wwfm-live/internal/maintenance"
	"github.com/worldwidefm/wwfm-live/internal/media"
	"github.com/worldwidefm/wwfm-live/internal/metadata"
	"github.com/worldwidefm/wwfm-live/internal/metrics"
	"github.com/worldwidefm/wwfm-live/internal/models"
	"github.com/worldwidefm/wwfm-live/internal/mpris"
	"github.com/worldwidefm/wwfm-live/internal/player"
	"github.com/worldwidefm/wwfm-live/internal/schedule"
	"github.com/worldwidefm/wwfm-live/internal/zeroconf"
)

func main() {
	var (
		mock      = flag.Bool("mock", false, "use a simulated stream (no network or audio output)")
		addr      = flag.String("addr", ":8080", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/wwfm-live)")
		backupDir = flag.String("backup-dir", "", "config backup directory (default: ~/backups)")
		output    = flag.String("output", "", "local player to pipe audio into (ffplay, mpv, vlc); empty discards audio")
		noMDNS    = flag.Bool("no-mdns", false, "do not advertise the API over mDNS")
		noMPRIS   = flag.Bool("no-mpris", false, "do not register on the D-Bus session bus")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "wwfm-live")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config store
	store := config.NewJSONStore(*cfgDir)
	settings, err := store.Load()
	if err != nil {
		slog.Error("cannot load settings", "path", store.Path(), "err", err)
		os.Exit(1)
	}
	if !store.Exists() {
		// Write the defaults out so there is a file to edit.
		_ = store.Save(settings)
	}
	version := identity.GetVersionFromDir(*cfgDir)
	slog.Info("settings loaded",
		"station", settings.StationName,
		"stream", settings.StreamURL,
		"metadata", settings.MetadataURL,
		"version", version,
	)

	// Media primitive
	var m media.Media
	if *mock {
		slog.Info("using mock media")
		m = media.NewAutoMock()
	} else {
		var out media.Output = media.DiscardOutput{}
		if *output != "" {
			out = media.NewCommandOutput(*output)
		}
		m = media.NewHTTPStream(settings.StreamURL, out)
	}

	// Metadata channel
	var channel player.Channel
	if !*mock && settings.MetadataURL != "" {
		sc, err := metadata.NewSocketChannel(settings.MetadataURL, metadata.WithStationID(settings.StationID))
		if err != nil {
			slog.Warn("metadata channel disabled", "err", err)
		} else {
			channel = sc
		}
	}

	// Event bus and metrics
	bus := events.NewBus()
	rec := metrics.New()

	// Controller
	ctrl := player.New(m, channel, player.Options{
		FallbackURL:  settings.FallbackURL,
		DefaultLabel: settings.DefaultLabel,
		Publisher:    bus,
		Metrics:      rec,
	})
	if err := ctrl.Start(ctx); err != nil {
		slog.Warn("metadata channel not connected yet, retrying in background", "err", err)
	}

	// Schedule lookup
	poller := schedule.NewPoller(
		schedule.NewClient(settings.ScheduleURL, settings.StationID, settings.ScheduleAPIKey),
		time.Duration(settings.ScheduleIntervalSec)*time.Second,
		ctrl.SetScheduledShow,
	)
	if !*mock {
		go poller.Run(ctx)
	}

	// Hot-reload the settings the controller can apply live.
	go func() {
		current := *settings
		err := store.Watch(ctx, func(next models.Settings) {
			ctrl.SetFallbackURL(next.FallbackURL)
			ctrl.SetDefaultLabel(next.DefaultLabel)
			if next.StreamURL != current.StreamURL || next.MetadataURL != current.MetadataURL {
				slog.Warn("stream or metadata URL changed, restart to apply")
			}
			current = next
		})
		if err != nil {
			slog.Warn("config watch failed", "err", err)
		}
	}()

	// Auth service
	authSvc, err := auth.NewService(*cfgDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	// Maintenance goroutines (stream host check, config backups)
	var online atomic.Bool
	maint := maintenance.New(*cfgDir, *backupDir, settings.StreamURL, func(up bool) {
		online.Store(up)
	})
	if !*mock {
		go maint.Start(ctx)
	}

	// MPRIS on the session bus
	var bridge *mpris.Bridge
	if !*noMPRIS {
		bridge, err = mpris.Start(ctrl, "wwfm_live", settings.StationName)
		if err != nil {
			slog.Warn("mpris unavailable", "err", err)
		} else {
			subID := "mpris-" + uuid.New().String()
			updates := bus.Subscribe(subID)
			go func() {
				for st := range updates {
					bridge.Publish(st)
				}
			}()
			defer bus.Unsubscribe(subID)
		}
	}

	// Zeroconf mDNS registration
	hostname := identity.GetHostname()
	port := 80
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	if !*noMDNS {
		zc := zeroconf.New(identity.InstanceName(settings.StationName, hostname), port, settings.StationName, version)
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	// HTTP server
	router := api.NewRouter(api.Deps{
		Controller: ctrl,
		Events:     bus,
		Schedule:   poller,
		Info: func() models.Info {
			return models.Info{
				Version:     version,
				Hostname:    hostname,
				StationName: settings.StationName,
				StreamURL:   settings.StreamURL,
				Online:      *mock || online.Load(),
				Mock:        *mock,
			}
		},
		Metrics: rec.Handler(),
		Auth:    authSvc.Middleware,
		Card:    display.Card{Station: settings.StationName},
		Backups: maint,
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
		// Request contexts end on shutdown so SSE streams return.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("wwfm-live listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop playback and release the metadata channel
	ctrl.Teardown()
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			slog.Warn("mpris close error", "err", err)
		}
	}

	// Flush pending config writes
	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}

	// Graceful HTTP shutdown
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
