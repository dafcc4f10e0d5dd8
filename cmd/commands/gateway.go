package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/config"
	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/gateway"
	"github.com/dohr-michael/moodstream/internal/heartbeat"
	"github.com/dohr-michael/moodstream/internal/sessions"
	"github.com/dohr-michael/moodstream/internal/storage"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Start the MoodStream gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.DurationFlag{
				Name:  "idle-timeout",
				Usage: "Close capture sessions untouched for this long (0 disables)",
				Value: 10 * time.Minute,
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	logger := slog.Default()
	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	var recorder sessions.Recorder
	deps := gateway.Deps{
		Bus:      svc.bus,
		Sessions: svc.sessions,
		Feed:     svc.feed,
		Logger:   logger,
	}
	if svc.history != nil {
		deps.History = svc.history
		recorder = svc.history
	}
	server := gateway.NewServer(deps, cfg.Gateway.Host, cfg.Gateway.Port)

	// Event log (JSONL per capture session)
	eventLog := storage.NewEventLogger(filepath.Join(config.LogsPath(), "events"), svc.bus)
	defer eventLog.Close()

	jobs, err := server.StartJobs(gateway.JobsConfig{
		PruneSchedule: cfg.History.PruneSchedule,
		Retention:     cfg.History.Retention.Duration(),
		IdleTimeout:   cmd.Duration("idle-timeout"),
	})
	if err != nil {
		return err
	}
	defer jobs.Stop()

	hb := heartbeat.NewWriter(config.HeartbeatPath(), func() heartbeat.Snapshot {
		snap := gatewaySnapshot(svc.sessions.List())
		snap.Addr = server.Addr()
		snap.Device = cfg.Capture.Device
		return snap
	}, logger)

	// Hot reload on SIGHUP: new sessions pick up the new capture settings.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(ev config.Reload) {
		if ev.Touches("capture", "policy", "models") {
			sc, err := captureConfig(ev.Config, svc.bus, recorder, logger)
			if err != nil {
				logger.Warn("config reload rejected", "error", err)
				return
			}
			svc.sessions.Reconfigure(sc)
		}
		svc.bus.Publish(events.NewTypedEvent(events.SourceGateway, events.ConfigReloadedPayload{
			Path:    reloader.Path(),
			Changed: ev.Changed,
		}))
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloader.Watch(ctx, hup)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	hbCtx, stopBeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		hb.Run(hbCtx)
		close(hbDone)
	}()
	defer func() {
		stopBeat()
		<-hbDone
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	}
}

// gatewaySnapshot summarises the live capture sessions for the heartbeat.
func gatewaySnapshot(list []sessions.Session) heartbeat.Snapshot {
	snap := heartbeat.Snapshot{Sessions: len(list)}
	var latest time.Time
	for _, s := range list {
		if s.State.Phase() == capture.PhaseDetecting {
			snap.Detecting++
		}
		if s.Label != "" && s.UpdatedAt.After(latest) {
			latest = s.UpdatedAt
			snap.LastMood = string(s.Label)
		}
	}
	return snap
}
