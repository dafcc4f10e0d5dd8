package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/callbacks"
	"github.com/dohr-michael/moodstream/internal/camera"
	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/classifier"
	"github.com/dohr-michael/moodstream/internal/config"
	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/models"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/secrets"
	"github.com/dohr-michael/moodstream/internal/sessions"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

func setupLogging(cmd *cli.Command) {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

// loadConfig reads the --config file, falling back to defaults when it is missing.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func newCredentialStore() *secrets.CredentialStore {
	return secrets.NewCredentialStore(config.DotenvPath(), secrets.KeyPath())
}

func policyFromConfig(pc config.PolicyConfig) (*mood.Policy, error) {
	p := mood.DefaultPolicy()
	p.Lenient = nil
	for _, name := range pc.Lenient {
		e, ok := parseExpression(name)
		if !ok {
			return nil, fmt.Errorf("policy: unknown expression %q", name)
		}
		p.Lenient = append(p.Lenient, e)
	}
	if pc.LenientThreshold > 0 {
		p.LenientThreshold = pc.LenientThreshold
	}
	if pc.StrictThreshold > 0 {
		p.StrictThreshold = pc.StrictThreshold
	}
	if pc.Default != "" {
		l, err := mood.ParseLabel(pc.Default)
		if err != nil {
			return nil, fmt.Errorf("policy default: %w", err)
		}
		p.Default = l
	}
	return &p, nil
}

func parseExpression(name string) (mood.Expression, bool) {
	for _, e := range mood.Expressions() {
		if string(e) == name {
			return e, true
		}
	}
	return "", false
}

func profilesFromConfig(pcs []config.ProfileConfig) []capture.Profile {
	out := make([]capture.Profile, 0, len(pcs))
	for _, p := range pcs {
		out = append(out, capture.Profile{Name: p.Name, Width: p.Width, Height: p.Height})
	}
	return out
}

func newDevice(cc config.CaptureConfig, logger *slog.Logger) (capture.Device, error) {
	switch cc.Device {
	case "ffmpeg":
		return camera.NewFFmpegDevice(cc.FFmpegPath, cc.Format, cc.Input, logger), nil
	case "dir":
		if cc.Input == "" {
			return nil, errors.New(`capture.input must be a glob when capture.device is "dir"`)
		}
		return camera.NewDirDevice(cc.Input), nil
	default:
		return nil, fmt.Errorf("unknown capture device %q", cc.Device)
	}
}

func newFeedService(cfg *config.Config, creds *secrets.CredentialStore, bus *events.Bus, logger *slog.Logger) *feed.Service {
	client := youtube.New(youtube.Options{
		Endpoint: cfg.YouTube.Endpoint,
		Key: func() (string, error) {
			key, err := creds.Get()
			if errors.Is(err, secrets.ErrNoCredential) {
				return "", youtube.ErrMissingKey
			}
			return key, err
		},
		MaxResults: cfg.YouTube.MaxResults,
		MinViews:   cfg.YouTube.MinViews,
		HTTPClient: &http.Client{Timeout: cfg.YouTube.Timeout.Duration()},
		Logger:     logger,
	})
	return feed.NewService(client, nil, bus, logger)
}

// captureConfig builds what every capture session is created from. recorder
// may be nil.
func captureConfig(cfg *config.Config, bus *events.Bus, recorder sessions.Recorder, logger *slog.Logger) (sessions.Config, error) {
	policy, err := policyFromConfig(cfg.Policy)
	if err != nil {
		return sessions.Config{}, err
	}
	device, err := newDevice(cfg.Capture, logger)
	if err != nil {
		return sessions.Config{}, err
	}
	registry := models.NewRegistry(cfg.Models)
	vision := classifier.FromRegistry(registry, cfg.Models.Default, logger)
	if bus != nil {
		vision.Observe(callbacks.NewEventBusHandler(bus))
	}

	return sessions.Config{
		Classifier:       capture.NewSharedClassifier(vision),
		Device:           device,
		DeviceName:       cfg.Capture.Device,
		Profiles:         profilesFromConfig(cfg.Capture.Profiles),
		Policy:           policy,
		MaxAttempts:      cfg.Capture.MaxAttempts,
		DisplayDelay:     cfg.Capture.DisplayDelay.Duration(),
		AcquireTimeout:   cfg.Capture.AcquireTimeout.Duration(),
		InferenceTimeout: cfg.Capture.InferenceTimeout.Duration(),
		Bus:              bus,
		History:          recorder,
		Logger:           logger,
	}, nil
}

// services bundles the runtime shared by the browse, detect and gateway commands.
type services struct {
	bus      *events.Bus
	history  *history.Store
	sessions *sessions.Manager
	feed     *feed.Service
	creds    *secrets.CredentialStore
}

func newServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	s := &services{
		bus:   events.NewBus(cfg.Events.BufferSize),
		creds: newCredentialStore(),
	}

	var recorder sessions.Recorder
	if !cfg.History.Disabled {
		store, err := history.Open(ctx, cfg.History.Path, logger)
		if err != nil {
			s.bus.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		s.history = store
		recorder = store
	}

	sc, err := captureConfig(cfg, s.bus, recorder, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.sessions = sessions.NewManager(sc)
	s.feed = newFeedService(cfg, s.creds, s.bus, logger)
	return s, nil
}

func (s *services) Close() {
	if s.sessions != nil {
		s.sessions.CloseAll("shutdown")
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("close history", "error", err)
		}
	}
	s.bus.Close()
}
