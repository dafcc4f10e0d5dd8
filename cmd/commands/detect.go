package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/sessions"
)

// NewDetectCommand returns the detect subcommand.
func NewDetectCommand() *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "Detect your mood from the camera and print a matching feed",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Time to get in position before each capture",
				Value: 2 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "no-feed",
				Usage: "Only print the detected mood",
			},
			formatFlag(),
		},
		Action: runDetect,
	}
}

type detectResult struct {
	Detection capture.Detection `json:"detection" yaml:"detection"`
	Feed      *feed.Feed        `json:"feed,omitempty" yaml:"feed,omitempty"`
}

func runDetect(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	withFeed := !cmd.Bool("no-feed")
	if withFeed {
		if err := requireKey(newCredentialStore()); err != nil {
			return err
		}
	}

	svc, err := newServices(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer svc.Close()

	det, err := detectOnce(ctx, svc.sessions, cmd.Duration("delay"), os.Stderr)
	if err != nil {
		return err
	}

	res := detectResult{Detection: det}
	if withFeed {
		f, err := svc.feed.ForMood(ctx, det.Decision.Label)
		if err != nil {
			return err
		}
		res.Feed = &f
	}

	format := cmd.String("format")
	if ok, err := writeStructured(os.Stdout, format, res); ok {
		return err
	}

	l := det.Decision.Label
	fmt.Printf("Mood: %s %s", l.Emoji(), l)
	if det.Decision.Fallback {
		fmt.Print(" (no confident expression)")
	} else {
		fmt.Printf(" (%s %.0f%%)", det.Decision.Expression, det.Decision.Score*100)
	}
	fmt.Println()
	if res.Feed != nil {
		return printFeed(format, *res.Feed)
	}
	return nil
}

// detectOnce runs one capture session until a mood is handed off or the
// workflow fails. Progress messages are written to progress.
func detectOnce(ctx context.Context, mgr *sessions.Manager, delay time.Duration, progress io.Writer) (capture.Detection, error) {
	states := make(chan capture.State)
	detected := make(chan capture.Detection, 1)
	done := make(chan struct{})
	defer close(done)

	ctrl := mgr.Create(sessions.Hooks{
		OnChange: func(s capture.State) {
			select {
			case states <- s:
			case <-done:
			}
		},
		OnDetected: func(d capture.Detection) { detected <- d },
	})
	defer func() {
		if err := mgr.Close(ctrl.ID(), "detect finished"); err != nil && !errors.Is(err, sessions.ErrNotFound) {
			slog.Warn("close capture session", "error", err)
		}
	}()

	go func() {
		if err := ctrl.Open(ctx); err != nil {
			slog.Debug("open capture session", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return capture.Detection{}, ctx.Err()

		case d := <-detected:
			return d, nil

		case s := <-states:
			fmt.Fprintln(progress, s.Message())
			switch s.Phase() {
			case capture.PhaseError:
				return capture.Detection{}, errors.New(strings.TrimSpace(s.Message()))
			case capture.PhaseReady:
				go func() {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
					if err := ctrl.Capture(ctx); err != nil {
						slog.Debug("capture", "error", err)
					}
				}()
			}
		}
	}
}
