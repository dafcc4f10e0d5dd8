package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/config"
	"github.com/dohr-michael/moodstream/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show MoodStream gateway status",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "Heartbeats older than this are reported as stale",
				Value: 4 * heartbeat.DefaultInterval,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			r, err := heartbeat.Read(config.HeartbeatPath(), cmd.Duration("max-age"))
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch r.Status {
			case heartbeat.StatusAlive:
				b := r.Beat
				fmt.Printf("Gateway: ALIVE (PID %d, uptime %s)\n", b.PID, b.Uptime())
				if b.Addr != "" {
					fmt.Printf("  Listening on http://%s\n", b.Addr)
				}
				fmt.Printf("  Capture: %s device, %d session(s), %d detecting\n", b.Device, b.Sessions, b.Detecting)
				if b.LastMood != "" {
					fmt.Printf("  Last mood: %s\n", b.LastMood)
				}
			case heartbeat.StatusStale:
				fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n", r.Beat.PID, r.Age.Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING")
			}
			return nil
		},
	}
}
