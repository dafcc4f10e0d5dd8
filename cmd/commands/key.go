package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/moodstream/internal/secrets"
)

// NewKeyCommand returns the key subcommand.
func NewKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the YouTube Data API key",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store the API key (encrypted); reads stdin when no argument is given",
				ArgsUsage: "[key]",
				Action:    runKeySet,
			},
			{
				Name:   "show",
				Usage:  "Show the stored key, masked",
				Action: runKeyShow,
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored key",
				Action: runKeyClear,
			},
		},
		DefaultCommand: "show",
	}
}

func runKeySet(_ context.Context, cmd *cli.Command) error {
	value := cmd.Args().First()
	if value == "" {
		var err error
		if value, err = readSecret("YouTube API key: "); err != nil {
			return err
		}
	}

	if err := newCredentialStore().Set(value); err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	fmt.Println("API key saved.")
	return nil
}

func runKeyShow(_ context.Context, _ *cli.Command) error {
	key, err := newCredentialStore().Get()
	if errors.Is(err, secrets.ErrNoCredential) {
		fmt.Println("No API key stored.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	fmt.Printf("%s=%s\n", secrets.YouTubeKeyName, secrets.Mask(key))
	return nil
}

func runKeyClear(_ context.Context, _ *cli.Command) error {
	if err := newCredentialStore().Clear(); err != nil {
		return err
	}
	fmt.Println("API key removed.")
	return nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
