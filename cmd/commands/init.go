package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/config"
	"github.com/dohr-michael/moodstream/internal/secrets"
)

// NewInitCommand returns the onboarding subcommand.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Initialize the MoodStream home directory (~/.moodstream)",
		Action: runInit,
	}
}

func runInit(_ context.Context, _ *cli.Command) error {
	root := config.MoodstreamPath()
	created, err := initHome(root)
	if err != nil {
		return err
	}
	for _, p := range created {
		fmt.Printf("  Created %s\n", p)
	}
	if len(created) == 0 {
		fmt.Printf("%s is already set up. Nothing to do.\n", root)
		return nil
	}
	fmt.Println(initMessage(root))
	return nil
}

// initHome creates the directories, default config, .env and age identity
// under root, and returns the paths it created.
func initHome(root string) ([]string, error) {
	var created []string

	for _, d := range []string{root, filepath.Join(root, "logs")} {
		if _, err := os.Stat(d); err != nil {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return nil, fmt.Errorf("create dir %s: %w", d, err)
			}
			created = append(created, d)
		}
	}

	files := []struct {
		path    string
		content string
		perm    os.FileMode
	}{
		{filepath.Join(root, "config.jsonc"), defaultConfig, 0o644},
		{filepath.Join(root, ".env"), defaultDotenv, 0o600},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), f.perm); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.path, err)
		}
		created = append(created, f.path)
	}

	keyPath := filepath.Join(root, ".age-key")
	made, err := secrets.EnsureIdentity(keyPath)
	if err != nil {
		return nil, fmt.Errorf("generate age key: %w", err)
	}
	if made {
		created = append(created, keyPath)
	}
	return created, nil
}

const defaultConfig = `{
	// MoodStream Configuration

	"gateway": {
		"host": "127.0.0.1",
		"port": 18430
	},

	"models": {
		"default": "vision",
		"providers": {
			// Local vision model via Ollama (no auth required)
			"vision": {
				"driver": "ollama",
				"model": "llava",
				"base_url": "http://localhost:11434"
			}

			// "gpt": {
			// 	"driver": "openai",
			// 	"model": "gpt-4o-mini",
			// 	"auth": { "api_key": "${{ .Env.OPENAI_API_KEY }}" }
			// }
		}
	},

	"capture": {
		// "ffmpeg" for a webcam, "dir" to read stills matching a glob in "input"
		"device": "ffmpeg",
		"max_attempts": 3,
		"display_delay": "1.5s",
		"acquire_timeout": "15s",
		"inference_timeout": "60s"
	},

	"policy": {
		"lenient": ["happy", "surprised"],
		"lenient_threshold": 0.3,
		"strict_threshold": 0.6,
		"default": "neutral"
	},

	"youtube": {
		"max_results": 24
	},

	"history": {
		"retention": "720h",
		"prune_schedule": "@daily"
	}
}
`

const defaultDotenv = `# MoodStream environment variables
# This file is loaded automatically. Existing env vars are never overridden.
# Store the YouTube key with: moodstream key set

# OPENAI_API_KEY=sk-...
`

func initMessage(root string) string {
	return fmt.Sprintf(`
  MoodStream is set up at %s

  Next steps:
    1. Store your YouTube Data API key: moodstream key set
    2. Point %s/config.jsonc at a vision model
    3. Run: moodstream browse
`, root, root)
}
