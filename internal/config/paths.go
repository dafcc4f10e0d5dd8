package config

import (
	"os"
	"path/filepath"
)

// MoodstreamPath returns the root directory for MoodStream data.
// It uses $MOODSTREAM_PATH if set, otherwise defaults to ~/.moodstream.
func MoodstreamPath() string {
	if v := os.Getenv("MOODSTREAM_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".moodstream")
	}
	return filepath.Join(home, ".moodstream")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(MoodstreamPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file holding the encrypted API key.
func DotenvPath() string {
	return filepath.Join(MoodstreamPath(), ".env")
}

// LogsPath returns the directory for log files and event logs.
func LogsPath() string {
	return filepath.Join(MoodstreamPath(), "logs")
}

// HeartbeatPath returns the gateway heartbeat file.
func HeartbeatPath() string {
	return filepath.Join(MoodstreamPath(), "heartbeat.json")
}
