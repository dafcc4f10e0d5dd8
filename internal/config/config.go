package config

import "time"

// Config is the root configuration for MoodStream.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Models  ModelsConfig  `json:"models"`
	Events  EventsConfig  `json:"events"`
	Capture CaptureConfig `json:"capture"`
	Policy  PolicyConfig  `json:"policy"`
	YouTube YouTubeConfig `json:"youtube"`
	History HistoryConfig `json:"history"`
}

// GatewayConfig holds the local gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds the vision model providers used for expression analysis.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single vision model provider.
type ProviderConfig struct {
	Driver      string         `json:"driver"` // "ollama", "openai", "anthropic", "gemini", "mistral"
	Model       string         `json:"model"`
	BaseURL     string         `json:"base_url,omitempty"`
	Auth        AuthConfig     `json:"auth"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float32       `json:"temperature,omitempty"`
	Timeout     Duration       `json:"timeout,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	Token  string `json:"token,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// CaptureConfig selects the camera and tunes the capture workflow.
type CaptureConfig struct {
	Device     string          `json:"device"` // "ffmpeg" or "dir"
	Input      string          `json:"input"`  // device path, avfoundation index or still glob
	Format     string          `json:"format,omitempty"`
	FFmpegPath string          `json:"ffmpeg_path,omitempty"`
	Profiles   []ProfileConfig `json:"profiles,omitempty"`

	MaxAttempts      int      `json:"max_attempts"`
	DisplayDelay     Duration `json:"display_delay"`
	AcquireTimeout   Duration `json:"acquire_timeout,omitempty"`
	InferenceTimeout Duration `json:"inference_timeout,omitempty"`
}

// ProfileConfig is a capture resolution, tried in declaration order.
type ProfileConfig struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PolicyConfig tunes how expression scores become a mood.
type PolicyConfig struct {
	Lenient          []string `json:"lenient"`
	LenientThreshold float64  `json:"lenient_threshold"`
	StrictThreshold  float64  `json:"strict_threshold"`
	Default          string   `json:"default"`
}

// YouTubeConfig configures the video search client. The API key itself is
// stored encrypted in the .env file, never here.
type YouTubeConfig struct {
	// Endpoint overrides the API root (https://youtube.googleapis.com/).
	Endpoint   string   `json:"endpoint,omitempty"`
	MaxResults int      `json:"max_results"`
	MinViews   int64    `json:"min_views,omitempty"`
	Timeout    Duration `json:"timeout"`
}

// HistoryConfig configures the detection log.
type HistoryConfig struct {
	Disabled      bool     `json:"disabled,omitempty"`
	Path          string   `json:"path"`
	Retention     Duration `json:"retention"`
	PruneSchedule string   `json:"prune_schedule"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
