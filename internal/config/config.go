package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

const (
	EngineDeepgram = "deepgram"
	EngineGoogle   = "google"

	defaultLocale = "en-US"
)

// Config stores runtime configuration resolved from the environment.
type Config struct {
	Engine      string `env:"LIVESCRIBE_ENGINE" envDefault:"deepgram"`
	Locale      string `env:"LIVESCRIBE_LOCALE"`
	Permissions PermissionsConfig
	Session     SessionConfig
	Audio       AudioConfig
	Deepgram    DeepgramConfig
	Google      GoogleConfig
	Log         LogConfig
}

type PermissionsConfig struct {
	Policy string `env:"LIVESCRIBE_PERMISSION_POLICY" envDefault:"prompt"`
	File   string `env:"LIVESCRIBE_PERMISSIONS_FILE"`
}

type SessionConfig struct {
	NoSpeechTimeout time.Duration `env:"LIVESCRIBE_NO_SPEECH_TIMEOUT" envDefault:"8s"`
	StopGrace       time.Duration `env:"LIVESCRIBE_STOP_GRACE" envDefault:"3s"`
	ChunkSize       int           `env:"LIVESCRIBE_AUDIO_CHUNK_SIZE" envDefault:"4096"`
}

type AudioConfig struct {
	FFmpegCommand string `env:"LIVESCRIBE_AUDIO_FFMPEG_COMMAND" envDefault:"ffmpeg"`
	InputFormat   string `env:"LIVESCRIBE_AUDIO_INPUT_FORMAT" envDefault:"pulse"`
	InputDevice   string `env:"LIVESCRIBE_AUDIO_INPUT_DEVICE" envDefault:"default"`
	SampleRate    int    `env:"LIVESCRIBE_AUDIO_SAMPLE_RATE" envDefault:"16000"`
	Channels      int    `env:"LIVESCRIBE_AUDIO_CHANNELS" envDefault:"1"`
}

type DeepgramConfig struct {
	APIKey      string `env:"DEEPGRAM_API_KEY"`
	APIBaseURL  string `env:"DEEPGRAM_API_BASE" envDefault:"https://api.deepgram.com/v1"`
	Model       string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	SmartFormat bool   `env:"DEEPGRAM_SMART_FORMAT" envDefault:"true"`
}

type GoogleConfig struct {
	ProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	CredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	Location        string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	Model           string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"short"`
}

type LogConfig struct {
	Level string `env:"LIVESCRIBE_LOG_LEVEL" envDefault:"info"`
	File  string `env:"LIVESCRIBE_LOG_FILE"`
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("environment variables are invalid: %w", err)
	}

	normalize(&cfg)
	if cfg.Locale == "" {
		cfg.Locale = systemLocale(os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG"))
	}
	if cfg.Permissions.File == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("could not determine config directory: %w", err)
		}
		cfg.Permissions.File = filepath.Join(dir, "livescribe", "permissions.yaml")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	cfg.Locale = strings.TrimSpace(cfg.Locale)
	cfg.Permissions.Policy = strings.ToLower(strings.TrimSpace(cfg.Permissions.Policy))
	cfg.Permissions.File = strings.TrimSpace(cfg.Permissions.File)
	cfg.Deepgram.APIKey = strings.TrimSpace(cfg.Deepgram.APIKey)
	cfg.Google.ProjectID = strings.TrimSpace(cfg.Google.ProjectID)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.NoSpeechTimeout <= 0 {
		cfg.Session.NoSpeechTimeout = 8 * time.Second
	}
	if cfg.Session.StopGrace <= 0 {
		cfg.Session.StopGrace = 3 * time.Second
	}
}

func validate(cfg Config) error {
	switch cfg.Engine {
	case EngineDeepgram, EngineGoogle:
	default:
		return fmt.Errorf("LIVESCRIBE_ENGINE must be %q or %q, got %q", EngineDeepgram, EngineGoogle, cfg.Engine)
	}
	switch cfg.Permissions.Policy {
	case "prompt", "granted", "denied":
	default:
		return fmt.Errorf("LIVESCRIBE_PERMISSION_POLICY must be prompt, granted or denied, got %q", cfg.Permissions.Policy)
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("LIVESCRIBE_LOG_LEVEL is invalid: %w", err)
	}
	return nil
}

// systemLocale turns the first POSIX locale value (pt_BR.UTF-8) into a BCP 47
// tag (pt-BR).
func systemLocale(values ...string) string {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		return strings.ReplaceAll(value, "_", "-")
	}
	return defaultLocale
}
