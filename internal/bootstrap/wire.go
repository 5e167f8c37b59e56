package bootstrap

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"livescribe/internal/audio"
	"livescribe/internal/config"
	"livescribe/internal/engine"
	"livescribe/internal/engine/cloudspeech"
	"livescribe/internal/engine/deepgram"
	"livescribe/internal/logging"
	"livescribe/internal/permission"
	"livescribe/internal/ports"
	"livescribe/internal/usecase"
)

// Options adjusts how a frontend wants logging set up.
type Options struct {
	// LogFallback receives JSON logs when no log file is configured.
	LogFallback io.Writer
	// DefaultLogFile is used when LIVESCRIBE_LOG_FILE is unset.
	DefaultLogFile string
}

// Services is the assembled runtime graph.
type Services struct {
	Screen *usecase.Screen
	Config config.Config
	Logger zerolog.Logger
	Info   RuntimeInfo

	logCloser io.Closer
}

// RuntimeInfo is the non-sensitive configuration shown by frontends.
type RuntimeInfo struct {
	Engine      string `json:"engine"`
	Model       string `json:"model"`
	Locale      string `json:"locale"`
	AudioInput  string `json:"audioInput"`
	AudioFormat string `json:"audioInputFormat"`
	Permissions string `json:"permissionsFile"`
	Available   bool   `json:"available"`
}

// Close flushes and releases the log file.
func (s Services) Close() error {
	if s.logCloser == nil {
		return nil
	}
	return s.logCloser.Close()
}

// Build wires all backend dependencies for the current runtime. The
// returned Screen still needs Init.
func Build(sink ports.ScreenSink, prompter ports.Prompter, opts Options) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if cfg.Log.File == "" {
		cfg.Log.File = opts.DefaultLogFile
	}

	logger, logCloser, err := logging.New(cfg.Log, opts.LogFallback)
	if err != nil {
		return Services{}, err
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.Provide(injector, provideCapture)
	do.Provide(injector, provideSpeechProvider)
	do.Provide(injector, provideEngine)
	do.Provide(injector, func(i do.Injector) (ports.PermissionProvider, error) {
		return providePermissions(i, prompter)
	})
	do.Provide(injector, func(i do.Injector) (*usecase.Screen, error) {
		return provideScreen(i, sink)
	})

	screen, err := do.Invoke[*usecase.Screen](injector)
	if err != nil {
		_ = logCloser.Close()
		return Services{}, fmt.Errorf("failed to build screen: %w", err)
	}
	speech := do.MustInvoke[engine.Provider](injector)
	recognition := do.MustInvoke[ports.RecognitionEngine](injector)

	logger.Info().
		Str("engine", cfg.Engine).
		Str("locale", cfg.Locale).
		Bool("available", recognition.Available()).
		Msg("services ready")

	return Services{
		Screen: screen,
		Config: cfg,
		Logger: logger,
		Info: RuntimeInfo{
			Engine:      speech.Name(),
			Model:       modelName(cfg),
			Locale:      cfg.Locale,
			AudioInput:  cfg.Audio.InputDevice,
			AudioFormat: cfg.Audio.InputFormat,
			Permissions: cfg.Permissions.File,
			Available:   recognition.Available(),
		},
		logCloser: logCloser,
	}, nil
}

func provideCapture(i do.Injector) (ports.AudioCapture, error) {
	cfg := do.MustInvoke[config.Config](i)
	logger := do.MustInvoke[zerolog.Logger](i)
	return audio.NewCapture(audio.Options{Command: cfg.Audio.FFmpegCommand}, logger), nil
}

func provideSpeechProvider(i do.Injector) (engine.Provider, error) {
	cfg := do.MustInvoke[config.Config](i)
	logger := do.MustInvoke[zerolog.Logger](i)

	switch cfg.Engine {
	case config.EngineGoogle:
		return cloudspeech.NewProvider(cloudspeech.Config{
			ProjectID:       cfg.Google.ProjectID,
			CredentialsJSON: cfg.Google.CredentialsJSON,
			Location:        cfg.Google.Location,
			Model:           cfg.Google.Model,
			Language:        cfg.Locale,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.Channels,
		}, logger), nil
	case config.EngineDeepgram:
		return deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Locale,
			SmartFormat: cfg.Deepgram.SmartFormat,
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", cfg.Engine)
	}
}

func provideEngine(i do.Injector) (ports.RecognitionEngine, error) {
	cfg := do.MustInvoke[config.Config](i)
	logger := do.MustInvoke[zerolog.Logger](i)
	speech := do.MustInvoke[engine.Provider](i)
	capture := do.MustInvoke[ports.AudioCapture](i)

	return engine.New(speech, capture, engine.Options{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		ChunkSize:       cfg.Session.ChunkSize,
		NoSpeechTimeout: cfg.Session.NoSpeechTimeout,
		StopGrace:       cfg.Session.StopGrace,
	}, logger), nil
}

func providePermissions(i do.Injector, prompter ports.Prompter) (ports.PermissionProvider, error) {
	cfg := do.MustInvoke[config.Config](i)
	logger := do.MustInvoke[zerolog.Logger](i)

	policy, err := permission.ParsePolicy(cfg.Permissions.Policy)
	if err != nil {
		return nil, err
	}
	return permission.NewProvider(permission.NewStore(cfg.Permissions.File), prompter, policy, logger), nil
}

func provideScreen(i do.Injector, sink ports.ScreenSink) (*usecase.Screen, error) {
	cfg := do.MustInvoke[config.Config](i)
	logger := do.MustInvoke[zerolog.Logger](i)
	recognition := do.MustInvoke[ports.RecognitionEngine](i)
	permissions := do.MustInvoke[ports.PermissionProvider](i)

	return usecase.NewScreen(recognition, permissions, sink, usecase.Config{Locale: cfg.Locale}, logger), nil
}

func modelName(cfg config.Config) string {
	if cfg.Engine == config.EngineGoogle {
		return cfg.Google.Model
	}
	return cfg.Deepgram.Model
}
