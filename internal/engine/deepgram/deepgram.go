package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/engine"
)

const (
	defaultBaseURL          = "https://api.deepgram.com/v1"
	defaultModel            = "nova-2"
	defaultUtteranceEndMS   = 1000
	defaultHandshakeTimeout = 10 * time.Second
)

var errMissingKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls the Deepgram live transcription socket.
type Config struct {
	APIKey           string
	APIBaseURL       string
	Model            string
	Language         string
	SmartFormat      bool
	SampleRate       int
	Channels         int
	UtteranceEndMS   int
	HandshakeTimeout time.Duration
}

// Provider streams audio to Deepgram's /listen endpoint.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger
}

func NewProvider(cfg Config, logger zerolog.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.UtteranceEndMS <= 0 {
		cfg.UtteranceEndMS = defaultUtteranceEndMS
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Provider{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.With().Str("component", "deepgram").Logger(),
	}
}

func (p *Provider) Name() string { return "deepgram" }

func (p *Provider) Available() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

func (p *Provider) Dial(ctx context.Context, request domain.RecognitionConfig) (engine.Transport, error) {
	if !p.Available() {
		return nil, &engine.Error{Code: domain.ErrorCodeClient, Err: errMissingKey}
	}

	wsURL, err := buildListenURL(p.cfg, request)
	if err != nil {
		return nil, &engine.Error{Code: domain.ErrorCodeClient, Err: err}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &engine.Error{
				Code: engine.HTTPStatusCode(resp.StatusCode),
				Err:  fmt.Errorf("deepgram handshake failed with status %d: %w", resp.StatusCode, err),
			}
		}
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	p.logger.Debug().Str("model", p.cfg.Model).Str("language", request.Locale).Msg("connected")
	return &transport{conn: conn, logger: p.logger}, nil
}

// transport adapts one websocket to engine.Transport.
type transport struct {
	conn   *websocket.Conn
	logger zerolog.Logger
}

func (t *transport) Send(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// CloseSend asks Deepgram to flush pending results and close the socket.
func (t *transport) CloseSend() error {
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

func (t *transport) Recv() (engine.Update, error) {
	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			return engine.Update{}, readError(err)
		}

		update, ok, err := decodeUpdate(payload)
		if err != nil {
			return engine.Update{}, err
		}
		if ok {
			return update, nil
		}
	}
}

func (t *transport) Close() error {
	return t.conn.Close()
}

// readError turns an orderly close into io.EOF.
func readError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return io.EOF
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return &engine.Error{Code: domain.ErrorCodeServer, Err: err}
	}
	return fmt.Errorf("failed to read provider event: %w", err)
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// decodeUpdate parses one server message. Messages that carry nothing for
// the session script report ok=false.
func decodeUpdate(payload []byte) (engine.Update, bool, error) {
	var response deepgramResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return engine.Update{}, false, nil
	}

	switch {
	case strings.EqualFold(response.Type, "Error"):
		message := strings.TrimSpace(response.Description)
		if message == "" {
			message = strings.TrimSpace(response.Message)
		}
		if message == "" {
			message = "deepgram returned an unknown error"
		}
		return engine.Update{}, false, &engine.Error{Code: domain.ErrorCodeServer, Err: errors.New(message)}

	case strings.EqualFold(response.Type, "SpeechStarted"):
		return engine.Update{Kind: engine.UpdateSpeechStarted}, true, nil

	case strings.EqualFold(response.Type, "UtteranceEnd"):
		return engine.Update{Kind: engine.UpdateUtteranceEnd}, true, nil

	case strings.EqualFold(response.Type, "Results"):
		return engine.Update{
			Kind:        engine.UpdateTranscript,
			Text:        extractTranscript(response),
			IsFinal:     response.IsFinal || response.SpeechFinal,
			SpeechFinal: response.SpeechFinal,
		}, true, nil
	}
	return engine.Update{}, false, nil
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config, request domain.RecognitionConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	utteranceEnd := cfg.UtteranceEndMS
	if utteranceEnd <= 0 {
		utteranceEnd = defaultUtteranceEndMS
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	query.Set("vad_events", "true")
	query.Set("interim_results", strconv.FormatBool(request.PartialResults))
	if request.PartialResults {
		query.Set("utterance_end_ms", strconv.Itoa(utteranceEnd))
	}
	if request.MaxResults > 1 {
		query.Set("alternatives", strconv.Itoa(request.MaxResults))
	}
	if request.LanguageModel == domain.LanguageModelWebSearch {
		query.Set("punctuate", "false")
	}

	language := request.Locale
	if language == "" {
		language = cfg.Language
	}
	if language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
