package cloudspeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"livescribe/internal/domain"
	"livescribe/internal/engine"
)

const (
	speechAPIEndpointPort = 443
	defaultLocation       = "global"
	defaultModel          = "short"
	defaultLanguage       = "en-US"
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

var errMissingProject = errors.New("GOOGLE_CLOUD_PROJECT_ID is not configured")

// Config selects the Speech-to-Text v2 project, region and model.
type Config struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
	Language        string
	SampleRate      int
	Channels        int
}

// recognizeStream is the part of the generated bidi client the transport uses.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

type connectFunc func(ctx context.Context) (recognizeStream, func() error, error)

// Provider streams audio to Google Cloud Speech-to-Text v2.
type Provider struct {
	cfg     Config
	connect connectFunc
	logger  zerolog.Logger
}

func NewProvider(cfg Config, logger zerolog.Logger) *Provider {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.Location = strings.TrimSpace(cfg.Location)
	if cfg.Location == "" {
		cfg.Location = defaultLocation
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	p := &Provider{
		cfg:    cfg,
		logger: logger.With().Str("component", "cloudspeech").Logger(),
	}
	p.connect = p.dialClient
	return p
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Available() bool {
	return p.cfg.ProjectID != ""
}

func (p *Provider) Dial(ctx context.Context, request domain.RecognitionConfig) (engine.Transport, error) {
	if !p.Available() {
		return nil, &engine.Error{Code: domain.ErrorCodeClient, Err: errMissingProject}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, closeClient, err := p.connect(streamCtx)
	if err != nil {
		cancel()
		return nil, classifyRPC(fmt.Errorf("open streaming recognize: %w", err))
	}

	if err := stream.Send(p.configRequest(request)); err != nil {
		_ = stream.CloseSend()
		_ = closeClient()
		cancel()
		return nil, classifyRPC(fmt.Errorf("send streaming config: %w", err))
	}

	p.logger.Debug().
		Str("location", p.cfg.Location).
		Str("model", p.cfg.Model).
		Str("language", p.language(request)).
		Msg("stream initialized")

	return &transport{stream: stream, cancel: cancel, closeClient: closeClient}, nil
}

func (p *Provider) dialClient(ctx context.Context) (recognizeStream, func() error, error) {
	detect := &credentials.DetectOptions{Scopes: []string{cloudPlatformScope}}
	if strings.TrimSpace(p.cfg.CredentialsJSON) != "" {
		detect.CredentialsJSON = []byte(p.cfg.CredentialsJSON)
	}
	creds, err := credentials.DetectDefault(detect)
	if err != nil {
		return nil, nil, &engine.Error{Code: domain.ErrorCodeClient, Err: fmt.Errorf("detect credentials: %w", err)}
	}

	opts := []option.ClientOption{option.WithAuthCredentials(creds)}
	if p.cfg.Location != defaultLocation {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", p.cfg.Location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return stream, client.Close, nil
}

func (p *Provider) language(request domain.RecognitionConfig) string {
	switch {
	case request.Locale != "":
		return request.Locale
	case p.cfg.Language != "":
		return p.cfg.Language
	default:
		return defaultLanguage
	}
}

func (p *Provider) configRequest(request domain.RecognitionConfig) *speechpb.StreamingRecognizeRequest {
	features := &speechpb.RecognitionFeatures{
		EnableAutomaticPunctuation: request.LanguageModel != domain.LanguageModelWebSearch,
	}
	if request.MaxResults > 1 {
		features.MaxAlternatives = int32(request.MaxResults)
	}

	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", p.cfg.ProjectID, p.cfg.Location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         p.cfg.Model,
					LanguageCodes: []string{p.language(request)},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(p.cfg.SampleRate),
							AudioChannelCount: int32(p.cfg.Channels),
						},
					},
					Features: features,
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
					InterimResults:            request.PartialResults,
					EnableVoiceActivityEvents: true,
				},
			},
		},
	}
}

type transport struct {
	stream      recognizeStream
	cancel      context.CancelFunc
	closeClient func() error

	// activityEnded is set between a voice activity end event and the
	// final result that belongs to it.
	activityEnded bool
}

func (t *transport) Send(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	err := t.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	})
	if err != nil {
		return classifyRPC(fmt.Errorf("send audio: %w", err))
	}
	return nil
}

func (t *transport) CloseSend() error {
	return t.stream.CloseSend()
}

func (t *transport) Recv() (engine.Update, error) {
	for {
		resp, err := t.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return engine.Update{}, io.EOF
			}
			return engine.Update{}, classifyRPC(err)
		}
		if update, ok := t.decode(resp); ok {
			return update, nil
		}
	}
}

func (t *transport) Close() error {
	t.cancel()
	return t.closeClient()
}

func (t *transport) decode(resp *speechpb.StreamingRecognizeResponse) (engine.Update, bool) {
	switch resp.GetSpeechEventType() {
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_BEGIN:
		t.activityEnded = false
		return engine.Update{Kind: engine.UpdateSpeechStarted}, true
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END,
		speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE:
		t.activityEnded = true
		return engine.Update{Kind: engine.UpdateUtteranceEnd}, true
	}

	results := resp.GetResults()
	if len(results) == 0 {
		return engine.Update{}, false
	}

	parts := make([]string, 0, len(results))
	for _, result := range results {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(alternatives[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}

	update := engine.Update{
		Kind:    engine.UpdateTranscript,
		Text:    strings.Join(parts, " "),
		IsFinal: results[0].GetIsFinal(),
	}
	if update.IsFinal && t.activityEnded {
		update.SpeechFinal = true
		t.activityEnded = false
	}
	return update, true
}

// classifyRPC attaches an engine error code to a gRPC failure.
func classifyRPC(err error) error {
	if err == nil {
		return nil
	}
	var coded *engine.Error
	if errors.As(err, &coded) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &engine.Error{Code: rpcCode(st.Code()), Err: err}
}

func rpcCode(code codes.Code) domain.ErrorCode {
	switch code {
	case codes.Unavailable, codes.Canceled:
		return domain.ErrorCodeNetwork
	case codes.DeadlineExceeded:
		return domain.ErrorCodeNetworkTimeout
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound:
		return domain.ErrorCodeClient
	case codes.ResourceExhausted:
		return domain.ErrorCodeRecognizerBusy
	default:
		return domain.ErrorCodeServer
	}
}
