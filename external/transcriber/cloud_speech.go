package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

var (
	errConfigNotSent       = errors.New("audio sent before recognition config")
	errConfigAlreadySent   = errors.New("recognition config already sent")
	errUnsupportedEncoding = errors.New("encoding not supported by cloud speech")
)

type CloudSpeechConfig struct {
	CredentialsJSON string
	// Endpoint overrides the default service address, e.g. a local gateway.
	Endpoint string
	// Insecure dials Endpoint over plaintext gRPC without credentials.
	Insecure bool
}

// CloudSpeechTransport opens Cloud Speech-to-Text streaming recognitions. Each stream
// owns its own client connection.
type CloudSpeechTransport struct {
	cfg    CloudSpeechConfig
	logger *slog.Logger
}

func NewCloudSpeechTransport(cfg CloudSpeechConfig, logger *slog.Logger) *CloudSpeechTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudSpeechTransport{
		cfg: CloudSpeechConfig{
			CredentialsJSON: cfg.CredentialsJSON,
			Endpoint:        strings.TrimSpace(cfg.Endpoint),
			Insecure:        cfg.Insecure,
		},
		logger: logger,
	}
}

func (t *CloudSpeechTransport) clientOptions() ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if t.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.cfg.Endpoint))
	}
	if t.cfg.Insecure {
		return append(opts,
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		), nil
	}

	detect := &credentials.DetectOptions{Scopes: []string{cloudPlatformScope}}
	if t.cfg.CredentialsJSON != "" {
		detect.CredentialsJSON = []byte(t.cfg.CredentialsJSON)
	}
	creds, err := credentials.DetectDefault(detect)
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	return append(opts, option.WithAuthCredentials(creds)), nil
}

func (t *CloudSpeechTransport) Open(ctx context.Context) (recognition.Stream, error) {
	opts, err := t.clientOptions()
	if err != nil {
		return nil, err
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start streaming recognize: %w", err)
	}
	t.logger.Debug("cloud speech stream opened", "endpoint", t.cfg.Endpoint, "insecure", t.cfg.Insecure)
	return newCloudSpeechStream(stream, client.Close, t.logger), nil
}

type cloudSpeechStream struct {
	stream     speechpb.Speech_StreamingRecognizeClient
	closeFn    func() error
	logger     *slog.Logger
	configSent atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newCloudSpeechStream(stream speechpb.Speech_StreamingRecognizeClient, closeFn func() error, logger *slog.Logger) *cloudSpeechStream {
	return &cloudSpeechStream{stream: stream, closeFn: closeFn, logger: logger}
}

func (s *cloudSpeechStream) Send(req recognition.Request) error {
	switch r := req.(type) {
	case recognition.ConfigRequest:
		if s.configSent.Load() {
			return errConfigAlreadySent
		}
		cfg, err := toStreamingConfig(r.Config, s.logger)
		if err != nil {
			return err
		}
		if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{StreamingConfig: cfg},
		}); err != nil {
			return describeStreamError(err)
		}
		s.configSent.Store(true)
		return nil
	case recognition.AudioRequest:
		if !s.configSent.Load() {
			return errConfigNotSent
		}
		if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: r.Chunk.Data},
		}); err != nil {
			return describeStreamError(err)
		}
		return nil
	default:
		return fmt.Errorf("unknown recognition request %T", req)
	}
}

func (s *cloudSpeechStream) CloseSend() error {
	return s.stream.CloseSend()
}

func (s *cloudSpeechStream) Recv() (recognition.Response, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return recognition.Response{}, io.EOF
	}
	if err != nil {
		return recognition.Response{}, describeStreamError(err)
	}
	if st := resp.GetError(); st != nil && st.GetCode() != int32(codes.OK) {
		return recognition.Response{}, describeStreamError(status.ErrorProto(st))
	}
	if ev := resp.GetSpeechEventType(); ev != speechpb.StreamingRecognizeResponse_SPEECH_EVENT_UNSPECIFIED {
		s.logger.Debug("speech event", "event", ev.String())
	}
	return fromResponse(resp), nil
}

func (s *cloudSpeechStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.closeFn()
	})
	return s.closeErr
}

func toEncoding(enc recognition.Encoding) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch enc {
	case recognition.EncodingLinearPCM:
		return speechpb.RecognitionConfig_LINEAR16, nil
	case recognition.EncodingFLAC:
		return speechpb.RecognitionConfig_FLAC, nil
	case recognition.EncodingMulaw:
		return speechpb.RecognitionConfig_MULAW, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("%w: %s", errUnsupportedEncoding, enc)
	}
}

func toStreamingConfig(cfg recognition.Config, logger *slog.Logger) (*speechpb.StreamingRecognitionConfig, error) {
	enc, err := toEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	rc := &speechpb.RecognitionConfig{
		Encoding:                   enc,
		SampleRateHertz:            int32(cfg.SampleRateHertz),
		AudioChannelCount:          int32(cfg.AudioChannelCount),
		LanguageCode:               cfg.LanguageCode,
		MaxAlternatives:            int32(cfg.MaxAlternatives),
		ProfanityFilter:            cfg.ProfanityFilter,
		EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
		Model:                      cfg.Model,
		SpeechContexts:             toSpeechContexts(cfg.WordBoosts),
	}
	sc := &speechpb.StreamingRecognitionConfig{
		Config:         rc,
		InterimResults: cfg.InterimResults,
	}

	e := cfg.Endpointing
	if !e.IsUnset() {
		timeout := &speechpb.StreamingRecognitionConfig_VoiceActivityTimeout{}
		if e.StartHistory != recognition.UnsetHistory {
			timeout.SpeechStartTimeout = durationpb.New(time.Duration(e.StartHistory) * time.Millisecond)
		}
		if e.StopHistory != recognition.UnsetHistory {
			timeout.SpeechEndTimeout = durationpb.New(time.Duration(e.StopHistory) * time.Millisecond)
		}
		if timeout.SpeechStartTimeout != nil || timeout.SpeechEndTimeout != nil {
			sc.EnableVoiceActivityEvents = true
			sc.VoiceActivityTimeout = timeout
		}
		if e.StartThreshold != recognition.UnsetThreshold || e.StopThreshold != recognition.UnsetThreshold || e.StopHistoryEOU != recognition.UnsetHistory || e.StopThresholdEOU != recognition.UnsetThreshold {
			logger.Warn("endpointing thresholds and end-of-utterance settings are not supported by cloud speech; ignoring them")
		}
	}
	if !cfg.VerbatimTranscripts {
		logger.Warn("inverse text normalization cannot be requested from cloud speech; transcripts stay verbatim")
	}
	if cfg.CustomConfiguration != "" {
		logger.Warn("custom configuration is not supported by cloud speech; ignoring", "custom_configuration", cfg.CustomConfiguration)
	}
	return sc, nil
}

// toSpeechContexts groups boosted words by score, keeping the order in which each score
// first appears.
func toSpeechContexts(boosts []recognition.WordBoost) []*speechpb.SpeechContext {
	var contexts []*speechpb.SpeechContext
	byScore := make(map[float64]*speechpb.SpeechContext)
	for _, b := range boosts {
		sc, ok := byScore[b.Score]
		if !ok {
			sc = &speechpb.SpeechContext{Boost: float32(b.Score)}
			byScore[b.Score] = sc
			contexts = append(contexts, sc)
		}
		sc.Phrases = append(sc.Phrases, b.Word)
	}
	return contexts
}

func fromResponse(resp *speechpb.StreamingRecognizeResponse) recognition.Response {
	results := make([]recognition.Result, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := make([]recognition.Alternative, 0, len(r.GetAlternatives()))
		for _, a := range r.GetAlternatives() {
			alts = append(alts, recognition.Alternative{
				Transcript: a.GetTranscript(),
				Confidence: float64(a.GetConfidence()),
			})
		}
		results = append(results, recognition.Result{
			Alternatives: alts,
			IsFinal:      r.GetIsFinal(),
			Stability:    float64(r.GetStability()),
		})
	}
	return recognition.Response{Results: results}
}

// describeStreamError annotates well-known service terminations. The original error stays
// in the chain for errors.Is and status.FromError.
func describeStreamError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := strings.ToLower(st.Message())
	switch {
	case st.Code() == codes.Aborted && strings.Contains(msg, "max duration"):
		return fmt.Errorf("stream exceeded the service duration limit: %w", err)
	case st.Code() == codes.OutOfRange && strings.Contains(msg, "audio timeout"):
		return fmt.Errorf("audio was not sent in real time: %w", err)
	case st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied:
		return fmt.Errorf("check speech credentials: %w", err)
	default:
		return fmt.Errorf("cloud speech %s: %w", st.Code(), err)
	}
}
