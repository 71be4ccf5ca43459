package whisper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"speech-backend/internal/app/api/asr"
	openaiclient "speech-backend/internal/app/api/openai"
	"speech-backend/internal/app/audio"
)

const EngineName = "openai"

func init() {
	asr.Register(EngineName, func(cfg asr.EngineConfig, logger *zap.Logger) (asr.Engine, error) {
		client, err := openaiclient.NewClient(cfg.APIKey, cfg.APIBaseURL, cfg.Organization)
		if err != nil {
			return nil, err
		}
		return NewRemoteTranscriber(client, cfg.Model, logger), nil
	})
}

// RemoteTranscriber implements remote transcription using the OpenAI API.
type RemoteTranscriber struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewRemoteTranscriber creates a new RemoteTranscriber instance. Local model
// variants such as "base.en" are not served by the API and map to whisper-1.
func NewRemoteTranscriber(client *openai.Client, model string, logger *zap.Logger) *RemoteTranscriber {
	if !isHostedModel(model) {
		model = openai.Whisper1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteTranscriber{client: client, model: model, logger: logger}
}

func isHostedModel(model string) bool {
	return strings.HasPrefix(model, "whisper-") || strings.Contains(model, "transcribe")
}

func (rt *RemoteTranscriber) Name() string { return EngineName }

func (rt *RemoteTranscriber) ConcurrencySafe() bool { return true }

// Model returns the hosted model name sent with each request
func (rt *RemoteTranscriber) Model() string { return rt.model }

// Transcribe uses the OpenAI API for remote transcription.
func (rt *RemoteTranscriber) Transcribe(ctx context.Context, in asr.Input, params asr.Params) (*asr.Output, error) {
	req := openai.AudioRequest{
		Model:    rt.model,
		Language: params.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}

	if in.HasSamples() {
		data, err := audio.EncodeWAV(in.Samples, in.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to encode samples: %w", err)
		}
		req.Reader = bytes.NewReader(data)
		req.FilePath = "audio.wav"
	} else {
		file, err := os.Open(in.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()
		req.Reader = file
		req.FilePath = filepath.Base(in.Path)
	}

	resp, err := rt.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("createTranscription failed: %w", err)
	}

	rt.logger.Debug("Transcription received",
		zap.String("model", rt.model),
		zap.String("language", resp.Language),
		zap.Float64("duration", resp.Duration),
	)
	return &asr.Output{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
	}, nil
}
