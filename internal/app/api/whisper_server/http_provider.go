package whisper_server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/audio"
)

const (
	EngineName = "whisper_server"

	inferencePath = "/inference"
	maxErrorBody  = 512
)

func init() {
	asr.Register(EngineName, func(cfg asr.EngineConfig, logger *zap.Logger) (asr.Engine, error) {
		return NewWhisperServerProvider(cfg.BaseURL, nil, logger)
	})
}

// WhisperServerProvider transcribes via HTTP to a whisper-server instance.
// The server decodes one request at a time, so calls are serialized.
type WhisperServerProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// WhisperServerResponse is the json body returned by /inference
type WhisperServerResponse struct {
	Text             string `json:"text"`
	Language         string `json:"language,omitempty"`
	DetectedLanguage string `json:"detected_language,omitempty"`
	Error            string `json:"error,omitempty"`
}

// NewWhisperServerProvider creates a new whisper-server HTTP provider. The
// call deadline comes from the request context.
func NewWhisperServerProvider(baseURL string, client *http.Client, logger *zap.Logger) (*WhisperServerProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base_url is required for the %s engine", EngineName)
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperServerProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}, nil
}

func (wsp *WhisperServerProvider) Name() string { return EngineName }

func (wsp *WhisperServerProvider) ConcurrencySafe() bool { return false }

// Transcribe implements asr.Engine
func (wsp *WhisperServerProvider) Transcribe(ctx context.Context, in asr.Input, params asr.Params) (*asr.Output, error) {
	body, contentType, err := wsp.createMultipartForm(in, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, wsp.baseURL+inferencePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := wsp.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper-server returned status %d: %s", resp.StatusCode, truncate(string(responseData)))
	}

	var parsed WhisperServerResponse
	if err := json.Unmarshal(responseData, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("whisper-server error: %s", parsed.Error)
	}

	language := parsed.Language
	if language == "" {
		language = parsed.DetectedLanguage
	}
	wsp.logger.Debug("Inference finished", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(responseData)))

	return &asr.Output{
		Text:     strings.TrimSpace(parsed.Text),
		Language: language,
	}, nil
}

// createMultipartForm builds the /inference form. In-memory samples are
// encoded as WAV, otherwise the file at in.Path is sent.
func (wsp *WhisperServerProvider) createMultipartForm(in asr.Input, params asr.Params) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := "audio.wav"
	var src io.Reader
	if in.HasSamples() {
		data, err := audio.EncodeWAV(in.Samples, in.SampleRate)
		if err != nil {
			return nil, "", err
		}
		src = bytes.NewReader(data)
	} else {
		file, err := os.Open(in.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()
		filename = filepath.Base(in.Path)
		src = file
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to copy file content: %w", err)
	}

	language := params.Language
	if language == asr.AutoDetect {
		language = "auto"
	}
	fields := [][2]string{
		{"response_format", "json"},
		{"language", language},
	}
	if params.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(float64(*params.Temperature), 'f', 2, 32)})
	}
	if params.BestOf != nil {
		fields = append(fields, [2]string{"best_of", strconv.Itoa(*params.BestOf)})
	}
	if params.Verbose {
		fields = append(fields, [2]string{"print_progress", "true"})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// HealthCheck performs a health check on the provider
func (wsp *WhisperServerProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wsp.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := wsp.client.Do(req)
	if err != nil {
		return fmt.Errorf("server connectivity test failed: %w", err)
	}
	defer resp.Body.Close()

	// a 404 still means the server is up
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server returned error status: %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
