package asr

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// AutoDetect is the language value that lets the engine pick the language
const AutoDetect = ""

// Input is the audio handed to an engine. Samples are mono float32 at
// SampleRate. Path points at a 16 kHz mono WAV holding the same audio, or is
// the only form available when the waveform could not be loaded.
type Input struct {
	Samples    []float32
	SampleRate int
	Path       string
}

// HasSamples reports whether an in-memory waveform is available
func (in Input) HasSamples() bool {
	return len(in.Samples) > 0 && in.SampleRate > 0
}

// Validate checks that at least one audio form is present
func (in Input) Validate() error {
	if !in.HasSamples() && in.Path == "" {
		return fmt.Errorf("asr input has neither samples nor a file path")
	}
	return nil
}

// Params are the decoding options for one engine call. Nil pointers leave
// the engine default in place.
type Params struct {
	Language    string
	Temperature *float32
	BestOf      *int
	Verbose     bool
}

// PrimaryParams are used for the first attempt: auto-detect the language and
// keep every engine default.
func PrimaryParams() Params {
	return Params{Language: AutoDetect}
}

// RetryParams are used once when the first attempt came back empty: force
// English and greedy, deterministic decoding.
func RetryParams() Params {
	return Params{
		Language:    "en",
		Temperature: lo.ToPtr(float32(0)),
		BestOf:      lo.ToPtr(1),
		Verbose:     true,
	}
}

// String renders params for logs
func (p Params) String() string {
	parts := []string{"language=" + lo.Ternary(p.Language == AutoDetect, "auto", p.Language)}
	if p.Temperature != nil {
		parts = append(parts, fmt.Sprintf("temperature=%.2f", *p.Temperature))
	}
	if p.BestOf != nil {
		parts = append(parts, fmt.Sprintf("best_of=%d", *p.BestOf))
	}
	if p.Verbose {
		parts = append(parts, "verbose")
	}
	return strings.Join(parts, " ")
}

// Output is what an engine returns for one call
type Output struct {
	Text     string
	Language string
}

// Engine is a speech recognition backend. Implementations are built once at
// startup and shared by every request.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, in Input, params Params) (*Output, error)
	// ConcurrencySafe reports whether Transcribe may run concurrently on the
	// same handle
	ConcurrencySafe() bool
}

// HealthChecker is implemented by engines that can verify their backend
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Result is the transcript of one request
type Result struct {
	Text     string `json:"text"`
	IsEmpty  bool   `json:"is_empty"`
	Language string `json:"language,omitempty"`
	Engine   string `json:"engine"`
	Attempts int    `json:"attempts"`
}

func newResult(engine string, out *Output, attempts int) Result {
	text := strings.TrimSpace(out.Text)
	return Result{
		Text:     text,
		IsEmpty:  text == "",
		Language: out.Language,
		Engine:   engine,
		Attempts: attempts,
	}
}
