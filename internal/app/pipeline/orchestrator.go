package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/audio"
	apperrors "speech-backend/internal/app/errors"
	"speech-backend/internal/app/metrics"
)

const (
	inputBaseName      = "input"
	normalizedBaseName = "normalized.wav"
)

// Transcoder converts a staged upload into a 16 kHz mono WAV
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Transcriber runs the retrying ASR policy
type Transcriber interface {
	Transcribe(ctx context.Context, in asr.Input) (asr.Result, error)
}

// WaveformLoader decodes a normalized WAV file
type WaveformLoader func(path string) (*audio.Waveform, error)

// Upload is one audio payload to transcribe
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
	RequestID   string
}

// Outcome describes a successful run
type Outcome struct {
	Result        asr.Result
	Stage         apperrors.Stage
	Format        audio.Format
	Degraded      bool
	AudioDuration time.Duration
	Duration      time.Duration
}

// Options configures an Orchestrator
type Options struct {
	// ScratchRoot is the parent of per-request scratch directories. Empty
	// means os.TempDir().
	ScratchRoot string
	// PathFallback hands the normalized WAV path to the engine when the
	// waveform cannot be loaded, instead of failing the request.
	PathFallback bool
}

// Orchestrator drives one upload through staging, transcoding,
// normalization and transcription, and always removes what it staged.
type Orchestrator struct {
	transcoder   Transcoder
	transcriber  Transcriber
	load         WaveformLoader
	scratchRoot  string
	pathFallback bool
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewOrchestrator creates an orchestrator. The transcoder and transcriber
// are shared by every request.
func NewOrchestrator(transcoder Transcoder, transcriber Transcriber, opts Options, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		transcoder:   transcoder,
		transcriber:  transcriber,
		load:         audio.LoadWaveform,
		scratchRoot:  opts.ScratchRoot,
		pathFallback: opts.PathFallback,
		logger:       logger,
		metrics:      m,
	}
}

// WithLoader replaces the waveform loader
func (o *Orchestrator) WithLoader(load WaveformLoader) *Orchestrator {
	o.load = load
	return o
}

// ScratchRoot returns the directory scratch workspaces are created in
func (o *Orchestrator) ScratchRoot() string {
	if o.scratchRoot == "" {
		return os.TempDir()
	}
	return o.scratchRoot
}

// Process transcribes one upload. Failures are returned as *apperrors.Error
// carrying the stage that failed. Scratch files are removed on every path.
func (o *Orchestrator) Process(ctx context.Context, up Upload) (*Outcome, error) {
	start := time.Now()
	logger := o.logger.With(zap.String("request_id", up.RequestID))

	outcome, err := o.run(ctx, up, logger)
	if err != nil {
		perr := apperrors.Classify(err, apperrors.StageReceived)
		o.metrics.RecordStageFailure(string(perr.Stage), string(perr.Kind))
		o.metrics.RecordRequest("error")
		logger.Warn("Transcription failed",
			zap.String("stage", string(perr.Stage)),
			zap.String("kind", string(perr.Kind)),
			zap.Error(perr),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, perr
	}

	outcome.Duration = time.Since(start)
	if outcome.Result.IsEmpty {
		o.metrics.RecordRequest("empty")
	} else {
		o.metrics.RecordRequest("success")
	}
	logger.Info("Transcription finished",
		zap.String("format", outcome.Format.String()),
		zap.String("engine", outcome.Result.Engine),
		zap.Int("attempts", outcome.Result.Attempts),
		zap.Bool("empty", outcome.Result.IsEmpty),
		zap.Bool("degraded", outcome.Degraded),
		zap.Duration("audio", outcome.AudioDuration),
		zap.Duration("elapsed", outcome.Duration),
	)
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, up Upload, logger *zap.Logger) (outcome *Outcome, err error) {
	// Received
	if len(up.Data) == 0 {
		return nil, apperrors.ErrEmptyInput.AtStage(apperrors.StageReceived)
	}
	format := audio.DetectFormat(up.ContentType, up.Filename)

	// Staged
	stageStart := time.Now()
	ws, err := newWorkspace(o.ScratchRoot(), up.RequestID)
	if err != nil {
		return nil, apperrors.Classify(apperrors.Wrap(err, apperrors.KindInternal, "failed to create scratch space"), apperrors.StageStaged)
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			o.metrics.RecordCleanupFailure()
			logger.Warn("Failed to remove scratch space", zap.String("dir", ws.Dir()), zap.Error(cerr))
			return
		}
		if outcome != nil {
			outcome.Stage = apperrors.StageCleaned
		}
	}()

	inputPath, err := ws.Write(inputBaseName+format.Suffix(), up.Data)
	if err != nil {
		return nil, apperrors.Classify(apperrors.Wrap(err, apperrors.KindInternal, "failed to stage upload"), apperrors.StageStaged)
	}
	o.metrics.RecordStage(string(apperrors.StageStaged), time.Since(stageStart).Seconds())

	// Transcoded
	stageStart = time.Now()
	wavPath := ws.Path(normalizedBaseName)
	if err := o.transcoder.Transcode(ctx, inputPath, wavPath); err != nil {
		return nil, apperrors.Classify(err, apperrors.StageTranscoded)
	}
	o.metrics.RecordStage(string(apperrors.StageTranscoded), time.Since(stageStart).Seconds())

	// Normalized
	stageStart = time.Now()
	input := asr.Input{Path: wavPath}
	degraded := false
	var audioDuration time.Duration
	wf, err := o.load(wavPath)
	switch {
	case err == nil:
		input.Samples = wf.Samples
		input.SampleRate = wf.SampleRate
		audioDuration = wf.Duration()
		o.metrics.RecordAudio(audioDuration.Seconds())
	case o.pathFallback && apperrors.IsDecode(err):
		degraded = true
		o.metrics.RecordDegraded()
		logger.Warn("Waveform unavailable, passing file path to engine", zap.Error(err))
	default:
		return nil, apperrors.Classify(err, apperrors.StageNormalized)
	}
	o.metrics.RecordStage(string(apperrors.StageNormalized), time.Since(stageStart).Seconds())

	// Transcribed
	stageStart = time.Now()
	result, err := o.transcriber.Transcribe(ctx, input)
	if err != nil {
		return nil, apperrors.Classify(err, apperrors.StageTranscribed)
	}
	o.metrics.RecordStage(string(apperrors.StageTranscribed), time.Since(stageStart).Seconds())

	return &Outcome{
		Result:        result,
		Stage:         apperrors.StageTranscribed,
		Format:        format,
		Degraded:      degraded,
		AudioDuration: audioDuration,
	}, nil
}

// workspace is the per-request scratch directory
type workspace struct {
	dir string
}

func newWorkspace(root, requestID string) (*workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	pattern := "stt-*"
	if requestID != "" {
		pattern = "stt-" + sanitize(requestID) + "-*"
	}
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, err
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) Dir() string { return w.dir }

func (w *workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) Write(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup removes the directory and everything in it. Removing a directory
// that is already gone is not an error.
func (w *workspace) Cleanup() error {
	return os.RemoveAll(w.dir)
}

// sanitize keeps request ids usable as a path component
func sanitize(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		}
		if len(out) == 36 {
			break
		}
	}
	return string(out)
}
