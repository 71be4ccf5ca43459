package services

import (
	"context"
	"fmt"
	"os"

	"speech-backend/internal/api/v1/dto"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/pipeline"
)

// Processor runs one upload through the pipeline
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*pipeline.Outcome, error)
}

// TranscriptionServiceImpl implements TranscriptionService
type TranscriptionServiceImpl struct {
	processor Processor
}

// NewTranscriptionService creates a new transcription service
func NewTranscriptionService(processor Processor) TranscriptionService {
	return &TranscriptionServiceImpl{processor: processor}
}

// Transcribe runs the pipeline synchronously and shapes its outcome
func (s *TranscriptionServiceImpl) Transcribe(ctx context.Context, upload dto.UploadedAudio) (*dto.TranscriptionResponse, error) {
	outcome, err := s.processor.Process(ctx, pipeline.Upload{
		Data:        upload.Data,
		ContentType: upload.ContentType,
		Filename:    upload.Filename,
		RequestID:   upload.RequestID,
	})
	if err != nil {
		return nil, err
	}

	return &dto.TranscriptionResponse{
		Transcript:    outcome.Result.Text,
		IsEmpty:       outcome.Result.IsEmpty,
		Attempts:      outcome.Result.Attempts,
		Engine:        outcome.Result.Engine,
		Language:      outcome.Result.Language,
		Format:        outcome.Format.String(),
		Degraded:      outcome.Degraded,
		AudioDuration: outcome.AudioDuration.Seconds(),
		RequestID:     upload.RequestID,
		DurationMs:    outcome.Duration.Milliseconds(),
	}, nil
}

// HealthServiceImpl implements HealthService
type HealthServiceImpl struct {
	engine      asr.Engine
	ffmpegPath  string
	scratchRoot string
}

// NewHealthService creates a health service checking the engine, the
// resolved ffmpeg binary and the scratch directory
func NewHealthService(engine asr.Engine, ffmpegPath, scratchRoot string) HealthService {
	return &HealthServiceImpl{
		engine:      engine,
		ffmpegPath:  ffmpegPath,
		scratchRoot: scratchRoot,
	}
}

// Check reports every dependency; the response is unhealthy when any fails
func (s *HealthServiceImpl) Check(ctx context.Context) (*dto.HealthResponse, error) {
	resp := &dto.HealthResponse{
		OK:     true,
		Status: "healthy",
		Checks: map[string]string{},
	}
	fail := func(name string, err error) {
		resp.OK = false
		resp.Status = "unhealthy"
		resp.Checks[name] = err.Error()
	}

	if s.engine != nil {
		resp.Engine = s.engine.Name()
		resp.Checks["engine"] = "ok"
		if hc, ok := s.engine.(asr.HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				fail("engine", err)
			}
		}
	}

	if s.ffmpegPath != "" {
		resp.Checks["ffmpeg"] = "ok"
		if _, err := os.Stat(s.ffmpegPath); err != nil {
			fail("ffmpeg", fmt.Errorf("ffmpeg missing: %w", err))
		}
	}

	if s.scratchRoot != "" {
		resp.Checks["scratch"] = "ok"
		if info, err := os.Stat(s.scratchRoot); err != nil {
			fail("scratch", err)
		} else if !info.IsDir() {
			fail("scratch", fmt.Errorf("%s is not a directory", s.scratchRoot))
		}
	}
	return resp, nil
}
