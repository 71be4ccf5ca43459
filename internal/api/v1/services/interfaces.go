package services

import (
	"context"

	"speech-backend/internal/api/v1/dto"
)

// TranscriptionService defines the interface for transcription operations
type TranscriptionService interface {
	Transcribe(ctx context.Context, upload dto.UploadedAudio) (*dto.TranscriptionResponse, error)
}

// HealthService reports whether the process can serve transcriptions
type HealthService interface {
	Check(ctx context.Context) (*dto.HealthResponse, error)
}
