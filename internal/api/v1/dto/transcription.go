package dto

import (
	"mime/multipart"

	"speech-backend/internal/api/errors"
)

// UploadFieldName is the multipart field carrying the audio blob
const UploadFieldName = "audio"

// TranscriptionForm is the multipart body of a transcription request
type TranscriptionForm struct {
	Audio *multipart.FileHeader `form:"audio" binding:"required"`
}

// Validate performs domain-specific validation
func (f *TranscriptionForm) Validate() error {
	if f.Audio.Size == 0 {
		return errors.NewBadRequestError("uploaded audio is empty")
	}
	return nil
}

// UploadedAudio is a received audio blob handed to the service layer
type UploadedAudio struct {
	Data        []byte
	ContentType string
	Filename    string
	RequestID   string
}

// TranscriptResponse is the legacy /stt response body
type TranscriptResponse struct {
	Transcript string `json:"transcript" example:"And so my fellow Americans"`
}

// LegacyErrorResponse is the legacy /stt error body
type LegacyErrorResponse struct {
	Error string `json:"error" example:"transcoding failed: Invalid data found when processing input"`
}

// TranscriptionResponse represents a transcription in API responses
type TranscriptionResponse struct {
	Transcript    string  `json:"transcript"`
	IsEmpty       bool    `json:"is_empty"`
	Attempts      int     `json:"attempts" example:"1"`
	Engine        string  `json:"engine" example:"whisper_cpp"`
	Language      string  `json:"language,omitempty" example:"en"`
	Format        string  `json:"format" example:"webm"`
	Degraded      bool    `json:"degraded"`
	AudioDuration float64 `json:"audio_duration_s" example:"2.5"`
	RequestID     string  `json:"request_id"`
	DurationMs    int64   `json:"duration_ms" example:"840"`
}

// RootResponse is returned by GET /
type RootResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	OK     bool              `json:"ok"`
	Status string            `json:"status" example:"healthy"`
	Engine string            `json:"engine,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}
