package handlers

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"speech-backend/internal/api/errors"
	"speech-backend/internal/api/middleware"
	"speech-backend/internal/api/v1/dto"
	"speech-backend/internal/api/v1/services"
	apperrors "speech-backend/internal/app/errors"
)

// TranscriptionHandler handles transcription-related API endpoints
type TranscriptionHandler struct {
	service services.TranscriptionService
	logger  *zap.Logger
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(service services.TranscriptionService, logger *zap.Logger) *TranscriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptionHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/transcriptions
//
// @Summary Transcribe an audio upload
// @Description Transcodes the uploaded audio to 16 kHz mono, runs speech recognition and returns the transcript with pipeline metadata
// @Tags transcriptions
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "Audio file (webm, ogg, mp3, wav)"
// @Param language formData string false "Client language hint, logged only"
// @Success 200 {object} dto.TranscriptionResponse "Transcription result"
// @Failure 400 {object} errors.APIError "Bad request - missing or empty upload"
// @Failure 413 {object} errors.APIError "Upload too large"
// @Failure 422 {object} errors.APIError "Validation error"
// @Failure 500 {object} errors.APIError "Transcoding or decoding failed"
// @Router /api/v1/transcriptions [post]
func (h *TranscriptionHandler) Create(c *gin.Context) {
	upload, err := h.readUpload(c)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	response, err := h.service.Transcribe(c.Request.Context(), *upload)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// STT handles the legacy POST /stt endpoint
//
// @Summary Transcribe an audio upload (legacy)
// @Description Browser-recorder endpoint. Returns only the transcript; an empty string means no speech was recognized
// @Tags legacy
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "Audio file"
// @Success 200 {object} dto.TranscriptResponse "Transcript"
// @Failure 400 {object} dto.LegacyErrorResponse "No audio file"
// @Failure 500 {object} dto.LegacyErrorResponse "Transcoding or decoding failed"
// @Router /stt [post]
func (h *TranscriptionHandler) STT(c *gin.Context) {
	upload, err := h.readUpload(c)
	if err != nil {
		h.legacyError(c, err)
		return
	}

	response, err := h.service.Transcribe(c.Request.Context(), *upload)
	if err != nil {
		h.legacyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TranscriptResponse{Transcript: response.Transcript})
}

func (h *TranscriptionHandler) readUpload(c *gin.Context) (*dto.UploadedAudio, error) {
	var form dto.TranscriptionForm
	if err := middleware.ValidateForm(c, &form); err != nil {
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) && apiErr.Kind == errors.KindValidation {
			return nil, errors.NewBadRequestError("no audio file uploaded")
		}
		return nil, err
	}

	file, err := form.Audio.Open()
	if err != nil {
		return nil, errors.NewBadRequestError("cannot open uploaded audio")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewBadRequestError("cannot read uploaded audio")
	}

	requestID := middleware.GetRequestID(c)
	if lang := c.PostForm("language"); lang != "" {
		h.logger.Debug("Client language hint",
			zap.String("request_id", requestID),
			zap.String("language", lang),
		)
	}

	return &dto.UploadedAudio{
		Data:        data,
		ContentType: form.Audio.Header.Get("Content-Type"),
		Filename:    form.Audio.Filename,
		RequestID:   requestID,
	}, nil
}

// legacyError writes the flat {"error": "..."} body of the /stt contract
func (h *TranscriptionHandler) legacyError(c *gin.Context, err error) {
	apiErr := errors.FromPipeline(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), dto.LegacyErrorResponse{Error: LegacyMessage(err)})
}

// LegacyMessage renders err as "<stage> failed: <detail>". Transcode
// failures keep the "transcoding failed" prefix with the first line of the
// ffmpeg diagnostic.
func LegacyMessage(err error) string {
	var perr *apperrors.Error
	if !stderrors.As(err, &perr) {
		return errors.FromPipeline(err).Message
	}

	switch perr.Kind {
	case apperrors.KindTranscode:
		if line := firstLine(perr.Diagnostic); line != "" {
			return fmt.Sprintf("%s: %s", perr.Message(), line)
		}
		return perr.Message()
	case apperrors.KindDecode:
		return "decoding failed: " + perr.Message()
	case apperrors.KindInput:
		return perr.Message()
	default:
		return "internal error"
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
