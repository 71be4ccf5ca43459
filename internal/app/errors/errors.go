package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind string

const (
	// KindTranscode means the external transcoding tool failed or could not be reached
	KindTranscode Kind = "transcode"
	// KindDecode means the transcoded audio could not be loaded or inferred on
	KindDecode Kind = "decode"
	// KindInput means the upload itself was unusable (e.g. empty)
	KindInput Kind = "input"
	// KindInternal covers scratch space and other local I/O failures
	KindInternal Kind = "internal"
)

// Stage names a step of the transcription pipeline
type Stage string

const (
	StageReceived    Stage = "received"
	StageStaged      Stage = "staged"
	StageTranscoded  Stage = "transcoded"
	StageNormalized  Stage = "normalized"
	StageTranscribed Stage = "transcribed"
	StageCleaned     Stage = "cleaned"
)

// Common error values
var (
	ErrEmptyInput       = New(KindInput, "audio payload is empty")
	ErrTranscoderAbsent = New(KindTranscode, "transcoder executable not found")
	ErrUnsupportedWAV   = New(KindDecode, "unsupported wav encoding")
	ErrNoAudioFrames    = New(KindDecode, "no audio frames")
)

// Error is a classified error with an optional cause and tool diagnostic
type Error struct {
	Kind       Kind
	Stage      Stage
	Diagnostic string
	message    string
	cause      error
}

// New creates a new error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, message: message}
}

// Wrap wraps an error with a kind and additional context
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		message: message,
		cause:   err,
	}
}

// Transcode builds a TranscodeError carrying the tool's diagnostic output
func Transcode(err error, diagnostic string) *Error {
	return &Error{
		Kind:       KindTranscode,
		message:    "transcoding failed",
		Diagnostic: diagnostic,
		cause:      err,
	}
}

// Decode builds a DecodeError
func Decode(err error, message string) *Error {
	return &Error{
		Kind:    KindDecode,
		message: message,
		cause:   err,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Diagnostic != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Diagnostic)
	}
	return msg
}

// Message returns the error message without cause or diagnostic
func (e *Error) Message() string {
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind and message
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.message == t.message
}

// AtStage returns a copy of e annotated with the stage it failed in
func (e *Error) AtStage(stage Stage) *Error {
	cp := *e
	cp.Stage = stage
	return &cp
}

// KindOf reports the kind of err, or KindInternal if err is not classified
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTranscode reports whether err is a TranscodeError
func IsTranscode(err error) bool {
	return err != nil && KindOf(err) == KindTranscode
}

// IsDecode reports whether err is a DecodeError
func IsDecode(err error) bool {
	return err != nil && KindOf(err) == KindDecode
}

// IsUnsupported reports whether err signals a wav encoding the loader cannot handle
func IsUnsupported(err error) bool {
	return stderrors.Is(err, ErrUnsupportedWAV)
}

// Classify returns err as *Error, wrapping unclassified errors as internal
func Classify(err error, stage Stage) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.Stage == "" {
			return e.AtStage(stage)
		}
		return e
	}
	return &Error{Kind: KindInternal, Stage: stage, message: "internal error", cause: err}
}
