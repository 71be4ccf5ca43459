package audio

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Format is the container hinted by an upload. It only picks a file suffix,
// ffmpeg probes the actual content.
type Format string

const (
	FormatWebM    Format = "webm"
	FormatOGG     Format = "ogg"
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatUnknown Format = "unknown"
)

// DefaultSuffix is used when the hint names no known container. Browser
// recorders produce webm by default.
const DefaultSuffix = ".webm"

var contentTypeFormats = map[string]Format{
	"audio/webm":      FormatWebM,
	"video/webm":      FormatWebM,
	"audio/ogg":       FormatOGG,
	"audio/opus":      FormatOGG,
	"application/ogg": FormatOGG,
	"audio/mpeg":      FormatMP3,
	"audio/mp3":       FormatMP3,
	"audio/mpeg3":     FormatMP3,
	"audio/wav":       FormatWAV,
	"audio/wave":      FormatWAV,
	"audio/x-wav":     FormatWAV,
	"audio/vnd.wave":  FormatWAV,
}

var extensionFormats = map[string]Format{
	".webm": FormatWebM,
	".weba": FormatWebM,
	".ogg":  FormatOGG,
	".oga":  FormatOGG,
	".opus": FormatOGG,
	".mp3":  FormatMP3,
	".wav":  FormatWAV,
	".wave": FormatWAV,
}

// KnownFormats lists the containers with a dedicated suffix
var KnownFormats = []Format{FormatWebM, FormatOGG, FormatMP3, FormatWAV}

// DetectFormat derives a Format from an advisory content type, falling back
// to the filename extension.
func DetectFormat(contentType, filename string) Format {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		}
		if f, ok := contentTypeFormats[strings.ToLower(mediaType)]; ok {
			return f
		}
	}
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return FormatUnknown
}

// ParseFormat maps a name like "mp3" to a Format
func ParseFormat(name string) Format {
	f := Format(strings.ToLower(strings.TrimPrefix(name, ".")))
	if lo.Contains(KnownFormats, f) {
		return f
	}
	return FormatUnknown
}

// Suffix returns the temp file suffix for f, including the leading dot
func (f Format) Suffix() string {
	if !lo.Contains(KnownFormats, f) {
		return DefaultSuffix
	}
	return "." + string(f)
}

func (f Format) String() string {
	return string(f)
}
