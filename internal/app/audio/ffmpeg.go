package audio

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	apperrors "speech-backend/internal/app/errors"
)

const (
	// TargetSampleRate is the rate every normalized waveform is delivered at
	TargetSampleRate = 16000
	// TargetChannels is the channel count every normalized waveform is delivered with
	TargetChannels = 1

	ffmpegName          = "ffmpeg"
	maxDiagnosticLength = 2048
	defaultTimeout      = 60 * time.Second
	probeTimeout        = 10 * time.Second
	waitDelay           = 2 * time.Second
)

// wellKnownFFmpegDirs are searched when the binary is neither configured nor on PATH
var wellKnownFFmpegDirs = []string{
	"/usr/bin",
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/opt/local/bin",
	"/snap/bin",
}

// Transcoder converts arbitrary container audio into 16 kHz mono PCM WAV using
// an ffmpeg executable resolved once at startup.
type Transcoder struct {
	path    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewTranscoder creates a Transcoder around an already resolved ffmpeg path
func NewTranscoder(path string, timeout time.Duration, logger *zap.Logger) *Transcoder {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcoder{
		path:    path,
		timeout: timeout,
		logger:  logger,
	}
}

// Path returns the absolute ffmpeg path used for every invocation
func (t *Transcoder) Path() string {
	return t.path
}

// Args builds the ffmpeg argument list for a conversion
func (t *Transcoder) Args(inputPath, outputPath string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(TargetSampleRate),
		"-ac", strconv.Itoa(TargetChannels),
		"-f", "wav",
		outputPath,
	}
}

// Transcode converts inputPath into a 16 kHz mono WAV at outputPath. Any
// failure, including a timeout, is returned as a TranscodeError carrying
// ffmpeg's stderr.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return apperrors.Transcode(err, "input not readable")
	}
	if info.Size() == 0 {
		return apperrors.ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := t.Args(inputPath, outputPath)
	cmd := exec.CommandContext(ctx, t.path, args...)

	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.logger.Debug("Running ffmpeg",
		zap.String("binary", t.path),
		zap.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperrors.Transcode(ctx.Err(), fmt.Sprintf("timed out after %s", t.timeout))
		}
		return apperrors.Transcode(err, truncate(strings.TrimSpace(stderr.String())))
	}

	t.logger.Debug("ffmpeg conversion completed",
		zap.String("output", outputPath),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// ResolveFFmpeg finds and validates the ffmpeg executable. A configured path
// wins; otherwise PATH and a list of well-known directories are searched.
// The returned path is absolute.
func ResolveFFmpeg(ctx context.Context, configured string) (string, error) {
	candidates := make([]string, 0, len(wellKnownFFmpegDirs)+2)
	if configured != "" {
		candidates = append(candidates, configured)
	} else {
		if p, err := exec.LookPath(ffmpegName); err == nil {
			candidates = append(candidates, p)
		}
		for _, dir := range wellKnownFFmpegDirs {
			candidates = append(candidates, filepath.Join(dir, binaryName(ffmpegName)))
		}
	}

	var lastErr error
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if err := checkExecutable(abs); err != nil {
			lastErr = err
			continue
		}
		if err := probeFFmpeg(ctx, abs); err != nil {
			lastErr = err
			continue
		}
		return abs, nil
	}

	if lastErr == nil {
		return "", apperrors.ErrTranscoderAbsent
	}
	return "", apperrors.Wrap(lastErr, apperrors.KindTranscode, apperrors.ErrTranscoderAbsent.Message())
}

// EnsureAlias makes target reachable as dir/ffmpeg so tools that look the
// binary up by name in a directory list can find it. It is idempotent.
func EnsureAlias(dir, target string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create alias dir: %w", err)
	}

	link := filepath.Join(dir, binaryName(ffmpegName))
	if link == target {
		return link, nil
	}

	if existing, err := os.Readlink(link); err == nil {
		if existing == target {
			return link, nil
		}
		if err := os.Remove(link); err != nil {
			return "", fmt.Errorf("replace stale alias: %w", err)
		}
	} else if _, statErr := os.Lstat(link); statErr == nil {
		// a regular file is in the way
		if err := os.Remove(link); err != nil {
			return "", fmt.Errorf("replace alias file: %w", err)
		}
	}

	if err := os.Symlink(target, link); err != nil {
		if os.IsExist(err) {
			return link, nil
		}
		return "", fmt.Errorf("create alias: %w", err)
	}
	return link, nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func probeFFmpeg(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("%s -version: %w", path, err)
	}
	if !bytes.Contains(bytes.ToLower(out), []byte("ffmpeg")) {
		return fmt.Errorf("%s does not look like ffmpeg", path)
	}
	return nil
}

func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func truncate(s string) string {
	if len(s) <= maxDiagnosticLength {
		return s
	}
	return s[len(s)-maxDiagnosticLength:]
}
