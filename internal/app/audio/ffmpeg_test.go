package audio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "speech-backend/internal/app/errors"
)

// writeFakeFFmpeg creates a shell script standing in for ffmpeg. It answers
// -version and runs body for everything else.
func writeFakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"-version\" ]; then echo 'ffmpeg version 6.1-fake'; exit 0; fi\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.webm")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestResolveFFmpeg_ConfiguredPath(t *testing.T) {
	fake := writeFakeFFmpeg(t, "exit 0")

	resolved, err := ResolveFFmpeg(context.Background(), fake)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
	assert.Equal(t, fake, resolved)
}

func TestResolveFFmpeg_MissingConfiguredPath(t *testing.T) {
	_, err := ResolveFFmpeg(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, apperrors.IsTranscode(err))
	assert.Contains(t, err.Error(), "transcoder executable not found")
}

func TestResolveFFmpeg_RejectsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))

	_, err := ResolveFFmpeg(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not executable")
}

func TestEnsureAlias_Idempotent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	target := writeFakeFFmpeg(t, "exit 0")
	dir := filepath.Join(t.TempDir(), "bin")

	link, err := EnsureAlias(dir, target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ffmpeg"), link)

	again, err := EnsureAlias(dir, target)
	require.NoError(t, err)
	assert.Equal(t, link, again)

	dest, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, dest)
}

func TestEnsureAlias_ReplacesStaleLink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	require.NoError(t, os.Symlink("/does/not/exist", filepath.Join(dir, "ffmpeg")))
	target := writeFakeFFmpeg(t, "exit 0")

	link, err := EnsureAlias(dir, target)
	require.NoError(t, err)

	dest, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, dest)
}

func TestTranscoderArgs(t *testing.T) {
	tr := NewTranscoder("/usr/bin/ffmpeg", 0, nil)
	args := tr.Args("in.webm", "out.wav")

	assert.Equal(t, "out.wav", args[len(args)-1])
	assert.Subset(t, args, []string{"-i", "in.webm", "-ar", "16000", "-ac", "1", "-f", "wav", "-acodec", "pcm_s16le"})
}

func TestTranscode_FailureCarriesDiagnostic(t *testing.T) {
	fake := writeFakeFFmpeg(t, "echo 'in.webm: Invalid data found when processing input' >&2\nexit 1")
	tr := NewTranscoder(fake, time.Minute, nil)

	input := writeInput(t, []byte("# README\nnot audio at all"))
	err := tr.Transcode(context.Background(), input, filepath.Join(t.TempDir(), "out.wav"))

	require.Error(t, err)
	assert.True(t, apperrors.IsTranscode(err))
	assert.Contains(t, err.Error(), "transcoding failed")
	assert.Contains(t, err.Error(), "Invalid data found when processing input")
}

func TestTranscode_Timeout(t *testing.T) {
	fake := writeFakeFFmpeg(t, "exec sleep 5")
	tr := NewTranscoder(fake, 100*time.Millisecond, nil)

	input := writeInput(t, []byte{0x1a, 0x45, 0xdf, 0xa3})
	start := time.Now()
	err := tr.Transcode(context.Background(), input, filepath.Join(t.TempDir(), "out.wav"))

	require.Error(t, err)
	assert.True(t, apperrors.IsTranscode(err))
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTranscode_EmptyInput(t *testing.T) {
	fake := writeFakeFFmpeg(t, "exit 0")
	tr := NewTranscoder(fake, time.Minute, nil)

	err := tr.Transcode(context.Background(), writeInput(t, nil), filepath.Join(t.TempDir(), "out.wav"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}

func TestTranscode_Success(t *testing.T) {
	// the fake copies a ready-made wav to the output path (last argument)
	wavData, err := EncodeWAV(sine(440, TargetSampleRate, TargetSampleRate/2, 0.5), TargetSampleRate)
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "src.wav")
	require.NoError(t, os.WriteFile(src, wavData, 0o600))

	fake := writeFakeFFmpeg(t, "for last; do :; done\ncp '"+src+"' \"$last\"")
	tr := NewTranscoder(fake, time.Minute, nil)

	out := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, tr.Transcode(context.Background(), writeInput(t, []byte("OggS")), out))

	wf, err := LoadWaveform(out)
	require.NoError(t, err)
	assert.Equal(t, TargetSampleRate/2, wf.Len())
}
