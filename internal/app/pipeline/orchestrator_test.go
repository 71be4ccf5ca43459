package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/audio"
	apperrors "speech-backend/internal/app/errors"
	"speech-backend/internal/app/metrics"
	apptest "speech-backend/internal/app/testutil"
)

// fakeTranscoder stands in for ffmpeg. Payloads starting with "CORRUPT" fail
// like ffmpeg does on garbage input; anything else becomes one second of the
// payload's first byte as a constant level.
type fakeTranscoder struct {
	calls  []string
	inputs [][]byte
}

func (f *fakeTranscoder) Transcode(ctx context.Context, in, out string) error {
	f.calls = append(f.calls, in)
	data, err := os.ReadFile(in)
	if err != nil {
		return apperrors.Transcode(err, "input not readable")
	}
	f.inputs = append(f.inputs, data)
	if bytes.HasPrefix(data, []byte("CORRUPT")) {
		return apperrors.Transcode(errors.New("exit status 1"), in+": Invalid data found when processing input")
	}
	samples := make([]float32, audio.TargetSampleRate)
	level := float32(data[0]%8) / 16
	for i := range samples {
		samples[i] = level
	}
	wav, err := audio.EncodeWAV(samples, audio.TargetSampleRate)
	if err != nil {
		return err
	}
	return os.WriteFile(out, wav, 0o644)
}

func newTestOrchestrator(t *testing.T, transcriber Transcriber, fallback bool) (*Orchestrator, *fakeTranscoder, string) {
	t.Helper()
	root := t.TempDir()
	tc := &fakeTranscoder{}
	o := NewOrchestrator(tc, transcriber, Options{ScratchRoot: root, PathFallback: fallback}, zap.NewNop(), nil)
	return o, tc, root
}

func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch root should be empty")
}

func TestOrchestrator_Success(t *testing.T) {
	engine := apptest.NewScriptedEngine(" hello world ")
	inv := asr.NewInvoker(engine, time.Second, nil, nil)
	o, tc, root := newTestOrchestrator(t, inv, true)

	out, err := o.Process(context.Background(), Upload{
		Data:        []byte("webm bytes"),
		ContentType: "audio/webm;codecs=opus",
		RequestID:   "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", out.Result.Text)
	assert.Equal(t, 1, out.Result.Attempts)
	assert.Equal(t, apperrors.StageCleaned, out.Stage)
	assert.Equal(t, audio.FormatWebM, out.Format)
	assert.False(t, out.Degraded)
	assert.Equal(t, time.Second, out.AudioDuration)

	require.Len(t, tc.calls, 1)
	assert.Equal(t, "input.webm", filepath.Base(tc.calls[0]))
	assert.Contains(t, filepath.Base(filepath.Dir(tc.calls[0])), "req-1")

	inputs := engine.Inputs()
	require.Len(t, inputs, 1)
	assert.True(t, inputs[0].HasSamples())
	assert.Len(t, inputs[0].Samples, audio.TargetSampleRate)
	assert.Equal(t, normalizedBaseName, filepath.Base(inputs[0].Path))

	assertScratchEmpty(t, root)
}

func TestOrchestrator_SuffixFollowsFormat(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        string
	}{
		{"audio/ogg", "", "input.ogg"},
		{"audio/mpeg", "", "input.mp3"},
		{"audio/wav", "", "input.wav"},
		{"", "clip.MP3", "input.mp3"},
		{"application/octet-stream", "", "input.webm"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.contentType, func(t *testing.T) {
			o, tc, _ := newTestOrchestrator(t, asr.NewInvoker(apptest.NewScriptedEngine("x"), time.Second, nil, nil), true)
			_, err := o.Process(context.Background(), Upload{Data: []byte("a"), ContentType: tt.contentType, Filename: tt.filename})
			require.NoError(t, err)
			require.Len(t, tc.calls, 1)
			assert.Equal(t, tt.want, filepath.Base(tc.calls[0]))
		})
	}
}

func TestOrchestrator_SilentClipEveryContainer(t *testing.T) {
	for _, ct := range []string{"audio/webm", "audio/ogg", "audio/mpeg", "audio/wav"} {
		t.Run(ct, func(t *testing.T) {
			engine := apptest.NewScriptedEngine("")
			o, _, root := newTestOrchestrator(t, asr.NewInvoker(engine, time.Second, nil, nil), true)

			out, err := o.Process(context.Background(), Upload{Data: []byte{0}, ContentType: ct})
			require.NoError(t, err)
			assert.True(t, out.Result.IsEmpty)
			assert.Equal(t, "", out.Result.Text)
			assert.Equal(t, 2, out.Result.Attempts)
			assert.Len(t, engine.Calls(), 2)
			assertScratchEmpty(t, root)
		})
	}
}

func TestOrchestrator_TranscodeFailure(t *testing.T) {
	engine := apptest.NewMockEngine("mock")
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	root := t.TempDir()
	o := NewOrchestrator(&fakeTranscoder{}, asr.NewInvoker(engine, time.Second, nil, m), Options{ScratchRoot: root}, nil, m)

	_, err := o.Process(context.Background(), Upload{Data: []byte("CORRUPT webm"), ContentType: "audio/webm"})
	require.Error(t, err)

	var perr *apperrors.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, apperrors.KindTranscode, perr.Kind)
	assert.Equal(t, apperrors.StageTranscoded, perr.Stage)
	assert.Contains(t, err.Error(), "transcoding failed")
	assert.Contains(t, perr.Diagnostic, "Invalid data found")

	engine.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
	assertScratchEmpty(t, root)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.StageFailures.WithLabelValues("transcoded", "transcode")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Requests.WithLabelValues("error")))
}

func TestOrchestrator_DecodeFallback(t *testing.T) {
	unsupported := func(path string) (*audio.Waveform, error) {
		return nil, fmt.Errorf("format tag 3: %w", apperrors.ErrUnsupportedWAV)
	}

	t.Run("enabled passes the path", func(t *testing.T) {
		engine := apptest.NewScriptedEngine("from path")
		o, _, root := newTestOrchestrator(t, asr.NewInvoker(engine, time.Second, nil, nil), true)
		o.WithLoader(unsupported)

		out, err := o.Process(context.Background(), Upload{Data: []byte("x"), ContentType: "audio/wav"})
		require.NoError(t, err)
		assert.True(t, out.Degraded)
		assert.Equal(t, "from path", out.Result.Text)

		inputs := engine.Inputs()
		require.Len(t, inputs, 1)
		assert.False(t, inputs[0].HasSamples())
		assert.Equal(t, normalizedBaseName, filepath.Base(inputs[0].Path))
		assertScratchEmpty(t, root)
	})

	t.Run("disabled fails at normalize", func(t *testing.T) {
		engine := apptest.NewScriptedEngine("unused")
		o, _, root := newTestOrchestrator(t, asr.NewInvoker(engine, time.Second, nil, nil), false)
		o.WithLoader(unsupported)

		_, err := o.Process(context.Background(), Upload{Data: []byte("x"), ContentType: "audio/wav"})
		require.Error(t, err)
		assert.True(t, apperrors.IsDecode(err))
		assert.True(t, apperrors.IsUnsupported(err))

		var perr *apperrors.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, apperrors.StageNormalized, perr.Stage)
		assert.Empty(t, engine.Calls())
		assertScratchEmpty(t, root)
	})
}

func TestOrchestrator_InferenceFailure(t *testing.T) {
	engine := apptest.NewScriptedEngine("never")
	engine.Block = make(chan struct{})
	defer close(engine.Block)

	o, _, root := newTestOrchestrator(t, asr.NewInvoker(engine, 50*time.Millisecond, nil, nil), true)
	_, err := o.Process(context.Background(), Upload{Data: []byte("x"), ContentType: "audio/webm"})
	require.Error(t, err)

	var perr *apperrors.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, apperrors.KindDecode, perr.Kind)
	assert.Equal(t, apperrors.StageTranscribed, perr.Stage)
	assert.Contains(t, err.Error(), "timed out")
	assertScratchEmpty(t, root)
}

func TestOrchestrator_EmptyUpload(t *testing.T) {
	engine := apptest.NewScriptedEngine("x")
	o, tc, root := newTestOrchestrator(t, asr.NewInvoker(engine, time.Second, nil, nil), true)

	_, err := o.Process(context.Background(), Upload{ContentType: "audio/webm"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInput, apperrors.KindOf(err))
	assert.Empty(t, tc.calls)
	assertScratchEmpty(t, root)
}

func TestOrchestrator_Idempotent(t *testing.T) {
	engine := apptest.NewMockEngine("deterministic")
	engine.On("Transcribe", mock.Anything, mock.Anything, asr.PrimaryParams()).
		Return(func(_ context.Context, in asr.Input, _ asr.Params) *asr.Output {
			return &asr.Output{Text: fmt.Sprintf("level %.4f", in.Samples[0])}
		}, nil)

	o, _, root := newTestOrchestrator(t, asr.NewInvoker(engine, time.Second, nil, nil), true)
	upload := Upload{Data: []byte{5, 1, 2}, ContentType: "audio/ogg"}

	first, err := o.Process(context.Background(), upload)
	require.NoError(t, err)
	second, err := o.Process(context.Background(), upload)
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.NotEmpty(t, first.Result.Text)
	assertScratchEmpty(t, root)
}

func TestOrchestrator_UniqueScratchPerRequest(t *testing.T) {
	o, tc, _ := newTestOrchestrator(t, asr.NewInvoker(apptest.NewScriptedEngine("x"), time.Second, nil, nil), true)
	for i := 0; i < 3; i++ {
		_, err := o.Process(context.Background(), Upload{Data: []byte("a"), RequestID: "same"})
		require.NoError(t, err)
	}
	require.Len(t, tc.calls, 3)
	dirs := map[string]bool{}
	for _, c := range tc.calls {
		dirs[filepath.Dir(c)] = true
	}
	assert.Len(t, dirs, 3)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abc-123", sanitize("abc-123"))
	assert.Equal(t, "etcpasswd", sanitize("../etc/passwd"))
	assert.Len(t, sanitize(strings.Repeat("a", 80)), 36)
}

// TestOrchestrator_RealFFmpeg runs the real transcoder over silent clips in
// every supported container
func TestOrchestrator_RealFFmpeg(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	ffmpegPath, err := audio.ResolveFFmpeg(context.Background(), "")
	if err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}

	src := t.TempDir()
	containers := map[string]string{
		"audio/webm": "silence.webm",
		"audio/ogg":  "silence.ogg",
		"audio/mpeg": "silence.mp3",
		"audio/wav":  "silence.wav",
	}

	root := t.TempDir()
	transcoder := audio.NewTranscoder(ffmpegPath, 30*time.Second, zap.NewNop())
	for ct, name := range containers {
		t.Run(ct, func(t *testing.T) {
			clip := filepath.Join(src, name)
			gen := exec.Command(ffmpegPath, "-nostdin", "-hide_banner", "-loglevel", "error", "-y",
				"-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo", "-t", "1", clip)
			if out, err := gen.CombinedOutput(); err != nil {
				t.Skipf("cannot encode %s with this ffmpeg build: %v %s", name, err, out)
			}
			data, err := os.ReadFile(clip)
			require.NoError(t, err)

			engine := apptest.NewScriptedEngine("")
			o := NewOrchestrator(transcoder, asr.NewInvoker(engine, time.Second, nil, nil), Options{ScratchRoot: root, PathFallback: true}, nil, nil)

			out, err := o.Process(context.Background(), Upload{Data: data, ContentType: ct})
			require.NoError(t, err)
			assert.True(t, out.Result.IsEmpty)
			assert.Equal(t, 2, out.Result.Attempts)
			assert.InDelta(t, time.Second.Seconds(), out.AudioDuration.Seconds(), 0.1)
			assertScratchEmpty(t, root)
		})
	}

	t.Run("corrupt webm", func(t *testing.T) {
		o := NewOrchestrator(transcoder, asr.NewInvoker(apptest.NewScriptedEngine("x"), time.Second, nil, nil), Options{ScratchRoot: root}, nil, nil)
		_, err := o.Process(context.Background(), Upload{Data: []byte("definitely not a webm container"), ContentType: "audio/webm"})
		require.Error(t, err)
		assert.True(t, apperrors.IsTranscode(err))
		assert.Contains(t, err.Error(), "transcoding failed")
		assertScratchEmpty(t, root)
	})
}
