package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "speech-backend/internal/app/errors"
)

func sine(freq float64, rate, n int, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// writeIntWAV writes interleaved int samples with the go-audio encoder
func writeIntWAV(t *testing.T, data []int, rate, bitDepth, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// extensibleWAV builds a mono WAVE_FORMAT_EXTENSIBLE file whose SubFormat
// GUID starts with sub
func extensibleWAV(t *testing.T, sub uint16, bitDepth, rate int, payload []byte) []byte {
	t.Helper()
	blockAlign := bitDepth / 8
	var b bytes.Buffer
	w := func(v interface{}) { require.NoError(t, binary.Write(&b, binary.LittleEndian, v)) }

	b.WriteString("RIFF")
	w(uint32(4 + 8 + 40 + 8 + len(payload)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(40))
	w(uint16(0xFFFE))
	w(uint16(1))
	w(uint32(rate))
	w(uint32(rate * blockAlign))
	w(uint16(blockAlign))
	w(uint16(bitDepth))
	w(uint16(22))
	w(uint16(bitDepth))
	w(uint32(4)) // front center
	w(sub)
	b.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	b.WriteString("data")
	w(uint32(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

func TestLoadWaveform_PassThrough(t *testing.T) {
	tone := sine(440, TargetSampleRate, 2*TargetSampleRate, 0.5)
	data, err := EncodeWAV(tone, TargetSampleRate)
	require.NoError(t, err)

	wf, err := DecodeWaveform(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, TargetSampleRate, wf.SampleRate)
	assert.Equal(t, TargetSampleRate, wf.SourceRate)
	assert.Equal(t, 1, wf.SourceChannels)
	require.Equal(t, len(tone), wf.Len())
	for i := 0; i < len(tone); i += 997 {
		assert.InDelta(t, tone[i], wf.Samples[i], 1e-3)
	}
	assert.Equal(t, 2*time.Second, wf.Duration())
}

func TestLoadWaveform_StereoAt44100(t *testing.T) {
	const (
		rate     = 44100
		duration = 1.5
	)
	frames := int(duration * rate)
	tone := sine(440, rate, frames, 0.5)

	data := make([]int, 0, frames*2)
	for _, s := range tone {
		v := int(math.Round(float64(s) * 32767))
		data = append(data, v, v)
	}
	path := writeIntWAV(t, data, rate, 16, 2)

	wf, err := LoadWaveform(path)
	require.NoError(t, err)

	assert.Equal(t, rate, wf.SourceRate)
	assert.Equal(t, 2, wf.SourceChannels)
	assert.Equal(t, TargetSampleRate, wf.SampleRate)
	assert.InDelta(t, math.Round(duration*TargetSampleRate), float64(wf.Len()), 2)
	// identical channels average to the same tone, resampling keeps its energy
	assert.InDelta(t, 0.5/math.Sqrt2, rms(wf.Samples), 0.02)
}

func TestLoadWaveform_DownmixAveragesChannels(t *testing.T) {
	const rate = 44100
	tone := sine(300, rate, rate, 0.5)

	// opposite phase on each channel cancels out when averaged
	data := make([]int, 0, len(tone)*2)
	for _, s := range tone {
		v := int(math.Round(float64(s) * 32767))
		data = append(data, v, -v)
	}
	path := writeIntWAV(t, data, rate, 16, 2)

	wf, err := LoadWaveform(path)
	require.NoError(t, err)
	assert.InDelta(t, TargetSampleRate, wf.Len(), 2)
	assert.Less(t, rms(wf.Samples), 1e-3)
}

func TestLoadWaveform_24Bit(t *testing.T) {
	tone := sine(440, 48000, 48000, 0.25)
	data := make([]int, len(tone))
	for i, s := range tone {
		data[i] = int(math.Round(float64(s) * 8388607))
	}
	path := writeIntWAV(t, data, 48000, 24, 1)

	wf, err := LoadWaveform(path)
	require.NoError(t, err)
	assert.InDelta(t, TargetSampleRate, wf.Len(), 2)
	assert.InDelta(t, 0.25/math.Sqrt2, rms(wf.Samples), 0.02)
}

func TestLoadWaveform_8BitUnsigned(t *testing.T) {
	path := writeIntWAV(t, []int{128, 255, 0}, TargetSampleRate, 8, 1)

	wf, err := LoadWaveform(path)
	require.NoError(t, err)
	require.Equal(t, 3, wf.Len())
	assert.InDelta(t, 0, wf.Samples[0], 1e-6)
	assert.InDelta(t, 127.0/128, wf.Samples[1], 1e-6)
	assert.InDelta(t, -1, wf.Samples[2], 1e-6)
}

func TestLoadWaveform_32BitInt(t *testing.T) {
	path := writeIntWAV(t, []int{0, 1 << 30, -(1 << 31)}, TargetSampleRate, 32, 1)

	wf, err := LoadWaveform(path)
	require.NoError(t, err)
	require.Equal(t, 3, wf.Len())
	assert.InDelta(t, 0, wf.Samples[0], 1e-6)
	assert.InDelta(t, 0.5, wf.Samples[1], 1e-6)
	assert.InDelta(t, -1, wf.Samples[2], 1e-6)
}

func TestLoadWaveform_ExtensiblePCM(t *testing.T) {
	var payload bytes.Buffer
	for _, v := range []int16{0, 16384, -32768, 8192} {
		require.NoError(t, binary.Write(&payload, binary.LittleEndian, v))
	}
	data := extensibleWAV(t, 1, 16, TargetSampleRate, payload.Bytes())

	wf, err := DecodeWaveform(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 4, wf.Len())
	assert.InDelta(t, 0.5, wf.Samples[1], 1e-6)
	assert.InDelta(t, -1, wf.Samples[2], 1e-6)
}

func TestLoadWaveform_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWaveform(filepath.Join(t.TempDir(), "missing.wav"))
		require.Error(t, err)
		assert.True(t, apperrors.IsDecode(err))
	})

	t.Run("not a wav", func(t *testing.T) {
		_, err := DecodeWaveform(bytes.NewReader([]byte("definitely not RIFF data, just text padding it out")))
		require.Error(t, err)
		assert.True(t, apperrors.IsDecode(err))
		assert.False(t, apperrors.IsUnsupported(err))
	})

	t.Run("ieee float is unsupported", func(t *testing.T) {
		data, err := EncodeWAV(sine(440, TargetSampleRate, 1600, 0.5), TargetSampleRate)
		require.NoError(t, err)
		data[20] = 3 // WAVE_FORMAT_IEEE_FLOAT

		_, err = DecodeWaveform(bytes.NewReader(data))
		require.Error(t, err)
		assert.True(t, apperrors.IsUnsupported(err))
		assert.True(t, apperrors.IsDecode(err))
	})

	t.Run("extensible ieee float is unsupported", func(t *testing.T) {
		var payload bytes.Buffer
		for _, s := range sine(440, TargetSampleRate, TargetSampleRate, 0.3) {
			require.NoError(t, binary.Write(&payload, binary.LittleEndian, s))
		}
		data := extensibleWAV(t, 3, 32, TargetSampleRate, payload.Bytes())

		_, err := DecodeWaveform(bytes.NewReader(data))
		require.Error(t, err)
		assert.True(t, apperrors.IsUnsupported(err))
		assert.True(t, apperrors.IsDecode(err))
	})

	t.Run("extensible without sub format is unsupported", func(t *testing.T) {
		data, err := EncodeWAV(sine(440, TargetSampleRate, 1600, 0.5), TargetSampleRate)
		require.NoError(t, err)
		binary.LittleEndian.PutUint16(data[20:], 0xFFFE)

		_, err = DecodeWaveform(bytes.NewReader(data))
		require.Error(t, err)
		assert.True(t, apperrors.IsUnsupported(err))
	})
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float32{1}, Downmix([]float32{1, 1, 1, 0.3}, 3))
	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, Downmix(mono, 1))
}

func TestResample(t *testing.T) {
	t.Run("same rate copies", func(t *testing.T) {
		in := []float32{0.1, 0.2, 0.3}
		out := Resample(in, 16000, 16000)
		assert.Equal(t, in, out)
		out[0] = 1
		assert.Equal(t, float32(0.1), in[0])
	})

	t.Run("length follows rate ratio", func(t *testing.T) {
		cases := []struct{ from, n int }{{44100, 44100}, {48000, 12345}, {8000, 8000}, {22050, 7}}
		for _, c := range cases {
			out := Resample(make([]float32, c.n), c.from, TargetSampleRate)
			assert.Equal(t, int(math.Round(float64(c.n)*TargetSampleRate/float64(c.from))), len(out))
		}
	})

	t.Run("dc level is preserved", func(t *testing.T) {
		in := make([]float32, 4800)
		for i := range in {
			in[i] = 0.25
		}
		out := Resample(in, 48000, TargetSampleRate)
		for _, s := range out {
			assert.InDelta(t, 0.25, s, 1e-4)
		}
	})

	t.Run("content above target nyquist is attenuated", func(t *testing.T) {
		// 12 kHz cannot be represented at 16 kHz and must not alias back in
		in := sine(12000, 48000, 48000, 0.5)
		out := Resample(in, 48000, TargetSampleRate)
		assert.Less(t, rms(out[100:len(out)-100]), 0.02)
	})

	t.Run("upsampling keeps a tone", func(t *testing.T) {
		in := sine(440, 8000, 8000, 0.5)
		out := Resample(in, 8000, TargetSampleRate)
		assert.InDelta(t, 0.5/math.Sqrt2, rms(out[100:len(out)-100]), 0.01)
	})

	t.Run("empty or invalid input", func(t *testing.T) {
		assert.Nil(t, Resample(nil, 44100, 16000))
		assert.Nil(t, Resample([]float32{1}, 0, 16000))
	})
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV([]float32{0, 1, -1, 2}, TargetSampleRate)
	require.NoError(t, err)
	assert.Equal(t, 44+8, len(data))
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	_, err = EncodeWAV(nil, TargetSampleRate)
	assert.Error(t, err)
	_, err = EncodeWAV([]float32{0}, 0)
	assert.Error(t, err)
}
