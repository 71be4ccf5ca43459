package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	apperrors "speech-backend/internal/app/errors"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Waveform is mono float32 audio at TargetSampleRate
type Waveform struct {
	Samples    []float32
	SampleRate int

	// SourceRate and SourceChannels describe the decoded file before
	// downmix and resampling.
	SourceRate     int
	SourceChannels int
}

// Duration returns the playing time of the waveform
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Len returns the number of samples
func (w *Waveform) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Samples)
}

// LoadWaveform decodes the WAV file at path into a normalized waveform
func LoadWaveform(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Decode(err, "open wav")
	}
	defer f.Close()

	return DecodeWaveform(f)
}

// DecodeWaveform decodes integer PCM WAV data of any bit depth, channel
// count and sample rate. Channels are averaged into mono first, then the
// signal is resampled to TargetSampleRate if needed. No gain is applied.
func DecodeWaveform(r io.ReadSeeker) (*Waveform, error) {
	sub, err := extensibleSubFormat(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, apperrors.Decode(err, "rewind wav")
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, apperrors.Decode(err, "invalid wav")
		}
		return nil, apperrors.Decode(nil, "invalid wav")
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("format tag %d: %w", dec.WavAudioFormat, apperrors.ErrUnsupportedWAV)
	}
	if dec.WavAudioFormat == wavFormatExtensible && sub != wavFormatPCM {
		return nil, fmt.Errorf("extensible sub format %d: %w", sub, apperrors.ErrUnsupportedWAV)
	}
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("bit depth %d: %w", bitDepth, apperrors.ErrUnsupportedWAV)
	}
	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	if channels < 1 || rate < 1 {
		return nil, apperrors.Decode(nil, fmt.Sprintf("bad wav format: %d channels at %d Hz", channels, rate))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, apperrors.Decode(err, "read pcm")
	}
	if buf == nil || len(buf.Data) < channels {
		return nil, apperrors.ErrNoAudioFrames
	}

	mono := Downmix(scaleInts(buf.Data, bitDepth), channels)

	return &Waveform{
		Samples:        Resample(mono, rate, TargetSampleRate),
		SampleRate:     TargetSampleRate,
		SourceRate:     rate,
		SourceChannels: channels,
	}, nil
}

// extensibleSubFormat returns the first two bytes of the SubFormat GUID when
// the fmt chunk is WAVE_FORMAT_EXTENSIBLE, and 0 for any other format tag.
// Streams that are not RIFF are left for the wav decoder to reject.
func extensibleSubFormat(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, apperrors.Decode(err, "rewind wav")
	}
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil || p.Format != riff.WavFormatID {
		return 0, nil
	}

	for {
		ch, err := p.NextChunk()
		if err != nil || ch.ID == riff.DataFormatID {
			return 0, nil
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		var tag uint16
		if err := ch.ReadLE(&tag); err != nil || tag != wavFormatExtensible {
			return 0, nil
		}
		// channels, rate, byte rate, block align, bits, cbSize, valid bits, channel mask
		skip := make([]byte, 2+4+4+2+2+2+2+4)
		var sub uint16
		if ch.Size < 2+len(skip)+2 || ch.ReadLE(skip) != nil || ch.ReadLE(&sub) != nil {
			return 0, fmt.Errorf("extensible fmt chunk without sub format: %w", apperrors.ErrUnsupportedWAV)
		}
		return sub, nil
	}
}

// Downmix averages interleaved frames into a single channel. A trailing
// partial frame is dropped.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// scaleInts maps signed integer PCM values of the given bit depth into
// [-1, 1). 8-bit WAV is unsigned and centered on 128.
func scaleInts(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := float32(int64(1) << uint(bitDepth-1))
	for i, v := range data {
		if bitDepth == 8 {
			v -= 128
		}
		out[i] = float32(v) / scale
	}
	return out
}
