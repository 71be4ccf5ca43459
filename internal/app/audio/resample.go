package audio

import "math"

// sincZeroCrossings is the one-sided filter length in zero crossings of the
// low-pass kernel. Higher is sharper and slower.
const sincZeroCrossings = 16

// Resample converts mono samples from one rate to another with a
// Blackman-windowed sinc interpolator. When downsampling, the kernel cutoff
// is lowered to the target Nyquist frequency to avoid aliasing. The output
// length is round(len(in) * to / from).
func Resample(in []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || len(in) == 0 {
		return nil
	}
	if from == to {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	outLen := int(math.Round(float64(len(in)) * float64(to) / float64(from)))
	out := make([]float32, outLen)

	step := float64(from) / float64(to)
	cutoff := 1.0
	if to < from {
		cutoff = float64(to) / float64(from)
	}
	halfWidth := float64(sincZeroCrossings) / cutoff
	last := len(in) - 1

	for i := range out {
		center := float64(i) * step
		lo := int(math.Ceil(center - halfWidth))
		hi := int(math.Floor(center + halfWidth))
		if lo < 0 {
			lo = 0
		}
		if hi > last {
			hi = last
		}

		var sum, weight float64
		for j := lo; j <= hi; j++ {
			x := float64(j) - center
			w := cutoff * sinc(cutoff*x) * blackman(x/halfWidth)
			sum += w * float64(in[j])
			weight += w
		}
		if weight != 0 {
			out[i] = float32(sum / weight)
		}
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackman evaluates the Blackman window on t in [-1, 1]
func blackman(t float64) float64 {
	if t <= -1 || t >= 1 {
		return 0
	}
	return 0.42 + 0.5*math.Cos(math.Pi*t) + 0.08*math.Cos(2*math.Pi*t)
}
