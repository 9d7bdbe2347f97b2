package filmgrade

import (
	"io"
	"log/slog"
	"math"
)

func srgbInvOetf(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func srgbOetf(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1.0/2.4) - 0.055
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// NaN compares false above and must not reach quantization.
	if v != v {
		return 0
	}
	return v
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// quantize8 maps [0,1] to 0..255 with round-to-nearest.
func quantize8(v float64) uint8 {
	return uint8(clamp01(v)*255.0 + 0.5)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
