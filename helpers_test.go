package filmgrade

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

// cubeText renders a .cube file of the given size, fn maps grid coordinates in [0,1] to output.
func cubeText(title string, size int, fn func(r, g, b float64) [3]float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# generated\nTITLE \"%s\"\nLUT_3D_SIZE %d\n", title, size)
	step := 1 / float64(size-1)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				v := fn(float64(r)*step, float64(g)*step, float64(b)*step)
				fmt.Fprintf(&sb, "%.6f %.6f %.6f\n", v[0], v[1], v[2])
			}
		}
	}
	return sb.String()
}

func identityFn(r, g, b float64) [3]float64 { return [3]float64{r, g, b} }

func invertFn(r, g, b float64) [3]float64 { return [3]float64{1 - r, 1 - g, 1 - b} }

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / (w - 1)), G: uint8(y * 255 / (h - 1)), B: 96, A: 255})
		}
	}
	return img
}

func testJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradientImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
