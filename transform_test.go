package filmgrade

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func gradientBuffer(w, h int) *PixelBuffer {
	img := gradientImage(w, h)
	return &PixelBuffer{Width: w, Height: h, Stride: img.Stride, Pix: img.Pix}
}

func TestTransform_Apply_nilLUTIsBitIdentical(t *testing.T) {
	src := gradientBuffer(33, 7)
	src.Pix[3] = 0 // transparent pixel
	out, err := Transform{}.Apply(src, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Fatalf("identity changed pixels")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Fatalf("output must not alias input")
	}
}

func TestTransform_Apply_identityGrid(t *testing.T) {
	src := gradientBuffer(256, 4)
	for _, tc := range []struct {
		name string
		tr   Transform
	}{
		{name: "encoded trilinear", tr: Transform{}},
		{name: "linear trilinear", tr: Transform{Space: SpaceLinear}},
		{name: "encoded tetrahedral", tr: Transform{Interpolation: InterpolationTetrahedral}},
		{name: "linear tetrahedral", tr: Transform{Space: SpaceLinear, Interpolation: InterpolationTetrahedral, Workers: 3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.tr.Apply(src, IdentityCube(17))
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			for i := range src.Pix {
				if d := absDiff(src.Pix[i], out.Pix[i]); d > 1 {
					t.Fatalf("byte %d: got %d, want %d", i, out.Pix[i], src.Pix[i])
				}
			}
		})
	}
}

func TestTransform_Apply_smallestGrid(t *testing.T) {
	src := NewPixelBuffer(1, 1, false)
	copy(src.Pix, []uint8{128, 128, 128, 255})
	for _, interp := range []Interpolation{InterpolationTrilinear, InterpolationTetrahedral} {
		out, err := Transform{Interpolation: interp}.Apply(src, IdentityCube(2))
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		for c := 0; c < 3; c++ {
			if d := absDiff(out.Pix[c], 128); d > 1 {
				t.Fatalf("%s: channel %d = %d", interp, c, out.Pix[c])
			}
		}
		if out.Pix[3] != 255 {
			t.Fatalf("alpha changed: %d", out.Pix[3])
		}
	}
}

func TestTransform_Apply_invert(t *testing.T) {
	src := gradientBuffer(16, 16)
	out, err := Transform{}.Apply(src, cubeOf(t, invertFn))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			if d := absDiff(out.Pix[i+c], 255-src.Pix[i+c]); d > 1 {
				t.Fatalf("pixel %d channel %d: got %d, want %d", i/4, c, out.Pix[i+c], 255-src.Pix[i+c])
			}
		}
	}
}

// cubeOf builds a 9-point grid from fn.
func cubeOf(t *testing.T, fn func(r, g, b float64) [3]float64) *CubeLUT {
	t.Helper()
	l := IdentityCube(9)
	for i, v := range l.Table {
		l.Table[i] = fn(v[0], v[1], v[2])
	}
	return l
}

func TestTransform_Apply_alpha(t *testing.T) {
	src := NewPixelBuffer(4, 1, false)
	copy(src.Pix, []uint8{
		10, 20, 30, 0,
		10, 20, 30, 1,
		10, 20, 30, 128,
		10, 20, 30, 255,
	})
	out, err := Transform{}.Apply(src, cubeOf(t, invertFn))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !bytes.Equal(out.Pix[:4], src.Pix[:4]) {
		t.Fatalf("transparent pixel changed: %v", out.Pix[:4])
	}
	for i := 0; i < 4; i++ {
		if out.Pix[i*4+3] != src.Pix[i*4+3] {
			t.Fatalf("alpha %d changed", i)
		}
	}
	// Straight alpha: color is graded independently of alpha.
	if absDiff(out.Pix[8], 245) > 1 || absDiff(out.Pix[12], 245) > 1 {
		t.Fatalf("unexpected straight alpha result %v", out.Pix)
	}
}

func TestTransform_Apply_premultiplied(t *testing.T) {
	src := NewPixelBuffer(2, 1, true)
	// Half transparent mid gray and opaque black, premultiplied.
	copy(src.Pix, []uint8{64, 64, 64, 128, 0, 0, 0, 255})
	out, err := Transform{}.Apply(src, cubeOf(t, invertFn))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// 64/128 = 0.5 straight, inverted 0.5, premultiplied back ~64.
	for c := 0; c < 3; c++ {
		if absDiff(out.Pix[c], 64) > 1 {
			t.Fatalf("channel %d = %d", c, out.Pix[c])
		}
		if out.Pix[4+c] != 255 {
			t.Fatalf("opaque channel %d = %d", c, out.Pix[4+c])
		}
	}
	if out.Pix[3] != 128 || !out.Premultiplied {
		t.Fatalf("alpha or premultiplication lost")
	}
}

func TestTransform_Apply_stride(t *testing.T) {
	src := &PixelBuffer{Width: 2, Height: 2, Stride: 12, Pix: make([]uint8, 24)}
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	out, err := Transform{}.Apply(src, cubeOf(t, invertFn))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Stride != 8 || len(out.Pix) != 16 {
		t.Fatalf("unexpected layout stride %d len %d", out.Stride, len(out.Pix))
	}
	for i := 0; i < 16; i += 4 {
		if out.Pix[i] != 0 || out.Pix[i+3] != 255 {
			t.Fatalf("unexpected pixel %v", out.Pix[i:i+4])
		}
	}
}

func TestTransform_Sample_domain(t *testing.T) {
	l := IdentityCube(5)
	l.DomainMin = [3]float64{0, 0, 0}
	l.DomainMax = [3]float64{2, 2, 2}

	tr := Transform{}
	// DomainMax maps exactly onto the last grid point.
	got, err := tr.Sample(l, [3]float64{2, 2, 2})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if got != [3]float64{1, 1, 1} {
		t.Fatalf("domain max: %v", got)
	}
	// Beyond the domain clamps.
	if got, _ = tr.Sample(l, [3]float64{5, -1, 1}); got != [3]float64{1, 0, 0.5} {
		t.Fatalf("clamped: %v", got)
	}
}

func TestTransform_Sample_linearRoundTrip(t *testing.T) {
	tr := Transform{Space: SpaceLinear}
	for _, v := range []float64{0, 0.01, 0.2, 0.5, 0.9, 1} {
		got, err := tr.Sample(IdentityCube(33), [3]float64{v, v, v})
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if math.Abs(got[0]-v) > 2e-3 {
			t.Fatalf("%v -> %v", v, got[0])
		}
	}
}

func TestTransform_Apply_invalid(t *testing.T) {
	if _, err := (Transform{}).Apply(&PixelBuffer{Width: 2, Height: 2, Stride: 8, Pix: make([]uint8, 4)}, nil); err == nil {
		t.Fatalf("expected error for short buffer")
	}
	bad := IdentityCube(3)
	bad.Table = bad.Table[:5]
	if _, err := (Transform{}).Apply(gradientBuffer(2, 2), bad); !errors.Is(err, ErrLUTParse) {
		t.Fatalf("expected ErrLUTParse, got %v", err)
	}
}
