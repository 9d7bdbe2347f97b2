package filmgrade

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Transform applies a CubeLUT to pixel buffers.
//
// The zero value looks up sRGB-encoded values with trilinear interpolation on GOMAXPROCS workers.
type Transform struct {
	Space         ColorSpace
	Interpolation Interpolation
	Workers       int
}

// Apply returns a graded copy of src. src is not modified.
//
// Dimensions and alpha are preserved exactly, pixels with zero alpha are copied unchanged and a
// nil lut yields a bit-identical copy.
func (t Transform) Apply(src *PixelBuffer, lut *CubeLUT) (*PixelBuffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	out := src.Clone()
	if lut == nil {
		return out, nil
	}
	s, err := newSampler(lut, t)
	if err != nil {
		return nil, err
	}

	var outOfBounds atomic.Bool
	parallelFor(out.Height, t.Workers, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Pix[y*out.Stride : y*out.Stride+out.Width*4]
			for x := 0; x < len(row); x += 4 {
				if !s.pixel(row[x:x+4:x+4], out.Premultiplied) {
					outOfBounds.Store(true)
					return
				}
			}
		}
	})
	if outOfBounds.Load() {
		return nil, ErrInterpolationBounds
	}
	return out, nil
}

// Sample maps one normalized color through the LUT. Input is clamped to the domain.
func (t Transform) Sample(lut *CubeLUT, c [3]float64) ([3]float64, error) {
	s, err := newSampler(lut, t)
	if err != nil {
		return c, err
	}
	for i := range c {
		c[i] = s.decode(c[i])
	}
	res, ok := s.lookup(s.gridCoord(c))
	if !ok {
		return c, ErrInterpolationBounds
	}
	for i := range res {
		res[i] = s.encode(clamp01(res[i]))
	}
	return res, nil
}

type sampler struct {
	table  [][3]float64
	size   int
	maxIdx float64
	min    [3]float64
	scale  [3]float64
	linear bool
	interp Interpolation
	// decode8 holds the normalized (and linearized in SpaceLinear) value of every 8-bit sample.
	decode8 [256]float64
}

func newSampler(lut *CubeLUT, t Transform) (*sampler, error) {
	if lut == nil {
		return nil, errors.New("lut is nil")
	}
	if lut.Size < 2 || len(lut.Table) != lut.Size*lut.Size*lut.Size {
		return nil, fmt.Errorf("%w: table has %d entries for size %d", ErrLUTParse, len(lut.Table), lut.Size)
	}
	s := &sampler{
		table:  lut.Table,
		size:   lut.Size,
		maxIdx: float64(lut.Size - 1),
		min:    lut.DomainMin,
		linear: t.Space == SpaceLinear,
		interp: t.Interpolation,
	}
	for c := 0; c < 3; c++ {
		w := lut.DomainMax[c] - lut.DomainMin[c]
		if !(w > 0) {
			return nil, fmt.Errorf("%w: empty domain on channel %d", ErrLUTParse, c)
		}
		s.scale[c] = 1 / w
	}
	for i := range s.decode8 {
		s.decode8[i] = s.decode(float64(i) / 255.0)
	}
	return s, nil
}

func (s *sampler) decode(v float64) float64 {
	if s.linear {
		return srgbInvOetf(clamp01(v))
	}
	return v
}

func (s *sampler) encode(v float64) float64 {
	if s.linear {
		return srgbOetf(v)
	}
	return v
}

// gridCoord remaps decoded channel values into the domain and scales them to grid units.
func (s *sampler) gridCoord(c [3]float64) [3]float64 {
	for i := range c {
		c[i] = clamp01((c[i]-s.min[i])*s.scale[i]) * s.maxIdx
	}
	return c
}

func (s *sampler) pixel(p []uint8, premultiplied bool) bool {
	a8 := p[3]
	if a8 == 0 {
		return true
	}
	alpha := float64(a8) / 255.0
	fractional := premultiplied && a8 < 255

	var c [3]float64
	for i := 0; i < 3; i++ {
		if fractional {
			c[i] = s.decode(float64(p[i]) / 255.0 / alpha)
		} else {
			c[i] = s.decode8[p[i]]
		}
	}

	res, ok := s.lookup(s.gridCoord(c))
	if !ok {
		return false
	}

	for i := 0; i < 3; i++ {
		v := s.encode(clamp01(res[i]))
		if fractional {
			v *= alpha
		}
		p[i] = quantize8(v)
	}
	return true
}

func (s *sampler) lookup(c [3]float64) ([3]float64, bool) {
	if s.interp == InterpolationTetrahedral {
		return s.tetrahedral(c)
	}
	return s.trilinear(c)
}

// cell locates the grid cell around c: lower and upper corner indices, clamped, and fractions.
func (s *sampler) cell(c [3]float64) (lo, hi [3]int, f [3]float64) {
	for i := range c {
		lo[i] = clampIndex(int(math.Floor(c[i])), s.size)
		hi[i] = clampIndex(lo[i]+1, s.size)
		f[i] = c[i] - float64(lo[i])
		if f[i] < 0 {
			f[i] = 0
		} else if f[i] > 1 {
			f[i] = 1
		}
	}
	return lo, hi, f
}

func (s *sampler) at(r, g, b int) ([3]float64, bool) {
	i := (b*s.size+g)*s.size + r
	if i < 0 || i >= len(s.table) {
		return [3]float64{}, false
	}
	return s.table[i], true
}

func (s *sampler) corners(lo, hi [3]int) (c [8][3]float64, ok bool) {
	// Corner k has r from bit 0, g from bit 1, b from bit 2.
	for k := 0; k < 8; k++ {
		r, g, b := lo[0], lo[1], lo[2]
		if k&1 != 0 {
			r = hi[0]
		}
		if k&2 != 0 {
			g = hi[1]
		}
		if k&4 != 0 {
			b = hi[2]
		}
		if c[k], ok = s.at(r, g, b); !ok {
			return c, false
		}
	}
	return c, true
}

func (s *sampler) trilinear(c [3]float64) ([3]float64, bool) {
	lo, hi, f := s.cell(c)
	k, ok := s.corners(lo, hi)
	if !ok {
		return c, false
	}
	// Along r.
	c00 := lerp3(k[0], k[1], f[0]) // g0 b0
	c10 := lerp3(k[2], k[3], f[0]) // g1 b0
	c01 := lerp3(k[4], k[5], f[0]) // g0 b1
	c11 := lerp3(k[6], k[7], f[0]) // g1 b1
	// Along g, then b.
	e0 := lerp3(c00, c10, f[1])
	e1 := lerp3(c01, c11, f[1])
	return lerp3(e0, e1, f[2]), true
}

func (s *sampler) tetrahedral(c [3]float64) ([3]float64, bool) {
	lo, hi, f := s.cell(c)
	k, ok := s.corners(lo, hi)
	if !ok {
		return c, false
	}
	fr, fg, fb := f[0], f[1], f[2]
	c000, c100, c010, c110 := k[0], k[1], k[2], k[3]
	c001, c101, c011, c111 := k[4], k[5], k[6], k[7]

	var out [3]float64
	blend := func(w0 float64, a [3]float64, w1 float64, b [3]float64, w2 float64, d [3]float64, w3 float64, e [3]float64) {
		for i := range out {
			out[i] = w0*a[i] + w1*b[i] + w2*d[i] + w3*e[i]
		}
	}
	switch {
	case fr > fg && fg > fb:
		blend(1-fr, c000, fr-fg, c100, fg-fb, c110, fb, c111)
	case fr > fg && fr > fb:
		blend(1-fr, c000, fr-fb, c100, fb-fg, c101, fg, c111)
	case fr > fg:
		blend(1-fb, c000, fb-fr, c001, fr-fg, c101, fg, c111)
	case fb > fg:
		blend(1-fb, c000, fb-fg, c001, fg-fr, c011, fr, c111)
	case fb > fr:
		blend(1-fg, c000, fg-fb, c010, fb-fr, c011, fr, c111)
	default:
		blend(1-fg, c000, fg-fr, c010, fr-fb, c110, fb, c111)
	}
	return out, true
}

func lerp3(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}
