package filmgrade

import (
	"errors"
	"image"
	"log/slog"
)

// ColorSpace selects the encoding the LUT lookup happens in.
type ColorSpace int

const (
	// SpaceEncoded looks up sRGB-encoded values directly. This is how .cube film LUTs are authored.
	SpaceEncoded ColorSpace = iota
	// SpaceLinear decodes sRGB to linear light before the domain remap and re-encodes after the lookup.
	SpaceLinear
)

func (s ColorSpace) String() string {
	switch s {
	case SpaceLinear:
		return "linear"
	default:
		return "encoded"
	}
}

// Interpolation selects how LUT grid samples are blended.
type Interpolation int

const (
	// InterpolationTrilinear blends the 8 surrounding samples along r, then g, then b.
	InterpolationTrilinear Interpolation = iota
	// InterpolationTetrahedral blends 4 samples of the tetrahedron containing the point.
	InterpolationTetrahedral
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationTetrahedral:
		return "tetrahedral"
	default:
		return "trilinear"
	}
}

// PixelBuffer stores an 8-bit RGBA image, row-major.
type PixelBuffer struct {
	Width  int
	Height int
	Stride int // bytes per row, at least 4*Width
	Pix    []uint8
	// Premultiplied is true when RGB samples are scaled by alpha.
	Premultiplied bool
}

// NewPixelBuffer allocates a zeroed buffer.
func NewPixelBuffer(width, height int, premultiplied bool) *PixelBuffer {
	return &PixelBuffer{
		Width:         width,
		Height:        height,
		Stride:        width * 4,
		Pix:           make([]uint8, width*height*4),
		Premultiplied: premultiplied,
	}
}

func (p *PixelBuffer) validate() error {
	if p == nil {
		return errors.New("pixel buffer is nil")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New("invalid pixel buffer dimensions")
	}
	if p.Stride < p.Width*4 {
		return errors.New("pixel buffer stride too small")
	}
	if len(p.Pix) < (p.Height-1)*p.Stride+p.Width*4 {
		return errors.New("pixel buffer too small")
	}
	return nil
}

// Clone returns a deep copy with a tight stride.
func (p *PixelBuffer) Clone() *PixelBuffer {
	out := NewPixelBuffer(p.Width, p.Height, p.Premultiplied)
	for y := 0; y < p.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+p.Width*4], p.Pix[y*p.Stride:y*p.Stride+p.Width*4])
	}
	return out
}

// Image wraps the buffer without copying.
func (p *PixelBuffer) Image() image.Image {
	r := image.Rect(0, 0, p.Width, p.Height)
	if p.Premultiplied {
		return &image.RGBA{Pix: p.Pix, Stride: p.Stride, Rect: r}
	}
	return &image.NRGBA{Pix: p.Pix, Stride: p.Stride, Rect: r}
}

// Request is a single completed capture handed over for grading.
// Either Encoded or Pixels must be set; Encoded wins when both are.
type Request struct {
	ID       string
	Encoded  []byte
	Pixels   *PixelBuffer
	LUTID    string
	Metadata CaptureMetadata
	GPS      *GPSFix
}

// Result is the terminal artifact of a Request. Output ownership moves to the caller.
//
// On failure Output holds the original capture (with metadata when it could be embedded),
// so it can still be persisted untransformed.
type Result struct {
	ID         string
	Output     []byte
	Err        error
	LUTApplied bool
	Dropped    []*FieldError
}

// Options controls the Pipeline.
type Options struct {
	Quality       int // output JPEG quality (1-100)
	Space         ColorSpace
	Interpolation Interpolation
	Workers       int  // pixel workers per request, 0 means GOMAXPROCS
	Thumbnail     bool // embed an IFD1 thumbnail when pixels are available
	Software      string
	Logger        *slog.Logger
}
