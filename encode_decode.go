package filmgrade

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder.
	_ "image/png"  // Register PNG decoder.

	"github.com/vearutop/filmgrade/internal/jpegx"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder.
	_ "golang.org/x/image/webp" // Register WebP decoder.
)

// DecodeImage decodes JPEG, PNG, TIFF or WebP data into a PixelBuffer.
//
// Images with straight alpha (and opaque images) produce a non-premultiplied buffer,
// *image.RGBA sources keep their premultiplied samples.
func DecodeImage(data []byte) (*PixelBuffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	pb, err := FromImage(img)
	if err != nil {
		return nil, format, err
	}
	return pb, format, nil
}

// FromImage copies img into a new PixelBuffer.
func FromImage(img image.Image) (*PixelBuffer, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, w, h)
	}

	switch src := img.(type) {
	case *image.NRGBA:
		return copyRows(src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), w, h, false), nil
	case *image.RGBA:
		return copyRows(src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), w, h, true), nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &PixelBuffer{Width: w, Height: h, Stride: dst.Stride, Pix: dst.Pix}, nil
}

func copyRows(pix []uint8, stride, offset, w, h int, premultiplied bool) *PixelBuffer {
	out := NewPixelBuffer(w, h, premultiplied)
	for y := 0; y < h; y++ {
		row := offset + y*stride
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], pix[row:row+w*4])
	}
	return out
}

func encodeJPEG(pb *PixelBuffer, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpegx.Encode(&buf, pb.Image(), jpegx.EncoderOptions{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
