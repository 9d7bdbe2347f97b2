package filmgrade

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/tiff"
)

func TestDecodeImage_formats(t *testing.T) {
	src := gradientImage(24, 16)
	src.Pix[3] = 0
	src.Pix[7] = 128

	var pngBuf, tiffBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, src, nil); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name   string
		data   []byte
		format string
	}{
		{name: "png", data: pngBuf.Bytes(), format: "png"},
		{name: "tiff", data: tiffBuf.Bytes(), format: "tiff"},
	} {
		pb, format, err := DecodeImage(tc.data)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if format != tc.format || pb.Width != 24 || pb.Height != 16 {
			t.Fatalf("%s: unexpected %s %dx%d", tc.name, format, pb.Width, pb.Height)
		}
		if pb.Premultiplied {
			t.Fatalf("%s: straight alpha expected", tc.name)
		}
		if pb.Pix[3] != 0 || pb.Pix[7] != 128 {
			t.Fatalf("%s: alpha lost", tc.name)
		}
		if !bytes.Equal(pb.Pix[8:], src.Pix[8:]) {
			t.Fatalf("%s: pixels changed", tc.name)
		}
	}

	if _, _, err := DecodeImage([]byte("garbage")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFromImage(t *testing.T) {
	full := gradientImage(16, 16)
	sub := full.SubImage(image.Rect(4, 4, 8, 6)).(*image.NRGBA)
	pb, err := FromImage(sub)
	if err != nil {
		t.Fatalf("from image: %v", err)
	}
	if pb.Width != 4 || pb.Height != 2 || pb.Stride != 16 {
		t.Fatalf("unexpected layout %dx%d stride %d", pb.Width, pb.Height, pb.Stride)
	}
	if got, want := pb.Pix[:4], full.Pix[full.PixOffset(4, 4):full.PixOffset(5, 4)]; !bytes.Equal(got, want) {
		t.Fatalf("unexpected first pixel %v, want %v", got, want)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba.SetRGBA(0, 0, color.RGBA{R: 50, A: 100})
	if pb, err = FromImage(rgba); err != nil || !pb.Premultiplied || pb.Pix[0] != 50 {
		t.Fatalf("premultiplied source not kept: %v", err)
	}

	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix[1] = 200
	if pb, err = FromImage(gray); err != nil {
		t.Fatalf("from gray: %v", err)
	}
	if pb.Premultiplied || pb.Pix[4] != 200 || pb.Pix[5] != 200 || pb.Pix[7] != 255 {
		t.Fatalf("unexpected gray conversion %v", pb.Pix)
	}

	if _, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 3))); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestEncodeJPEG_invalidQuality(t *testing.T) {
	if _, err := encodeJPEG(gradientBuffer(4, 4), 101); !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}
