package filmgrade

import (
	"bytes"

	"github.com/vearutop/filmgrade/internal/jpegx"
)

// ExtractExifAndIcc returns EXIF and ICC APP payloads from a JPEG.
func ExtractExifAndIcc(jpegData []byte) ([]byte, [][]byte, error) {
	return extractExifAndIcc(jpegData)
}

// JPEGInfo describes an encoded capture.
type JPEGInfo struct {
	Width       int
	Height      int
	Components  int
	Progressive bool
	Quality     int // estimated from quantization tables
	HasExif     bool
	Gamut       Gamut
}

// InspectJPEG reads JPEG headers without decoding pixels.
func InspectJPEG(data []byte) (*JPEGInfo, error) {
	info, err := jpegx.Inspect(data)
	if err != nil {
		return nil, err
	}
	hasExif, err := HasExif(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	gamut, err := DetectGamut(data)
	if err != nil {
		return nil, err
	}
	return &JPEGInfo{
		Width:       info.Width,
		Height:      info.Height,
		Components:  info.Components,
		Progressive: info.Progressive,
		Quality:     info.Quality,
		HasExif:     hasExif,
		Gamut:       gamut,
	}, nil
}
