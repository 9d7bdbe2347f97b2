package filmgrade

import (
	"bytes"
	"fmt"
)

// EmbedExif splices an APP1 EXIF payload (starting with "Exif\0\0") into a JPEG.
//
// Existing EXIF segments are removed and the new one is placed right after SOI, other segments
// and the entropy-coded data are kept byte for byte.
func EmbedExif(jpegData, payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, exifSig) {
		return nil, fmt.Errorf("%w: payload has no exif signature", ErrEncode)
	}
	stripped, err := stripExifSegments(jpegData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	out, err := insertAppSegments(stripped, []appSegment{{marker: markerAPP1, payload: payload}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return out, nil
}

// stripExifSegments removes APP1 EXIF segments from a JPEG, the rest is copied unchanged.
func stripExifSegments(jpegData []byte) ([]byte, error) {
	segs, err := headerSegments(jpegData)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	out.Grow(len(jpegData))
	pos := 0
	for _, s := range segs {
		if s.marker != markerAPP1 || !bytes.HasPrefix(jpegData[s.body:s.end], exifSig) {
			continue
		}
		out.Write(jpegData[pos:s.start])
		pos = s.end
	}
	out.Write(jpegData[pos:])
	return out.Bytes(), nil
}

// reattachICC inserts ICC profile chunks into an encoded JPEG, after any leading APP0.
func reattachICC(jpegData []byte, icc [][]byte) ([]byte, error) {
	if len(icc) == 0 {
		return jpegData, nil
	}
	segs, err := headerSegments(jpegData)
	if err != nil {
		return nil, err
	}
	at := 2
	if len(segs) > 0 && segs[0].marker == markerAPP0 {
		at = segs[0].end
	}
	var out bytes.Buffer
	out.Grow(len(jpegData) + len(icc)*4)
	out.Write(jpegData[:at])
	for _, seg := range icc {
		writeAppSegment(&out, markerAPP2, seg)
	}
	out.Write(jpegData[at:])
	return out.Bytes(), nil
}
