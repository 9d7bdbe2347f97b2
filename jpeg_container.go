package filmgrade

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
)

var (
	exifSig = []byte{'E', 'x', 'i', 'f', 0, 0}
	iccSig  = []byte{'I', 'C', 'C', '_', 'P', 'R', 'O', 'F', 'I', 'L', 'E', 0}
)

var errInvalidJPEG = errors.New("invalid jpeg")

// segment is a marker segment in the JPEG header, positions point into the source slice.
type segment struct {
	marker byte
	start  int // first byte of the 0xFF marker prefix
	body   int // first payload byte, after the length field
	end    int
}

// headerSegments walks marker segments between SOI and SOS.
func headerSegments(jpegData []byte) ([]segment, error) {
	if len(jpegData) < 4 || jpegData[0] != markerStart || jpegData[1] != markerSOI {
		return nil, errInvalidJPEG
	}
	var segs []segment
	pos := 2
	for pos+3 < len(jpegData) {
		if jpegData[pos] != markerStart {
			pos++
			continue
		}
		start := pos
		for pos < len(jpegData) && jpegData[pos] == markerStart {
			pos++
		}
		if pos >= len(jpegData) {
			break
		}
		marker := jpegData[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			continue
		}
		if pos+1 >= len(jpegData) {
			return nil, errors.New("truncated marker")
		}
		segLen := int(binary.BigEndian.Uint16(jpegData[pos:]))
		if segLen < 2 || pos+segLen > len(jpegData) {
			return nil, errors.New("invalid segment length")
		}
		segs = append(segs, segment{marker: marker, start: start, body: pos + 2, end: pos + segLen})
		pos += segLen
	}
	return segs, nil
}

func extractAppSegments(jpegData []byte) (app1 [][]byte, app2 [][]byte, err error) {
	segs, err := headerSegments(jpegData)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range segs {
		switch s.marker {
		case markerAPP1:
			app1 = append(app1, append([]byte(nil), jpegData[s.body:s.end]...))
		case markerAPP2:
			app2 = append(app2, append([]byte(nil), jpegData[s.body:s.end]...))
		}
	}
	return app1, app2, nil
}

type iccSegment struct {
	seq  int
	data []byte
}

type appSegment struct {
	marker  byte
	payload []byte
}

// extractExifAndIcc returns the EXIF APP1 payload (if present) and ICC APP2 payloads in chunk order.
func extractExifAndIcc(jpegData []byte) ([]byte, [][]byte, error) {
	app1, app2, err := extractAppSegments(jpegData)
	if err != nil {
		return nil, nil, err
	}
	var exif []byte
	for _, seg := range app1 {
		if bytes.HasPrefix(seg, exifSig) {
			exif = seg
			break
		}
	}
	var iccSegs []iccSegment
	for _, seg := range app2 {
		if bytes.HasPrefix(seg, iccSig) && len(seg) >= len(iccSig)+2 {
			iccSegs = append(iccSegs, iccSegment{seq: int(seg[len(iccSig)]), data: seg})
		}
	}
	if len(iccSegs) == 0 {
		return exif, nil, nil
	}
	sort.SliceStable(iccSegs, func(i, j int) bool { return iccSegs[i].seq < iccSegs[j].seq })
	out := make([][]byte, 0, len(iccSegs))
	for _, s := range iccSegs {
		out = append(out, s.data)
	}
	return exif, out, nil
}

func writeAppSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(markerStart)
	out.WriteByte(marker)
	length := uint16(len(payload) + 2)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

// insertAppSegments inserts APP segments after SOI.
func insertAppSegments(jpegData []byte, segs []appSegment) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != markerStart || jpegData[1] != markerSOI {
		return nil, errInvalidJPEG
	}
	for _, s := range segs {
		if len(s.payload)+2 > 0xFFFF {
			return nil, errors.New("app segment too large")
		}
	}
	var out bytes.Buffer
	out.Grow(len(jpegData) + 4*len(segs))
	out.WriteByte(markerStart)
	out.WriteByte(markerSOI)
	for _, s := range segs {
		writeAppSegment(&out, s.marker, s.payload)
	}
	out.Write(jpegData[2:])
	return out.Bytes(), nil
}
