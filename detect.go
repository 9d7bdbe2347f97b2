package filmgrade

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// HasExif performs a streaming check for an EXIF APP1 segment without loading the full image.
// It stops reading at the first scan.
func HasExif(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	found, err := findSOI(br)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	for {
		marker, err := readMarker(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		switch {
		case marker == markerEOI, marker == markerSOS:
			return false, nil
		case marker >= 0xD0 && marker <= 0xD7, marker == markerSOI:
			continue
		case marker == markerAPP1:
			match, err := segmentHasPrefix(br, exifSig)
			if err != nil {
				return false, err
			}
			if match {
				return true, nil
			}
		default:
			if err := discardSegment(br); err != nil {
				return false, err
			}
		}
	}
}

func findSOI(br *bufio.Reader) (bool, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if prev == markerStart && b == markerSOI {
			return true, nil
		}
		prev = b
	}
}

func readMarker(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != markerStart {
			continue
		}
		for {
			m, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			if m != markerStart {
				return m, nil
			}
		}
	}
}

func discardSegment(br *bufio.Reader) error {
	length, err := readU16(br)
	if err != nil {
		return err
	}
	if length < 2 {
		return errors.New("invalid segment length")
	}
	return discardN(br, int(length-2))
}

// segmentHasPrefix reads the segment payload header, checks it and skips the rest.
func segmentHasPrefix(br *bufio.Reader, prefix []byte) (bool, error) {
	length, err := readU16(br)
	if err != nil {
		return false, err
	}
	if length < 2 {
		return false, errors.New("invalid segment length")
	}
	payloadLen := int(length - 2)
	readLen := payloadLen
	if readLen > len(prefix) {
		readLen = len(prefix)
	}
	buf := make([]byte, readLen)
	if _, err := io.ReadFull(br, buf); err != nil {
		return false, err
	}
	match := bytes.Equal(buf, prefix)
	if err := discardN(br, payloadLen-readLen); err != nil {
		return false, err
	}
	return match, nil
}

func readU16(br *bufio.Reader) (uint16, error) {
	hi, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func discardN(br *bufio.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, br, int64(n))
	return err
}
