// Package jpegx holds JPEG encoding helpers and quantization table inspection.
package jpegx

import (
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
	"io"
)

// DefaultQuality is used when EncoderOptions.Quality is zero.
const DefaultQuality = 100

// EncoderOptions controls baseline JPEG encoding.
type EncoderOptions struct {
	Quality int // 1..100
}

// Encode writes img as a baseline JPEG.
func Encode(w io.Writer, img image.Image, opt EncoderOptions) error {
	q := opt.Quality
	if q == 0 {
		q = DefaultQuality
	}
	if q < 1 || q > 100 {
		return errors.New("jpeg quality out of range")
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

// Info describes an encoded JPEG without decoding entropy data.
type Info struct {
	Width, Height int
	Components    int
	Progressive   bool
	// Quality is estimated from the luminance quantization table, 0 if there is none.
	Quality int
}

// Inspect reads frame header and quantization tables from JPEG data.
func Inspect(data []byte) (Info, error) {
	var info Info
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return info, errors.New("invalid jpeg")
	}
	var luma []int
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == sosMarker || marker == eoiMarker {
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			continue
		}
		if pos+1 >= len(data) {
			return info, errors.New("truncated marker")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return info, errors.New("invalid segment length")
		}
		seg := data[pos+2 : pos+segLen]
		switch marker {
		case dqtMarker:
			q, err := parseDQT(seg)
			if err != nil {
				return info, err
			}
			if q != nil {
				luma = q
			}
		case sof0Marker, sof2Marker:
			if len(seg) < 6 {
				return info, errors.New("truncated sof")
			}
			info.Height = int(binary.BigEndian.Uint16(seg[1:3]))
			info.Width = int(binary.BigEndian.Uint16(seg[3:5]))
			info.Components = int(seg[5])
			info.Progressive = marker == sof2Marker
		}
		pos += segLen
	}
	if info.Width == 0 || info.Height == 0 {
		return info, errors.New("missing frame header")
	}
	if luma != nil {
		info.Quality = estimateQuality(luma)
	}
	return info, nil
}

// parseDQT returns table 0 in natural order, nil if the segment does not define it.
func parseDQT(seg []byte) ([]int, error) {
	var luma []int
	pos := 0
	for pos < len(seg) {
		pq := seg[pos] >> 4
		tq := seg[pos] & 0x0F
		pos++
		n := blockSize
		if pq != 0 {
			n *= 2
		}
		if pos+n > len(seg) {
			return nil, errors.New("truncated dqt")
		}
		if tq == 0 {
			luma = make([]int, blockSize)
			for i := 0; i < blockSize; i++ {
				v := int(seg[pos+i])
				if pq != 0 {
					v = int(binary.BigEndian.Uint16(seg[pos+2*i:]))
				}
				luma[unzig[i]] = v
			}
		}
		pos += n
	}
	return luma, nil
}

// estimateQuality inverts IJG table scaling.
func estimateQuality(luma []int) int {
	sum, base := 0, 0
	for i, v := range luma {
		sum += v
		base += stdLuminanceQuant[i]
	}
	switch sum {
	case 0:
		return 0
	case blockSize:
		return 100
	}
	scale := float64(sum) * 100 / float64(base)
	var q float64
	if scale <= 100 {
		q = (200 - scale) / 2
	} else {
		q = 5000 / scale
	}
	qi := int(q + 0.5)
	if qi < 1 {
		qi = 1
	}
	if qi > 100 {
		qi = 100
	}
	return qi
}
