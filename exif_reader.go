package filmgrade

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	exiftiff "github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/exp/maps"
)

// ReadExif reads the EXIF of a JPEG into CaptureMetadata.
//
// Only fields that can be written back are kept, split GPS fields are folded the same way
// Compose does. Rationals keep numerator and denominator.
func ReadExif(jpegData []byte) (CaptureMetadata, error) {
	x, err := exif.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("read exif: %w", err)
	}
	w := exifCollector{md: make(CaptureMetadata)}
	if err := x.Walk(&w); err != nil {
		return nil, fmt.Errorf("walk exif: %w", err)
	}
	return Compose(w.md, nil), nil
}

type exifCollector struct {
	md CaptureMetadata
}

var foldedRefs = map[string]bool{
	"GPSLatitudeRef":  true,
	"GPSLongitudeRef": true,
	"GPSAltitudeRef":  true,
}

func (w *exifCollector) Walk(name exif.FieldName, tag *exiftiff.Tag) error {
	n := string(name)
	if _, ok := exifTags[n]; !ok && !foldedRefs[n] {
		return nil
	}
	if v := tagValue(tag); v != nil {
		w.md[n] = v
	}
	return nil
}

func tagValue(tag *exiftiff.Tag) Value {
	if tag.Count == 0 {
		return nil
	}
	switch tag.Format() {
	case exiftiff.IntVal:
		n, err := tag.Int64(0)
		if err != nil {
			return nil
		}
		return Int(n)
	case exiftiff.RatVal:
		rs := make(Rationals, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return nil
			}
			rs = append(rs, Rational{Num: num, Den: den})
		}
		if len(rs) == 1 {
			return rs[0]
		}
		return rs
	case exiftiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil
		}
		return String(strings.TrimRight(s, "\x00 "))
	case exiftiff.FloatVal:
		f, err := tag.Float(0)
		if err != nil {
			return nil
		}
		return Float(f)
	}
	return nil
}

// Summary is the viewer-facing digest of capture metadata. Empty strings mean unknown.
type Summary struct {
	ISO             string   `json:"iso,omitempty"`
	Aperture        string   `json:"aperture,omitempty"`
	Shutter         string   `json:"shutter,omitempty"`
	ExposureBias    string   `json:"exposureBias,omitempty"`
	FocalLength35mm string   `json:"focalLength35mm,omitempty"`
	Lens            string   `json:"lens,omitempty"`
	Date            string   `json:"date,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// ReadSummary reads the EXIF of a JPEG and formats it for display.
func ReadSummary(jpegData []byte) (*Summary, error) {
	md, err := ReadExif(jpegData)
	if err != nil {
		return nil, err
	}
	return Summarize(md), nil
}

// Summarize formats composed metadata for display.
func Summarize(md CaptureMetadata) *Summary {
	s := &Summary{}
	if iso, ok := numeric(md["ISOSpeedRatings"]); ok && iso > 0 {
		s.ISO = strconv.FormatFloat(iso, 'f', -1, 64)
	}
	if f, ok := numeric(md["FNumber"]); ok && f > 0 {
		s.Aperture = "f/" + strconv.FormatFloat(f, 'f', 1, 64)
	}
	if t, ok := numeric(md["ExposureTime"]); ok && t > 0 {
		s.Shutter = formatShutter(t)
	}
	if ev, ok := numeric(md["ExposureBiasValue"]); ok {
		s.ExposureBias = formatBias(ev)
	}
	if fl, ok := numeric(md["FocalLengthIn35mmFilm"]); ok && fl > 0 {
		s.FocalLength35mm = strconv.FormatFloat(fl, 'f', -1, 64) + "mm"
	}
	if lens, ok := md["LensModel"].(String); ok {
		s.Lens = string(lens)
	}
	if d, ok := md["DateTimeOriginal"].(String); ok {
		s.Date = string(d)
	}
	if c, ok := md["GPSLatitude"].(Coordinate); ok {
		lat := c.Signed()
		s.Latitude = &lat
	}
	if c, ok := md["GPSLongitude"].(Coordinate); ok {
		lon := c.Signed()
		s.Longitude = &lon
	}
	return s
}

// Fields returns the non-empty summary entries in a stable order, for tabular output.
func (s *Summary) Fields() [][2]string {
	m := map[string]string{
		"iso":      s.ISO,
		"aperture": s.Aperture,
		"shutter":  s.Shutter,
		"bias":     s.ExposureBias,
		"focal35":  s.FocalLength35mm,
		"lens":     s.Lens,
		"date":     s.Date,
	}
	if s.Latitude != nil {
		m["latitude"] = strconv.FormatFloat(*s.Latitude, 'f', 6, 64)
	}
	if s.Longitude != nil {
		m["longitude"] = strconv.FormatFloat(*s.Longitude, 'f', 6, 64)
	}
	keys := maps.Keys(m)
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		if m[k] != "" {
			out = append(out, [2]string{k, m[k]})
		}
	}
	return out
}

func formatShutter(seconds float64) string {
	if seconds >= 1 {
		return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
	}
	return "1/" + strconv.FormatFloat(math.Round(1/seconds), 'f', 0, 64)
}

func formatBias(ev float64) string {
	ev = math.Round(ev*10) / 10
	s := strconv.FormatFloat(ev, 'f', -1, 64)
	if ev > 0 {
		s = "+" + s
	}
	return s + " EV"
}

func numeric(v Value) (float64, bool) {
	var f float64
	switch tv := v.(type) {
	case Int:
		f = float64(tv)
	case Float:
		f = float64(tv)
	case Rational:
		f = tv.Float64()
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
