package filmgrade

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CaptureMetadata maps canonical EXIF field names (ExposureTime, FNumber, GPSLatitude, ...) to values.
// Missing fields are absent from the map.
type CaptureMetadata map[string]Value

// Value is one of String, Int, Float, Rational, Rationals, Coordinate or Altitude.
type Value interface {
	isValue()
}

// String is an ASCII field value.
type String string

// Int is an integer field value (SHORT, LONG or BYTE on the wire).
type Int int64

// Float is an unconverted numeric value, typically from a camera dictionary.
// It is turned into a rational when written.
type Float float64

// Rational keeps the numerator and denominator of a (S)RATIONAL field.
type Rational struct {
	Num, Den int64
}

// Rationals is a multi-valued rational field, e.g. GPSTimeStamp.
type Rationals []Rational

// Coordinate is a GPS latitude or longitude: absolute degrees plus hemisphere (N, S, E or W).
type Coordinate struct {
	Degrees float64
	Ref     byte
}

// Altitude is the GPS altitude in meters, negative below sea level.
type Altitude float64

func (String) isValue()     {}
func (Int) isValue()        {}
func (Float) isValue()      {}
func (Rational) isValue()   {}
func (Rationals) isValue()  {}
func (Coordinate) isValue() {}
func (Altitude) isValue()   {}

// Float64 returns the rational as float, NaN for a zero denominator.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return math.NaN()
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return strconv.FormatInt(r.Num, 10) + "/" + strconv.FormatInt(r.Den, 10)
}

// Signed returns the coordinate in signed decimal degrees (south and west negative).
func (c Coordinate) Signed() float64 {
	if c.Ref == 'S' || c.Ref == 'W' {
		return -c.Degrees
	}
	return c.Degrees
}

// LatitudeOf builds a latitude from signed decimal degrees.
func LatitudeOf(deg float64) Coordinate {
	if deg < 0 {
		return Coordinate{Degrees: -deg, Ref: 'S'}
	}
	return Coordinate{Degrees: deg, Ref: 'N'}
}

// LongitudeOf builds a longitude from signed decimal degrees.
func LongitudeOf(deg float64) Coordinate {
	if deg < 0 {
		return Coordinate{Degrees: -deg, Ref: 'W'}
	}
	return Coordinate{Degrees: deg, Ref: 'E'}
}

// GPSFix is the capture-time location reported by the device.
type GPSFix struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // meters above sea level
	// Time of the fix; zero means unknown.
	Time time.Time
	// Speed in km/h.
	Speed *float64
	// Heading in degrees relative to true north.
	Heading         *float64
	HorizontalError *float64 // meters
}

// Clone returns a shallow copy of the map; values are immutable.
func (m CaptureMetadata) Clone() CaptureMetadata {
	out := make(CaptureMetadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge overlays other onto a copy of m.
func (m CaptureMetadata) Merge(other CaptureMetadata) CaptureMetadata {
	out := m.Clone()
	for k, v := range other {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Compose starts from camera-provided metadata and overlays the capture-time GPS fix.
//
// Split GPS fields (value plus *Ref) are folded into Coordinate and Altitude values.
// When gps is not nil every GPS field of source is replaced, stale camera GPS never survives.
func Compose(source CaptureMetadata, gps *GPSFix) CaptureMetadata {
	md := make(CaptureMetadata, len(source)+8)
	for k, v := range source {
		if v != nil {
			md[k] = v
		}
	}

	if gps != nil {
		for k := range md {
			if strings.HasPrefix(k, "GPS") {
				delete(md, k)
			}
		}
		overlayGPS(md, gps)
		return md
	}

	foldCoordinate(md, "GPSLatitude", "GPSLatitudeRef", LatitudeOf)
	foldCoordinate(md, "GPSLongitude", "GPSLongitudeRef", LongitudeOf)
	foldAltitude(md)
	return md
}

func overlayGPS(md CaptureMetadata, gps *GPSFix) {
	md["GPSLatitude"] = LatitudeOf(gps.Latitude)
	md["GPSLongitude"] = LongitudeOf(gps.Longitude)
	if gps.Altitude != nil {
		md["GPSAltitude"] = Altitude(*gps.Altitude)
	}
	if !gps.Time.IsZero() {
		t := gps.Time.UTC()
		md["GPSDateStamp"] = String(t.Format("2006:01:02"))
		md["GPSTimeStamp"] = Rationals{
			{Num: int64(t.Hour()), Den: 1},
			{Num: int64(t.Minute()), Den: 1},
			{Num: int64(t.Second())*1000 + int64(t.Nanosecond()/1e6), Den: 1000},
		}
	}
	if gps.Speed != nil {
		md["GPSSpeedRef"] = String("K")
		md["GPSSpeed"] = Float(*gps.Speed)
	}
	if gps.Heading != nil {
		md["GPSImgDirectionRef"] = String("T")
		md["GPSImgDirection"] = Float(*gps.Heading)
	}
	if gps.HorizontalError != nil {
		md["GPSHPositioningError"] = Float(*gps.HorizontalError)
	}
}

func foldCoordinate(md CaptureMetadata, field, refField string, fromSigned func(float64) Coordinate) {
	v, ok := md[field]
	if !ok {
		delete(md, refField)
		return
	}
	ref := refByte(md[refField])
	delete(md, refField)

	var deg float64
	switch tv := v.(type) {
	case Coordinate:
		return
	case Rationals:
		d, ok := dmsToDegrees(tv)
		if !ok {
			// Left as is; the writer reports it.
			return
		}
		deg = d
	case Rational:
		deg = tv.Float64()
	case Float:
		deg = float64(tv)
	case Int:
		deg = float64(tv)
	default:
		return
	}

	c := fromSigned(deg)
	if ref != 0 {
		c.Ref = ref
	}
	md[field] = c
}

func foldAltitude(md CaptureMetadata) {
	v, ok := md["GPSAltitude"]
	if !ok {
		delete(md, "GPSAltitudeRef")
		return
	}
	below := false
	switch ref := md["GPSAltitudeRef"].(type) {
	case Int:
		below = ref == 1
	case String:
		below = strings.TrimSpace(string(ref)) == "1"
	}
	delete(md, "GPSAltitudeRef")

	var alt float64
	switch tv := v.(type) {
	case Altitude:
		return
	case Rational:
		alt = tv.Float64()
	case Float:
		alt = float64(tv)
	case Int:
		alt = float64(tv)
	default:
		return
	}
	if below && alt > 0 {
		alt = -alt
	}
	md["GPSAltitude"] = Altitude(alt)
}

func refByte(v Value) byte {
	s, ok := v.(String)
	if !ok {
		return 0
	}
	t := strings.ToUpper(strings.TrimSpace(string(s)))
	if t == "" {
		return 0
	}
	switch t[0] {
	case 'N', 'S', 'E', 'W':
		return t[0]
	}
	return 0
}

func dmsToDegrees(r Rationals) (float64, bool) {
	if len(r) == 0 || len(r) > 3 {
		return 0, false
	}
	div := 1.0
	deg := 0.0
	for _, p := range r {
		f := p.Float64()
		if math.IsNaN(f) {
			return 0, false
		}
		deg += f / div
		div *= 60
	}
	return deg, true
}

// FromDictionary normalizes a loosely typed camera dictionary (as decoded from JSON or handed
// over by a camera API) into CaptureMetadata. Nil values are skipped; arrays keep their first
// element except for rational triples.
func FromDictionary(dict map[string]any) CaptureMetadata {
	md := make(CaptureMetadata, len(dict))
	for k, raw := range dict {
		if v := normalizeValue(k, raw); v != nil {
			md[k] = v
		}
	}
	return md
}

func normalizeValue(field string, raw any) Value {
	switch v := raw.(type) {
	case nil:
		return nil
	case Value:
		return v
	case string:
		if r, ok := parseRationalString(v); ok && isRationalField(field) {
			return r
		}
		return String(v)
	case bool:
		if v {
			return Int(1)
		}
		return Int(0)
	case int:
		return Int(v)
	case int64:
		return Int(v)
	case int32:
		return Int(v)
	case uint16:
		return Int(v)
	case uint32:
		return Int(v)
	case float32:
		return numberValue(field, float64(v))
	case float64:
		return numberValue(field, v)
	case []any:
		if len(v) == 0 {
			return nil
		}
		if len(v) == 3 && (field == "GPSLatitude" || field == "GPSLongitude" || field == "GPSTimeStamp") {
			var rs Rationals
			for _, e := range v {
				f, ok := e.(float64)
				if !ok {
					return normalizeValue(field, v[0])
				}
				r, err := ratFromFloat(f, false)
				if err != nil {
					return nil
				}
				rs = append(rs, r)
			}
			return rs
		}
		return normalizeValue(field, v[0])
	case []int:
		if len(v) == 0 {
			return nil
		}
		return Int(v[0])
	}
	return nil
}

// numberValue keeps integral numbers of integer fields as Int, everything else as Float.
func numberValue(field string, f float64) Value {
	if t, ok := lookupTag(field); ok && (t.typ == typeShort || t.typ == typeLong || t.typ == typeByte) {
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return Int(int64(f))
		}
	}
	return Float(f)
}

func isRationalField(field string) bool {
	t, ok := lookupTag(field)
	return ok && (t.typ == typeRational || t.typ == typeSRational)
}

func parseRationalString(s string) (Rational, bool) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rational{}, false
	}
	n, err1 := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	d, err2 := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return Rational{}, false
	}
	return Rational{Num: n, Den: d}, true
}
