package filmgrade

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/nfnt/resize"
	"github.com/vearutop/filmgrade/internal/jpegx"
)

// ExifOptions controls EXIF payload encoding.
type ExifOptions struct {
	// Thumbnail, when set, is downscaled and stored in IFD1.
	Thumbnail        image.Image
	ThumbnailSize    int // bounding box in pixels
	ThumbnailQuality int
	Logger           *slog.Logger
}

// EncodeExif builds an APP1 EXIF payload ("Exif\0\0" + TIFF) from md.
//
// Fields that can not be encoded are dropped and returned as FieldError values; the rest is
// written. When the payload does not fit into a single APP1 segment the thumbnail goes first,
// then string fields are dropped largest first until it fits.
func EncodeExif(md CaptureMetadata, opts ...func(o *ExifOptions)) ([]byte, []*FieldError, error) {
	o := ExifOptions{
		ThumbnailSize:    defaultThumbnailSize,
		ThumbnailQuality: defaultThumbnailQuality,
		Logger:           discardLogger(),
	}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}

	var fields []encodedField
	var dropped []*FieldError

	for _, name := range md.Names() {
		if derivedTags[name] {
			continue
		}
		t, ok := lookupTag(name)
		if !ok {
			dropped = append(dropped, fieldErr(name, "unsupported field"))
			continue
		}
		entries, err := encodeField(name, t, md[name])
		if err != nil {
			dropped = append(dropped, &FieldError{Field: name, Err: err})
			continue
		}
		fields = append(fields, encodedField{name: name, ifd: t.ifd, entries: entries})
	}
	for _, fe := range dropped {
		o.Logger.Warn("exif field dropped", "field", fe.Field, "error", fe.Err)
	}

	var thumb []byte
	if o.Thumbnail != nil {
		var err error
		if thumb, err = encodeThumbnail(o.Thumbnail, o.ThumbnailSize, o.ThumbnailQuality); err != nil {
			o.Logger.Warn("exif thumbnail skipped", "error", err)
			thumb = nil
		}
	}

	payload := layoutExif(buildDirs(fields), thumb)
	if len(payload) > maxExifPayload && thumb != nil {
		o.Logger.Warn("exif thumbnail skipped", "error", "segment too large", "size", len(payload))
		payload = layoutExif(buildDirs(fields), nil)
	}
	for len(payload) > maxExifPayload {
		i := largestStringField(fields)
		if i < 0 {
			return nil, dropped, fmt.Errorf("exif payload of %d bytes exceeds APP1 limit", len(payload))
		}
		f := fields[i]
		fe := fieldErr(f.name, "%d bytes do not fit into APP1 segment", f.dataSize())
		o.Logger.Warn("exif field dropped", "field", fe.Field, "error", fe.Err)
		dropped = append(dropped, fe)
		fields = append(fields[:i], fields[i+1:]...)
		payload = layoutExif(buildDirs(fields), nil)
	}
	return payload, dropped, nil
}

// encodedField holds the entries one metadata field contributes to its directory.
type encodedField struct {
	name    string
	ifd     ifdKind
	entries []ifdEntry
}

// dataSize is the number of bytes the field occupies in directory data areas.
func (f encodedField) dataSize() int {
	n := 0
	for _, e := range f.entries {
		if len(e.data) > 4 {
			n += len(e.data)
		}
	}
	return n
}

func buildDirs(fields []encodedField) [ifdCount]ifdBuilder {
	var dirs [ifdCount]ifdBuilder
	for _, f := range fields {
		for _, e := range f.entries {
			dirs[f.ifd].add(e)
		}
	}
	return dirs
}

// largestStringField returns the index of the ASCII field with the biggest data area, or -1.
func largestStringField(fields []encodedField) int {
	best, bestSize := -1, 0
	for i, f := range fields {
		if len(f.entries) != 1 || f.entries[0].typ != typeASCII {
			continue
		}
		if n := f.dataSize(); n > bestSize {
			best, bestSize = i, n
		}
	}
	return best
}

// EmbedMetadata encodes md and splices it into jpegData, replacing existing EXIF.
func EmbedMetadata(jpegData []byte, md CaptureMetadata, opts ...func(o *ExifOptions)) ([]byte, []*FieldError, error) {
	payload, dropped, err := EncodeExif(md, opts...)
	if err != nil {
		return nil, dropped, err
	}
	out, err := EmbedExif(jpegData, payload)
	return out, dropped, err
}

func layoutExif(dirs [ifdCount]ifdBuilder, thumb []byte) []byte {
	ifd0Dir, exifDir, gpsDir := dirs[ifd0], dirs[ifdExif], dirs[ifdGPS]

	exifDir.add(ifdEntry{tag: tagExifVersion, typ: typeUndefined, count: 4, data: exifVersion})
	hasGPS := !gpsDir.empty()
	if hasGPS {
		gpsDir.add(ifdEntry{tag: tagGPSVersionID, typ: typeByte, count: 4, data: gpsVersionID})
		ifd0Dir.addLong(tagGPSIFDPointer, 0)
	}
	ifd0Dir.addLong(tagExifIFDPointer, 0)

	var thumbDir ifdBuilder
	if thumb != nil {
		thumbDir.addShort(tagCompression, 6)
		thumbDir.addRational(tagXResolution, 72, 1)
		thumbDir.addRational(tagYResolution, 72, 1)
		thumbDir.addShort(tagResolutionUnit, 2)
		thumbDir.addLong(tagJPEGInterchangeFormat, 0)
		thumbDir.addLong(tagJPEGInterchangeFormatLength, uint32(len(thumb)))
	}

	offIFD0 := uint32(tiffHeaderSize)
	offExif := offIFD0 + uint32(ifd0Dir.size())
	offGPS := offExif + uint32(exifDir.size())
	offIFD1 := offGPS
	if hasGPS {
		offIFD1 += uint32(gpsDir.size())
	}

	ifd0Dir.addLong(tagExifIFDPointer, offExif)
	if hasGPS {
		ifd0Dir.addLong(tagGPSIFDPointer, offGPS)
	}
	next := uint32(0)
	if thumb != nil {
		next = offIFD1
		thumbDir.addLong(tagJPEGInterchangeFormat, offIFD1+uint32(thumbDir.size()))
	}

	out := make([]byte, 0, 1024+len(thumb))
	out = append(out, exifSig...)
	out = append(out, tiffBigEndian...)
	out = tiffOrder.AppendUint32(out, offIFD0)
	out = ifd0Dir.appendTo(out, offIFD0, next)
	out = exifDir.appendTo(out, offExif, 0)
	if hasGPS {
		out = gpsDir.appendTo(out, offGPS, 0)
	}
	if thumb != nil {
		out = thumbDir.appendTo(out, offIFD1, 0)
		out = append(out, thumb...)
	}
	return out
}

func encodeThumbnail(img image.Image, size, quality int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.New("invalid thumbnail size")
	}
	t := resize.Thumbnail(uint(size), uint(size), img, resize.Bilinear)
	var buf bytes.Buffer
	if err := jpegx.Encode(&buf, t, jpegx.EncoderOptions{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeField(name string, t tagInfo, v Value) ([]ifdEntry, error) {
	switch name {
	case "GPSLatitude":
		return encodeCoordinate(v, tagGPSLatitude, tagGPSLatitudeRef, 90, LatitudeOf)
	case "GPSLongitude":
		return encodeCoordinate(v, tagGPSLongitude, tagGPSLongitudeRef, 180, LongitudeOf)
	case "GPSAltitude":
		return encodeAltitude(v)
	}

	switch t.typ {
	case typeASCII:
		s, ok := v.(String)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		data, err := asciiBytes(string(s))
		if err != nil {
			return nil, err
		}
		return []ifdEntry{{tag: t.id, typ: typeASCII, count: uint32(len(data)), data: data}}, nil

	case typeShort, typeLong:
		n, err := intValue(v)
		if err != nil {
			return nil, err
		}
		if t.typ == typeShort {
			if n < 0 || n > math.MaxUint16 {
				return nil, fmt.Errorf("value %d out of SHORT range", n)
			}
			return []ifdEntry{{tag: t.id, typ: typeShort, count: 1, data: tiffOrder.AppendUint16(nil, uint16(n))}}, nil
		}
		if n < 0 || n > math.MaxUint32 {
			return nil, fmt.Errorf("value %d out of LONG range", n)
		}
		return []ifdEntry{{tag: t.id, typ: typeLong, count: 1, data: tiffOrder.AppendUint32(nil, uint32(n))}}, nil

	case typeRational, typeSRational:
		signed := t.typ == typeSRational
		var rs []Rational
		if multi, ok := v.(Rationals); ok {
			rs = multi
		} else {
			r, err := ratValue(v, signed)
			if err != nil {
				return nil, err
			}
			rs = []Rational{r}
		}
		if len(rs) != t.count {
			return nil, fmt.Errorf("want %d rationals, got %d", t.count, len(rs))
		}
		data, err := rationalBytes(rs, signed)
		if err != nil {
			return nil, err
		}
		return []ifdEntry{{tag: t.id, typ: t.typ, count: uint32(len(rs)), data: data}}, nil
	}
	return nil, fmt.Errorf("unsupported tiff type %d", t.typ)
}

func encodeCoordinate(v Value, tag, refTag uint16, limit float64, fromSigned func(float64) Coordinate) ([]ifdEntry, error) {
	var c Coordinate
	switch tv := v.(type) {
	case Coordinate:
		c = tv
	case Float:
		c = fromSigned(float64(tv))
	case Rational:
		c = fromSigned(tv.Float64())
	case Rationals:
		deg, ok := dmsToDegrees(tv)
		if !ok {
			return nil, errors.New("invalid DMS rationals")
		}
		c = fromSigned(deg)
	default:
		return nil, fmt.Errorf("want coordinate, got %T", v)
	}
	switch c.Ref {
	case 'N', 'S', 'E', 'W':
	default:
		return nil, fmt.Errorf("invalid hemisphere reference %q", c.Ref)
	}
	if math.IsNaN(c.Degrees) || c.Degrees < 0 || c.Degrees > limit {
		return nil, fmt.Errorf("coordinate %v out of range [0, %v]", c.Degrees, limit)
	}
	dms := dmsRationals(c.Degrees)
	data, err := rationalBytes(dms, false)
	if err != nil {
		return nil, err
	}
	return []ifdEntry{
		{tag: refTag, typ: typeASCII, count: 2, data: []byte{c.Ref, 0}},
		{tag: tag, typ: typeRational, count: 3, data: data},
	}, nil
}

func encodeAltitude(v Value) ([]ifdEntry, error) {
	var alt float64
	switch tv := v.(type) {
	case Altitude:
		alt = float64(tv)
	case Float:
		alt = float64(tv)
	case Int:
		alt = float64(tv)
	case Rational:
		alt = tv.Float64()
	default:
		return nil, fmt.Errorf("want altitude, got %T", v)
	}
	ref := byte(0)
	if alt < 0 {
		ref = 1
		alt = -alt
	}
	r, err := ratFromFloat(alt, false)
	if err != nil {
		return nil, err
	}
	data, err := rationalBytes([]Rational{r}, false)
	if err != nil {
		return nil, err
	}
	return []ifdEntry{
		{tag: tagGPSAltitudeRef, typ: typeByte, count: 1, data: []byte{ref}},
		{tag: tagGPSAltitude, typ: typeRational, count: 1, data: data},
	}, nil
}

// dmsRationals splits absolute degrees into degrees/1, minutes/1 and seconds/10000.
func dmsRationals(deg float64) []Rational {
	d := math.Floor(deg)
	minutes := (deg - d) * 60
	m := math.Floor(minutes)
	sec := int64(math.Round((minutes - m) * 60 * 10000))
	if sec >= 60*10000 {
		sec -= 60 * 10000
		m++
	}
	if m >= 60 {
		m -= 60
		d++
	}
	return []Rational{{Num: int64(d), Den: 1}, {Num: int64(m), Den: 1}, {Num: sec, Den: 10000}}
}

func asciiBytes(s string) ([]byte, error) {
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return nil, errors.New("string contains NUL")
	}
	if len(s) > maxExifPayload {
		return nil, errors.New("string too long")
	}
	return append([]byte(s), 0), nil
}

func intValue(v Value) (int64, error) {
	switch tv := v.(type) {
	case Int:
		return int64(tv), nil
	case Float:
		f := float64(tv)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("want integer, got %v", f)
		}
		return int64(f), nil
	case Rational:
		if tv.Den != 0 && tv.Num%tv.Den == 0 {
			return tv.Num / tv.Den, nil
		}
		return 0, fmt.Errorf("want integer, got %s", tv)
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

func ratValue(v Value, signed bool) (Rational, error) {
	switch tv := v.(type) {
	case Rational:
		return tv, nil
	case Float:
		return ratFromFloat(float64(tv), signed)
	case Int:
		return Rational{Num: int64(tv), Den: 1}, nil
	case Altitude:
		return ratFromFloat(float64(tv), signed)
	default:
		return Rational{}, fmt.Errorf("want rational, got %T", v)
	}
}

func rationalBytes(rs []Rational, signed bool) ([]byte, error) {
	out := make([]byte, 0, 8*len(rs))
	for _, r := range rs {
		num, den := r.Num, r.Den
		if den == 0 {
			return nil, fmt.Errorf("zero denominator in %s", r)
		}
		if den < 0 {
			num, den = -num, -den
		}
		if signed {
			if num < math.MinInt32 || num > math.MaxInt32 || den > math.MaxInt32 {
				return nil, fmt.Errorf("%s out of SRATIONAL range", r)
			}
			out = tiffOrder.AppendUint32(out, uint32(int32(num)))
			out = tiffOrder.AppendUint32(out, uint32(int32(den)))
			continue
		}
		if num < 0 || num > math.MaxUint32 || den > math.MaxUint32 {
			return nil, fmt.Errorf("%s out of RATIONAL range", r)
		}
		out = tiffOrder.AppendUint32(out, uint32(num))
		out = tiffOrder.AppendUint32(out, uint32(den))
	}
	return out, nil
}

// ratFromFloat finds the closest fraction that fits the (S)RATIONAL range.
func ratFromFloat(f float64, signed bool) (Rational, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{}, fmt.Errorf("not a finite number: %v", f)
	}
	if !signed && f < 0 {
		return Rational{}, fmt.Errorf("negative value %v for unsigned rational", f)
	}
	limit := float64(math.MaxUint32)
	if signed {
		limit = math.MaxInt32
	}
	a := math.Abs(f)
	if a > limit {
		return Rational{}, fmt.Errorf("value %v out of rational range", f)
	}
	maxDen := int64(1000000)
	if a >= 1 {
		if d := int64(limit / a); d < maxDen {
			maxDen = d
		}
	}
	num, den := approxRational(a, maxDen)
	if f < 0 {
		num = -num
	}
	return Rational{Num: num, Den: den}, nil
}

// approxRational walks continued fraction convergents of x until the denominator exceeds maxDen.
func approxRational(x float64, maxDen int64) (int64, int64) {
	h0, h1 := int64(0), int64(1)
	k0, k1 := int64(1), int64(0)
	v := x
	for i := 0; i < 64; i++ {
		a := math.Floor(v)
		if a > float64(math.MaxInt32)*2 {
			break
		}
		ai := int64(a)
		k2 := ai*k1 + k0
		if k2 > maxDen || k2 <= 0 {
			break
		}
		h0, h1 = h1, ai*h1+h0
		k0, k1 = k1, k2
		frac := v - a
		if frac < 1e-12 {
			break
		}
		v = 1 / frac
	}
	if k1 == 0 {
		return int64(math.Round(x)), 1
	}
	return h1, k1
}
