package filmgrade

import (
	"bytes"
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rwcarlsen/goexif/exif"
)

func TestEmbedMetadata_gpsRoundTrip(t *testing.T) {
	alt := 760.0
	md := Compose(CaptureMetadata{
		"Make":         String("Apple"),
		"Model":        String("iPhone 15"),
		"FNumber":      Rational{Num: 18, Den: 10},
		"ExposureTime": Float(1.0 / 120),
		"Flash":        Int(16),
	}, &GPSFix{Latitude: -23.55, Longitude: -46.63, Altitude: &alt})

	out, dropped, err := EmbedMetadata(testJPEG(t, 32, 24), md)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped fields: %v", dropped)
	}

	x, err := exif.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode exif: %v", err)
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		t.Fatalf("lat long: %v", err)
	}
	if math.Abs(lat+23.55) > 1e-5 || math.Abs(lon+46.63) > 1e-5 {
		t.Fatalf("unexpected position %v, %v", lat, lon)
	}

	got, err := ReadExif(out)
	if err != nil {
		t.Fatalf("read exif: %v", err)
	}
	if c, ok := got["GPSLatitude"].(Coordinate); !ok || c.Ref != 'S' || math.Abs(c.Signed()+23.55) > 1e-5 {
		t.Fatalf("unexpected latitude %#v", got["GPSLatitude"])
	}
	if c, ok := got["GPSLongitude"].(Coordinate); !ok || c.Ref != 'W' || math.Abs(c.Signed()+46.63) > 1e-5 {
		t.Fatalf("unexpected longitude %#v", got["GPSLongitude"])
	}
	if a := got["GPSAltitude"]; a != Altitude(760) {
		t.Fatalf("unexpected altitude %#v", a)
	}
	if got["Make"] != String("Apple") || got["FNumber"] != (Rational{Num: 18, Den: 10}) || got["Flash"] != Int(16) {
		t.Fatalf("unexpected fields %v", got)
	}
	if got["ExposureTime"] != (Rational{Num: 1, Den: 120}) {
		t.Fatalf("unexpected exposure time %v", got["ExposureTime"])
	}
}

func TestEncodeExif_dropsInvalidFields(t *testing.T) {
	md := CaptureMetadata{
		"Make":         String("Canon"),
		"ExposureTime": Float(math.NaN()),
		"Orientation":  Int(70000),
		"Model":        String("R\x005"),
		"Vendor":       String("x"),
		"FNumber":      Rational{Num: 28, Den: 0},
		"GPSLatitude":  Coordinate{Degrees: 95, Ref: 'N'},
	}
	payload, dropped, err := EncodeExif(md)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var names []string
	for _, fe := range dropped {
		if !errors.Is(fe, ErrExifEncodeField) {
			t.Fatalf("%s: expected ErrExifEncodeField", fe.Field)
		}
		names = append(names, fe.Field)
	}
	want := []string{"ExposureTime", "FNumber", "GPSLatitude", "Model", "Orientation", "Vendor"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("unexpected dropped fields (-want +got):\n%s", diff)
	}

	out, err := EmbedExif(testJPEG(t, 16, 16), payload)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	got, err := ReadExif(out)
	if err != nil {
		t.Fatalf("read exif: %v", err)
	}
	if diff := cmp.Diff(CaptureMetadata{"Make": String("Canon")}, got); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}
}

func TestEncodeExif_layout(t *testing.T) {
	payload, _, err := EncodeExif(CaptureMetadata{
		"Software":    String("filmgrade"),
		"Make":        String("Fujifilm"),
		"Orientation": Int(1),
		"Artist":      String("A"),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(payload, exifSig) {
		t.Fatalf("missing exif signature")
	}
	tiff := payload[len(exifSig):]
	if !bytes.Equal(tiff[:4], tiffBigEndian) || tiffOrder.Uint32(tiff[4:8]) != 8 {
		t.Fatalf("unexpected tiff header % x", tiff[:8])
	}
	if len(tiff)%2 != 0 {
		t.Fatalf("odd tiff length %d", len(tiff))
	}

	n := int(tiffOrder.Uint16(tiff[8:10]))
	var tags []uint16
	for i := 0; i < n; i++ {
		e := tiff[10+i*ifdEntrySize:]
		tags = append(tags, tiffOrder.Uint16(e[0:2]))
		// Short ASCII values are stored inline.
		if tiffOrder.Uint16(e[0:2]) == 0x013B && !bytes.Equal(e[8:12], []byte{'A', 0, 0, 0}) {
			t.Fatalf("artist not inline: % x", e[8:12])
		}
	}
	want := []uint16{0x010F, 0x0112, 0x0131, 0x013B, tagExifIFDPointer}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Fatalf("unexpected ifd0 tags (-want +got):\n%s", diff)
	}
	if next := tiffOrder.Uint32(tiff[10+n*ifdEntrySize:]); next != 0 {
		t.Fatalf("unexpected next ifd %d without thumbnail", next)
	}
}

func TestEncodeExif_thumbnail(t *testing.T) {
	payload, _, err := EncodeExif(CaptureMetadata{"Make": String("Sony")}, func(o *ExifOptions) {
		o.Thumbnail = gradientImage(640, 480)
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := EmbedExif(testJPEG(t, 64, 48), payload)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	x, err := exif.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode exif: %v", err)
	}
	thumb, err := x.JpegThumbnail()
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != defaultThumbnailSize || b.Dy() != 120 {
		t.Fatalf("unexpected thumbnail size %v", b)
	}
}

func TestEncodeExif_thumbnailTooLarge(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	noise := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	for i := range noise.Pix {
		noise.Pix[i] = uint8(rnd.Intn(256))
	}
	for i := 3; i < len(noise.Pix); i += 4 {
		noise.Pix[i] = 255
	}

	payload, _, err := EncodeExif(CaptureMetadata{"Make": String("Sony")}, func(o *ExifOptions) {
		o.Thumbnail = noise
		o.ThumbnailSize = 512
		o.ThumbnailQuality = 100
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payload) > maxExifPayload {
		t.Fatalf("payload of %d bytes does not fit", len(payload))
	}
	out, err := EmbedExif(testJPEG(t, 16, 16), payload)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	x, err := exif.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode exif: %v", err)
	}
	if _, err := x.JpegThumbnail(); err == nil {
		t.Fatalf("oversized thumbnail must be skipped")
	}
}

func TestEncodeExif_tooLarge(t *testing.T) {
	md := Compose(CaptureMetadata{
		"Make":             String("Canon"),
		"ImageDescription": String(bytes.Repeat([]byte{'x'}, 50000)),
		"Copyright":        String(bytes.Repeat([]byte{'c'}, 30000)),
	}, &GPSFix{Latitude: 48.8584, Longitude: 2.2945})

	payload, dropped, err := EncodeExif(md)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payload) > maxExifPayload {
		t.Fatalf("payload of %d bytes does not fit", len(payload))
	}
	if len(dropped) != 1 || dropped[0].Field != "ImageDescription" || !errors.Is(dropped[0], ErrExifEncodeField) {
		t.Fatalf("unexpected dropped fields %v", dropped)
	}

	out, err := EmbedExif(testJPEG(t, 16, 16), payload)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	got, err := ReadExif(out)
	if err != nil {
		t.Fatalf("read exif: %v", err)
	}
	if c, _ := got["Copyright"].(String); got["Make"] != String("Canon") || len(c) != 30000 {
		t.Fatalf("remaining fields must survive: %v", got.Names())
	}
	if _, ok := got["ImageDescription"]; ok {
		t.Fatalf("oversized field must be dropped")
	}
	if c, ok := got["GPSLatitude"].(Coordinate); !ok || math.Abs(c.Signed()-48.8584) > 1e-5 {
		t.Fatalf("unexpected latitude %#v", got["GPSLatitude"])
	}
}

func TestRatFromFloat(t *testing.T) {
	for _, tc := range []struct {
		f      float64
		signed bool
		want   Rational
	}{
		{f: 0.5, want: Rational{Num: 1, Den: 2}},
		{f: 2, want: Rational{Num: 2, Den: 1}},
		{f: 0, want: Rational{Num: 0, Den: 1}},
		{f: 1.0 / 120, want: Rational{Num: 1, Den: 120}},
		{f: -1.0 / 3, signed: true, want: Rational{Num: -1, Den: 3}},
		{f: 4000000000, want: Rational{Num: 4000000000, Den: 1}},
	} {
		got, err := ratFromFloat(tc.f, tc.signed)
		if err != nil {
			t.Fatalf("%v: %v", tc.f, err)
		}
		if got != tc.want {
			t.Fatalf("%v: got %s, want %s", tc.f, got, tc.want)
		}
	}

	for _, v := range []float64{math.Pi, 0.3, 1e-7, 12345.678} {
		got, err := ratFromFloat(v, false)
		if err != nil {
			t.Fatalf("%v: %v", v, err)
		}
		if got.Den <= 0 || got.Den > 1000000 || math.Abs(got.Float64()-v) > 1e-6 {
			t.Fatalf("%v: poor approximation %s", v, got)
		}
	}

	for _, tc := range []struct {
		f      float64
		signed bool
	}{
		{f: math.NaN()},
		{f: math.Inf(1)},
		{f: -1},
		{f: 5e9},
		{f: 3e9, signed: true},
	} {
		if _, err := ratFromFloat(tc.f, tc.signed); err == nil {
			t.Fatalf("%v: expected error", tc.f)
		}
	}
}

func TestDMSRationals(t *testing.T) {
	for _, tc := range []struct {
		deg  float64
		want []Rational
	}{
		{deg: 23.55, want: []Rational{{Num: 23, Den: 1}, {Num: 33, Den: 1}, {Num: 0, Den: 10000}}},
		{deg: 46.63, want: []Rational{{Num: 46, Den: 1}, {Num: 37, Den: 1}, {Num: 480000, Den: 10000}}},
		{deg: 10.99999999999, want: []Rational{{Num: 11, Den: 1}, {Num: 0, Den: 1}, {Num: 0, Den: 10000}}},
	} {
		if diff := cmp.Diff(tc.want, dmsRationals(tc.deg)); diff != "" {
			t.Fatalf("%v (-want +got):\n%s", tc.deg, diff)
		}
	}
}

func TestEmbedMetadata_replacesExif(t *testing.T) {
	first, _, err := EmbedMetadata(testJPEG(t, 16, 16), CaptureMetadata{"Make": String("Canon"), "Model": String("R5")})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, _, err := EmbedMetadata(first, CaptureMetadata{"Make": String("Nikon")})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if n := bytes.Count(second, exifSig); n != 1 {
		t.Fatalf("expected one exif segment, got %d", n)
	}
	md, err := ReadExif(second)
	if err != nil {
		t.Fatalf("read exif: %v", err)
	}
	if diff := cmp.Diff(CaptureMetadata{"Make": String("Nikon")}, md); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}

	if _, _, err := EmbedMetadata([]byte("not a jpeg"), CaptureMetadata{"Make": String("Nikon")}); !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}
