package filmgrade

const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
	typeSRational = 10
)

// ifdKind indexes the directories EncodeExif fills from metadata fields.
type ifdKind int

const (
	ifd0 ifdKind = iota
	ifdExif
	ifdGPS
	ifdCount
)

const (
	tagCompression                 = 0x0103
	tagXResolution                 = 0x011A
	tagYResolution                 = 0x011B
	tagResolutionUnit              = 0x0128
	tagJPEGInterchangeFormat       = 0x0201
	tagJPEGInterchangeFormatLength = 0x0202
	tagExifIFDPointer              = 0x8769
	tagGPSIFDPointer               = 0x8825
	tagExifVersion                 = 0x9000

	tagGPSVersionID    = 0x0000
	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
	tagGPSAltitudeRef  = 0x0005
	tagGPSAltitude     = 0x0006
)

type tagInfo struct {
	id    uint16
	ifd   ifdKind
	typ   uint16
	count int // fixed value count, 0 for variable (ASCII)
}

// exifTags lists the writable fields by canonical name. Names follow goexif field names.
var exifTags = map[string]tagInfo{
	"ImageDescription": {0x010E, ifd0, typeASCII, 0},
	"Make":             {0x010F, ifd0, typeASCII, 0},
	"Model":            {0x0110, ifd0, typeASCII, 0},
	"Orientation":      {0x0112, ifd0, typeShort, 1},
	"XResolution":      {tagXResolution, ifd0, typeRational, 1},
	"YResolution":      {tagYResolution, ifd0, typeRational, 1},
	"ResolutionUnit":   {tagResolutionUnit, ifd0, typeShort, 1},
	"Software":         {0x0131, ifd0, typeASCII, 0},
	"DateTime":         {0x0132, ifd0, typeASCII, 0},
	"Artist":           {0x013B, ifd0, typeASCII, 0},
	"Copyright":        {0x8298, ifd0, typeASCII, 0},

	"ExposureTime":          {0x829A, ifdExif, typeRational, 1},
	"FNumber":               {0x829D, ifdExif, typeRational, 1},
	"ExposureProgram":       {0x8822, ifdExif, typeShort, 1},
	"ISOSpeedRatings":       {0x8827, ifdExif, typeShort, 1},
	"DateTimeOriginal":      {0x9003, ifdExif, typeASCII, 0},
	"DateTimeDigitized":     {0x9004, ifdExif, typeASCII, 0},
	"OffsetTime":            {0x9010, ifdExif, typeASCII, 0},
	"OffsetTimeOriginal":    {0x9011, ifdExif, typeASCII, 0},
	"ShutterSpeedValue":     {0x9201, ifdExif, typeSRational, 1},
	"ApertureValue":         {0x9202, ifdExif, typeRational, 1},
	"BrightnessValue":       {0x9203, ifdExif, typeSRational, 1},
	"ExposureBiasValue":     {0x9204, ifdExif, typeSRational, 1},
	"MaxApertureValue":      {0x9205, ifdExif, typeRational, 1},
	"MeteringMode":          {0x9207, ifdExif, typeShort, 1},
	"Flash":                 {0x9209, ifdExif, typeShort, 1},
	"FocalLength":           {0x920A, ifdExif, typeRational, 1},
	"SubSecTimeOriginal":    {0x9291, ifdExif, typeASCII, 0},
	"ColorSpace":            {0xA001, ifdExif, typeShort, 1},
	"PixelXDimension":       {0xA002, ifdExif, typeLong, 1},
	"PixelYDimension":       {0xA003, ifdExif, typeLong, 1},
	"SensingMethod":         {0xA217, ifdExif, typeShort, 1},
	"ExposureMode":          {0xA402, ifdExif, typeShort, 1},
	"WhiteBalance":          {0xA403, ifdExif, typeShort, 1},
	"DigitalZoomRatio":      {0xA404, ifdExif, typeRational, 1},
	"FocalLengthIn35mmFilm": {0xA405, ifdExif, typeShort, 1},
	"SceneCaptureType":      {0xA406, ifdExif, typeShort, 1},
	"LensMake":              {0xA433, ifdExif, typeASCII, 0},
	"LensModel":             {0xA434, ifdExif, typeASCII, 0},

	"GPSLatitude":          {tagGPSLatitude, ifdGPS, typeRational, 3},
	"GPSLongitude":         {tagGPSLongitude, ifdGPS, typeRational, 3},
	"GPSAltitude":          {tagGPSAltitude, ifdGPS, typeRational, 1},
	"GPSTimeStamp":         {0x0007, ifdGPS, typeRational, 3},
	"GPSSpeedRef":          {0x000C, ifdGPS, typeASCII, 0},
	"GPSSpeed":             {0x000D, ifdGPS, typeRational, 1},
	"GPSImgDirectionRef":   {0x0010, ifdGPS, typeASCII, 0},
	"GPSImgDirection":      {0x0011, ifdGPS, typeRational, 1},
	"GPSDateStamp":         {0x001D, ifdGPS, typeASCII, 0},
	"GPSHPositioningError": {0x001F, ifdGPS, typeRational, 1},
}

// derivedTags are written from other fields and are ignored when present in the input.
var derivedTags = map[string]bool{
	"GPSLatitudeRef":  true,
	"GPSLongitudeRef": true,
	"GPSAltitudeRef":  true,
	"GPSVersionID":    true,
	"ExifVersion":     true,

	"ExifIFDPointer":                   true,
	"GPSInfoIFDPointer":                true,
	"InteroperabilityIFDPointer":       true,
	"ThumbJPEGInterchangeFormat":       true,
	"ThumbJPEGInterchangeFormatLength": true,
}

func lookupTag(name string) (tagInfo, bool) {
	t, ok := exifTags[name]
	return t, ok
}
