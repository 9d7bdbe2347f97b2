package filmgrade

const (
	// LUTNone is the catalog id of the identity transform.
	LUTNone = "none"

	defaultQuality          = 100
	defaultThumbnailSize    = 160
	defaultThumbnailQuality = 75
	defaultQueueSize        = 16
)

const (
	maxCubeSize = 256
	// maxExifPayload is the largest APP1 payload: segment length is a uint16 that counts itself.
	maxExifPayload = 0xFFFF - 2
)

var exifVersion = []byte{'0', '2', '3', '2'}

var gpsVersionID = []byte{2, 3, 0, 0}
