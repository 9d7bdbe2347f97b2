package jpegx

const (
	sof0Marker = 0xc0 // Start Of Frame (Baseline Sequential).
	sof2Marker = 0xc2 // Start Of Frame (Progressive).
	dqtMarker  = 0xdb // Define Quantization Table.
	sosMarker  = 0xda
	eoiMarker  = 0xd9
)

const blockSize = 64 // A DCT block is 8x8.

// unzig maps from the zig-zag ordering to the natural ordering.
var unzig = [blockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// stdLuminanceQuant is the IJG base luminance table in natural order, it is scaled by quality.
var stdLuminanceQuant = [blockSize]int{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}
