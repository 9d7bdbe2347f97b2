// Package filmgrade applies film-emulation 3D LUTs to captured photos and writes capture
// metadata (EXIF/GPS) into the resulting JPEG.
//
// LUTs are parsed from .cube resources into a Catalog that is built once and shared read-only
// between requests. A Pipeline decodes the capture, runs the color transform over a bounded
// worker pool, re-encodes it and splices a freshly built APP1 EXIF segment after SOI.
// Queue serializes captures so they are delivered in submission order.
package filmgrade
