package filmgrade

import (
	"fmt"
	"log/slog"
	"time"
)

// Pipeline grades captures with catalog LUTs and writes their metadata.
// It is safe for concurrent use.
type Pipeline struct {
	catalog *Catalog
	opts    Options
}

// New creates a Pipeline, catalog may be nil to only write metadata.
func New(catalog *Catalog, opts ...func(o *Options)) *Pipeline {
	o := Options{
		Quality: defaultQuality,
		Logger:  discardLogger(),
	}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return &Pipeline{catalog: catalog, opts: o}
}

// ListAvailableLUTs returns the selectable presets, "none" first.
func (p *Pipeline) ListAvailableLUTs() []LUTInfo {
	if p.catalog == nil {
		return []LUTInfo{{ID: LUTNone, DisplayName: "None"}}
	}
	return p.catalog.ListAvailableLUTs()
}

// Process grades one capture and embeds its composed metadata.
//
// An unknown or broken LUT degrades to identity. When decoding, grading or encoding fails,
// Output holds the original capture (with metadata if it could be embedded) and Err tells why.
func (p *Pipeline) Process(req Request) Result {
	start := time.Now()
	log := p.opts.Logger.With("id", req.ID)

	if len(req.Encoded) == 0 && req.Pixels == nil {
		return Result{ID: req.ID, Err: fmt.Errorf("%w: empty request", ErrDecode)}
	}

	lut := p.lookup(req.LUTID, log)
	md := p.metadata(req, log)

	var res Result
	if lut == nil && isJPEG(req.Encoded) {
		out, dropped, err := EmbedMetadata(req.Encoded, md, p.exifOptions(nil))
		if err != nil {
			res = Result{Output: req.Encoded, Err: err}
		} else {
			res = Result{Output: out, Dropped: dropped}
		}
	} else {
		res = p.grade(req, lut, md, log)
	}
	res.ID = req.ID

	if res.Err != nil {
		log.Warn("capture not graded", "lut", req.LUTID, "error", res.Err)
	}
	log.Debug("capture processed", "lut", req.LUTID, "applied", res.LUTApplied,
		"dropped", len(res.Dropped), "bytes", len(res.Output), "elapsed", time.Since(start))
	return res
}

func (p *Pipeline) grade(req Request, lut *CubeLUT, md CaptureMetadata, log *slog.Logger) Result {
	pb := req.Pixels
	if len(req.Encoded) > 0 {
		var err error
		if pb, _, err = DecodeImage(req.Encoded); err != nil {
			return p.fallback(req, md, err)
		}
	}

	t := Transform{Space: p.opts.Space, Interpolation: p.opts.Interpolation, Workers: p.opts.Workers}
	graded, err := t.Apply(pb, lut)
	if err != nil {
		return p.fallback(req, md, err)
	}

	encoded, err := encodeJPEG(graded, p.opts.Quality)
	if err != nil {
		return p.fallback(req, md, err)
	}

	if isJPEG(req.Encoded) {
		_, icc, err := extractExifAndIcc(req.Encoded)
		if err == nil && len(icc) > 0 {
			if g := detectGamut(collectICCProfile(icc)); g != GamutSRGB && lut != nil {
				log.Warn("grading non-sRGB capture", "gamut", g.String())
			}
			if withICC, err := reattachICC(encoded, icc); err == nil {
				encoded = withICC
			}
		}
	}

	md = md.Clone()
	md["PixelXDimension"] = Int(graded.Width)
	md["PixelYDimension"] = Int(graded.Height)

	var thumb *PixelBuffer
	if p.opts.Thumbnail {
		thumb = graded
	}
	out, dropped, err := EmbedMetadata(encoded, md, p.exifOptions(thumb))
	if err != nil {
		return Result{Output: encoded, Err: err, LUTApplied: lut != nil}
	}
	return Result{Output: out, Dropped: dropped, LUTApplied: lut != nil}
}

// fallback returns the untransformed capture with err.
func (p *Pipeline) fallback(req Request, md CaptureMetadata, err error) Result {
	src := req.Encoded
	if len(src) == 0 && req.Pixels.validate() == nil {
		if enc, encErr := encodeJPEG(req.Pixels, p.opts.Quality); encErr == nil {
			src = enc
		}
	}
	if isJPEG(src) {
		if out, dropped, embedErr := EmbedMetadata(src, md, p.exifOptions(nil)); embedErr == nil {
			return Result{Output: out, Dropped: dropped, Err: err}
		}
	}
	return Result{Output: src, Err: err}
}

func (p *Pipeline) lookup(id string, log *slog.Logger) *CubeLUT {
	if p.catalog == nil {
		if id != "" && id != LUTNone {
			log.Warn("no catalog, using identity", "lut", id)
		}
		return nil
	}
	lut, err := p.catalog.Lookup(id)
	if err != nil {
		log.Warn("lut unavailable, using identity", "lut", id, "error", err)
		return nil
	}
	return lut
}

// metadata overlays request metadata onto the capture's own EXIF and composes GPS.
func (p *Pipeline) metadata(req Request, log *slog.Logger) CaptureMetadata {
	var base CaptureMetadata
	if isJPEG(req.Encoded) {
		md, err := ReadExif(req.Encoded)
		if err != nil {
			log.Debug("capture has no readable exif", "error", err)
		} else {
			base = md
		}
	}
	md := base.Merge(req.Metadata)
	if _, ok := md["Software"]; !ok && p.opts.Software != "" {
		md["Software"] = String(p.opts.Software)
	}
	return Compose(md, req.GPS)
}

func (p *Pipeline) exifOptions(thumb *PixelBuffer) func(o *ExifOptions) {
	return func(o *ExifOptions) {
		o.Logger = p.opts.Logger
		if thumb != nil {
			o.Thumbnail = thumb.Image()
		}
	}
}

func isJPEG(data []byte) bool {
	return len(data) >= 4 && data[0] == markerStart && data[1] == markerSOI
}
