package filmgrade

import (
	"bytes"
	"sort"
)

// Gamut is the RGB primaries family of an embedded ICC profile.
type Gamut int

// Gamut values, detected heuristically from profile descriptions.
const (
	GamutSRGB Gamut = iota
	GamutDisplayP3
	GamutAdobeRGB
)

func (g Gamut) String() string {
	switch g {
	case GamutDisplayP3:
		return "display-p3"
	case GamutAdobeRGB:
		return "adobe-rgb"
	default:
		return "srgb"
	}
}

// detectGamut looks for well-known profile names, an empty profile means sRGB.
func detectGamut(profile []byte) Gamut {
	if len(profile) == 0 {
		return GamutSRGB
	}
	lower := bytes.ToLower(profile)
	// Simple heuristic: enough for common camera/jpeg workflows.
	if bytes.Contains(lower, []byte("display p3")) || bytes.Contains(lower, []byte("dci-p3")) {
		return GamutDisplayP3
	}
	if bytes.Contains(lower, []byte("adobe rgb")) || bytes.Contains(lower, []byte("adobergb")) {
		return GamutAdobeRGB
	}
	return GamutSRGB
}

// collectICCProfile joins ICC APP2 chunks into the profile.
func collectICCProfile(icc [][]byte) []byte {
	type chunk struct {
		seq  int
		data []byte
	}
	chunks := make([]chunk, 0, len(icc))
	for _, p := range icc {
		// ICC APP2 payload: "ICC_PROFILE\0" + seq + total + profile bytes.
		if len(p) > len(iccSig)+2 && bytes.HasPrefix(p, iccSig) {
			chunks = append(chunks, chunk{seq: int(p[len(iccSig)]), data: p[len(iccSig)+2:]})
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	total := 0
	for _, c := range chunks {
		total += len(c.data)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c.data...)
	}
	return out
}

// DetectGamut returns the gamut of the ICC profile embedded in a JPEG, sRGB when there is none.
func DetectGamut(jpegData []byte) (Gamut, error) {
	_, icc, err := extractExifAndIcc(jpegData)
	if err != nil {
		return GamutSRGB, err
	}
	return detectGamut(collectICCProfile(icc)), nil
}
