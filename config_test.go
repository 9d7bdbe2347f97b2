package filmgrade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "filmgrade.yaml")
	if err := os.WriteFile(fn, []byte(`luts: luts.yaml
quality: 92
workers: 4
queueworkers: 2
colorspace: linear
interpolation: tetrahedral
thumbnail: true
software: Komorebi
`), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(fn)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.LUTs != "luts.yaml" || c.QueueWorkers != 2 {
		t.Fatalf("unexpected config %+v", c)
	}

	o := Options{Quality: defaultQuality}
	c.Apply(&o)
	want := Options{
		Quality:       92,
		Space:         SpaceLinear,
		Interpolation: InterpolationTetrahedral,
		Workers:       4,
		Thumbnail:     true,
		Software:      "Komorebi",
	}
	if diff := cmp.Diff(want, o, cmpopts.IgnoreFields(Options{}, "Logger")); diff != "" {
		t.Fatalf("unexpected options (-want +got):\n%s", diff)
	}

	// Zero values keep defaults.
	o = Options{Quality: defaultQuality, Thumbnail: true}
	Config{}.Apply(&o)
	if o.Quality != defaultQuality || !o.Thumbnail || o.Space != SpaceEncoded {
		t.Fatalf("empty config changed options %+v", o)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    Config
		ok   bool
	}{
		{name: "empty", ok: true},
		{name: "srgb alias", c: Config{ColorSpace: "sRGB", Interpolation: "Trilinear"}, ok: true},
		{name: "quality", c: Config{Quality: 101}},
		{name: "workers", c: Config{Workers: -1}},
		{name: "queue workers", c: Config{QueueWorkers: -2}},
		{name: "color space", c: Config{ColorSpace: "rec709"}},
		{name: "interpolation", c: Config{Interpolation: "cubic"}},
	} {
		err := tc.c.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: unexpected result %v", tc.name, err)
		}
	}
}
