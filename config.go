package filmgrade

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

luts: luts.yaml
quality: 100
workers: 4
queueworkers: 1
colorspace: encoded
interpolation: trilinear
thumbnail: true
software: Komorebi

*/

// Manifest lists the bundled presets.
//
//	luts:
//	  - id: portra
//	    name: Portra 400
//	    file: portra400.cube
type Manifest struct {
	LUTs []LUTCatalogEntry `yaml:"luts"`
}

// LoadManifest reads a YAML preset manifest from fsys.
func LoadManifest(fsys fs.FS, name string) ([]LUTCatalogEntry, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", name, err)
	}
	return m.LUTs, nil
}

// Config is the file-backed configuration of the command line tool.
type Config struct {
	LUTs          string `yaml:"luts"` // manifest path, relative to the config file
	Quality       int    `yaml:"quality"`
	Workers       int    `yaml:"workers"`
	QueueWorkers  int    `yaml:"queueworkers"`
	ColorSpace    string `yaml:"colorspace"`
	Interpolation string `yaml:"interpolation"`
	Thumbnail     *bool  `yaml:"thumbnail"`
	Software      string `yaml:"software"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(filename string) (Config, error) {
	var c Config
	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("config read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("config parse %s: %w", filename, err)
	}
	return c, c.Validate()
}

// Validate does sanity checks.
func (c Config) Validate() error {
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range [0, 100]", c.Quality)
	}
	if c.Workers < 0 || c.QueueWorkers < 0 {
		return fmt.Errorf("negative worker count")
	}
	if _, err := ParseColorSpace(c.ColorSpace); err != nil {
		return err
	}
	if _, err := ParseInterpolation(c.Interpolation); err != nil {
		return err
	}
	return nil
}

// Apply copies configured values into pipeline options, leaving zero values untouched.
func (c Config) Apply(o *Options) {
	if c.Quality > 0 {
		o.Quality = c.Quality
	}
	if c.Workers > 0 {
		o.Workers = c.Workers
	}
	if s, err := ParseColorSpace(c.ColorSpace); err == nil {
		o.Space = s
	}
	if i, err := ParseInterpolation(c.Interpolation); err == nil {
		o.Interpolation = i
	}
	if c.Thumbnail != nil {
		o.Thumbnail = *c.Thumbnail
	}
	if c.Software != "" {
		o.Software = c.Software
	}
}

// ParseColorSpace accepts "encoded" (default, also empty) or "linear".
func ParseColorSpace(s string) (ColorSpace, error) {
	switch strings.ToLower(s) {
	case "", "encoded", "srgb":
		return SpaceEncoded, nil
	case "linear":
		return SpaceLinear, nil
	default:
		return SpaceEncoded, fmt.Errorf("unknown color space %q", s)
	}
}

// ParseInterpolation accepts "trilinear" (default, also empty) or "tetrahedral".
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(s) {
	case "", "trilinear":
		return InterpolationTrilinear, nil
	case "tetrahedral":
		return InterpolationTetrahedral, nil
	default:
		return InterpolationTrilinear, fmt.Errorf("unknown interpolation %q", s)
	}
}
