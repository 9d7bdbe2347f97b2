package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vearutop/filmgrade"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Grade one photo and embed capture metadata",
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringP("input", "i", "", "Input image (JPEG, PNG, TIFF, WebP)")
	processCmd.Flags().StringP("output", "o", "", "Output JPEG file")
	processCmd.Flags().StringP("lut", "l", filmgrade.LUTNone, "LUT id")
	processCmd.Flags().String("meta", "", "JSON file with camera metadata")
	processCmd.Flags().Float64("lat", 0, "GPS latitude, signed degrees")
	processCmd.Flags().Float64("lon", 0, "GPS longitude, signed degrees")
	processCmd.Flags().Float64("alt", 0, "GPS altitude, meters")
	processCmd.Flags().Int("quality", 0, "JPEG quality (1-100), default from config or 100")
	processCmd.Flags().Bool("thumbnail", false, "Embed EXIF thumbnail")
	processCmd.MarkFlagRequired("input")
	processCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	lutID, _ := cmd.Flags().GetString("lut")
	metaPath, _ := cmd.Flags().GetString("meta")

	s, err := newSetup(cmd, qualityFlags(cmd))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Clean(inputPath))
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	req := filmgrade.Request{ID: filepath.Base(inputPath), Encoded: data, LUTID: lutID}
	if metaPath != "" {
		if req.Metadata, err = readMetadata(metaPath); err != nil {
			return err
		}
	}
	req.GPS = gpsFlags(cmd)

	res := s.pipeline.Process(req)
	if len(res.Output) > 0 {
		if err := os.WriteFile(filepath.Clean(outputPath), res.Output, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	for _, d := range res.Dropped {
		fmt.Fprintln(cmd.ErrOrStderr(), "dropped:", d)
	}
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: lut=%s applied=%t bytes=%d\n", outputPath, lutID, res.LUTApplied, len(res.Output))
	return nil
}

func readMetadata(path string) (filmgrade.CaptureMetadata, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return filmgrade.ParseMetadataJSON(b)
}

// gpsFlags builds a fix from --lat/--lon/--alt, nil unless both coordinates are set.
func gpsFlags(cmd *cobra.Command) *filmgrade.GPSFix {
	f := cmd.Flags()
	if !f.Changed("lat") || !f.Changed("lon") {
		return nil
	}
	lat, _ := f.GetFloat64("lat")
	lon, _ := f.GetFloat64("lon")
	fix := &filmgrade.GPSFix{Latitude: lat, Longitude: lon, Time: time.Now()}
	if f.Changed("alt") {
		alt, _ := f.GetFloat64("alt")
		fix.Altitude = &alt
	}
	return fix
}

func qualityFlags(cmd *cobra.Command) func(o *filmgrade.Options) {
	return func(o *filmgrade.Options) {
		f := cmd.Flags()
		if f.Changed("quality") {
			o.Quality, _ = f.GetInt("quality")
		}
		if f.Changed("thumbnail") {
			o.Thumbnail, _ = f.GetBool("thumbnail")
		}
	}
}
