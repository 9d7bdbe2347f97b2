// Package main provides the filmgrade command line tool.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vearutop/filmgrade"
)

var rootCmd = &cobra.Command{
	Use:           "filmgrade",
	Short:         "Apply film look LUTs to photos and write their EXIF",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().String("luts", "", "LUT manifest (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

type setup struct {
	cfg      filmgrade.Config
	catalog  *filmgrade.Catalog
	logger   *slog.Logger
	pipeline *filmgrade.Pipeline
}

// newSetup reads config and manifest flags shared by all commands.
func newSetup(cmd *cobra.Command, opts ...func(o *filmgrade.Options)) (*setup, error) {
	configPath, _ := cmd.Flags().GetString("config")
	manifestPath, _ := cmd.Flags().GetString("luts")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	s := &setup{logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}

	if configPath != "" {
		cfg, err := filmgrade.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		s.cfg = cfg
		if manifestPath == "" && cfg.LUTs != "" {
			manifestPath = cfg.LUTs
			if !filepath.IsAbs(manifestPath) {
				manifestPath = filepath.Join(filepath.Dir(configPath), manifestPath)
			}
		}
	}

	if manifestPath != "" {
		dir, name := filepath.Split(filepath.Clean(manifestPath))
		if dir == "" {
			dir = "."
		}
		fsys := os.DirFS(dir)
		entries, err := filmgrade.LoadManifest(fsys, name)
		if err != nil {
			return nil, err
		}
		s.catalog = filmgrade.NewCatalog(fsys, filmgrade.WithCatalogLogger(s.logger))
		if err := s.catalog.Load(entries); err != nil {
			// Broken presets stay disabled, the rest is usable.
			s.logger.Warn("some luts failed to load", "error", err)
		}
	}

	s.pipeline = filmgrade.New(s.catalog, func(o *filmgrade.Options) {
		o.Logger = s.logger
		s.cfg.Apply(o)
		for _, applyOpt := range opts {
			applyOpt(o)
		}
	})
	return s, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
