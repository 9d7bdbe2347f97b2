package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vearutop/filmgrade"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] files...",
	Short: "Grade many photos in submission order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringP("out-dir", "o", "", "Output directory")
	batchCmd.Flags().StringP("lut", "l", filmgrade.LUTNone, "LUT id")
	batchCmd.Flags().IntP("workers", "w", 0, "Photos processed concurrently, default from config or 1")
	batchCmd.Flags().Int("quality", 0, "JPEG quality (1-100), default from config or 100")
	batchCmd.Flags().Bool("thumbnail", false, "Embed EXIF thumbnail")
	batchCmd.MarkFlagRequired("out-dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")
	lutID, _ := cmd.Flags().GetString("lut")
	workers, _ := cmd.Flags().GetInt("workers")

	s, err := newSetup(cmd, qualityFlags(cmd))
	if err != nil {
		return err
	}
	if workers == 0 {
		workers = s.cfg.QueueWorkers
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	failed, skipped := 0, 0
	q := filmgrade.NewQueue(s.pipeline, func(o *filmgrade.QueueOptions) {
		o.Workers = workers
		o.Logger = s.logger
		o.Sink = func(res filmgrade.Result) {
			name := filepath.Join(outDir, outputName(res.ID))
			if len(res.Output) > 0 {
				if err := os.WriteFile(name, res.Output, 0o644); err != nil {
					res.Err = err
				}
			}
			status := "ok"
			if res.Err != nil {
				failed++
				status = res.Err.Error()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %s\n", res.ID, name, status)
		}
	})

	for _, in := range args {
		data, err := os.ReadFile(filepath.Clean(in))
		if err != nil {
			s.logger.Error("skipping input", "file", in, "error", err)
			skipped++
			continue
		}
		if _, err := q.Submit(filmgrade.Request{ID: in, Encoded: data, LUTID: lutID}); err != nil {
			return err
		}
	}
	q.Close()

	if n := failed + skipped; n > 0 {
		return fmt.Errorf("%d of %d photos failed", n, len(args))
	}
	return nil
}

func outputName(in string) string {
	base := filepath.Base(in)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}
