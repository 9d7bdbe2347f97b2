package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vearutop/filmgrade"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.jpg>",
	Short: "Show JPEG properties and capture metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "Print all readable EXIF fields as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	path := args[0]
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	out := cmd.OutOrStdout()

	if asJSON {
		md, err := filmgrade.ReadExif(data)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	}

	info, err := filmgrade.InspectJPEG(data)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	fmt.Fprintf(out, "size:        %dx%d\n", info.Width, info.Height)
	fmt.Fprintf(out, "components:  %d\n", info.Components)
	fmt.Fprintf(out, "progressive: %t\n", info.Progressive)
	fmt.Fprintf(out, "quality:     ~%d\n", info.Quality)
	fmt.Fprintf(out, "gamut:       %s\n", info.Gamut)
	fmt.Fprintf(out, "exif:        %t\n", info.HasExif)
	if !info.HasExif {
		return nil
	}

	summary, err := filmgrade.ReadSummary(data)
	if err != nil {
		return err
	}
	for _, f := range summary.Fields() {
		fmt.Fprintf(out, "%-12s %s\n", f[0]+":", f[1])
	}
	return nil
}
