package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available LUT presets",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	for _, l := range s.pipeline.ListAvailableLUTs() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", l.ID, l.DisplayName)
	}
	return nil
}
