// Package cmd wires up the CLI.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "image-auditor",
	Short: "Detect duplicate and near-duplicate images and consolidate a dataset",
	Long: `image-auditor scans a directory tree of collected files, finds exact
duplicates by content digest and visually similar images by perceptual
hash, and writes an audit directory with three views:

  exact_duplicates/    one directory per group of byte-identical files
  similar_files/       one directory per group of visually similar images
  consolidated_files/  one sequentially named copy per distinct file,
                       plus traceability indexes`,
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
