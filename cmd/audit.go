package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/luinbytes/image-auditor/audit"
	"github.com/luinbytes/image-auditor/config"
	"github.com/luinbytes/image-auditor/logging"
)

var auditCmd = &cobra.Command{
	Use:   "audit <source-dir>",
	Short: "Find duplicates under a directory and build the consolidated dataset",
	Long: `Walks the source directory, groups byte-identical files by SHA-256
digest and visually similar images by perceptual hash, and copies one
canonical file per distinct digest into the consolidated directory under
sequential names. Every copy is traceable back to its originals through
the generated index files.

Running twice into the same output directory appends to the existing
index files; it never erases a previous run's audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringP("output", "o", config.DefaultOutputDir, "base directory for audit output")
	auditCmd.Flags().IntP("threshold", "t", config.DefaultThreshold, "similarity threshold (max Hamming distance, 0-64)")
	auditCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")
	auditCmd.Flags().String("log-file", "", "also write logs to this file")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the config file only when explicitly set.
	if cmd.Flags().Changed("output") {
		cfg.Audit.OutputDir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Audit.Threshold, _ = cmd.Flags().GetInt("threshold")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Logging.File, _ = cmd.Flags().GetString("log-file")
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}

	sourceDir := args[0]
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a valid directory", sourceDir)
	}

	organizer := audit.New(afero.NewOsFs(), cfg.Audit.Threshold)
	result, err := organizer.Run(sourceDir, cfg.Audit.OutputDir)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(result, cfg.Audit.OutputDir))
	return nil
}

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7D56F4"))
	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575"))
)

// renderSummary formats the run report for the terminal.
func renderSummary(result *audit.Result, outputDir string) string {
	s := summaryTitleStyle.Render("Audit complete") + "\n"
	s += fmt.Sprintf("  %s %d\n", summaryLabelStyle.Render("Files scanned:"), result.FilesScanned)
	s += fmt.Sprintf("  %s %d\n", summaryLabelStyle.Render("Exact duplicate groups:"), result.ExactGroups)
	s += fmt.Sprintf("  %s %d\n", summaryLabelStyle.Render("Similar image groups:"), result.SimilarGroups)
	s += fmt.Sprintf("  %s %d\n", summaryLabelStyle.Render("Unique files consolidated:"), result.UniqueFiles)

	if len(result.MediaTypes) > 0 {
		s += "  " + summaryLabelStyle.Render("Files by type:") + "\n"
		types := make([]string, 0, len(result.MediaTypes))
		for mediaType := range result.MediaTypes {
			types = append(types, mediaType)
		}
		sort.Strings(types)
		for _, mediaType := range types {
			s += fmt.Sprintf("    %-24s %d\n", mediaType, result.MediaTypes[mediaType])
		}
	}

	s += fmt.Sprintf("  %s %s\n", summaryLabelStyle.Render("Output:"), outputDir)
	return s
}
