package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spidermesh/frontier/internal/inspect"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <job-dir>...",
		Short: "Summarize the pending state of job directories",
		Long: `Inspect reads job directories without opening them for crawling and
reports their queue strategy, pending requests, and duplicate-filter
state.

Inspection is read-only: it is safe against the job directory of a
paused crawl.

Examples:
  # Inspect one job directory
  frontier inspect ./job

  # Inspect a whole fleet, four directories at a time
  frontier inspect --concurrency 4 jobs/*

  # Markdown report for a crawl run log
  frontier inspect --markdown --output report.md ./job`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspectCmd,
	}

	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report instead of plain text")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.Flags().IntP("concurrency", "n", 4,
		"Number of job directories inspected concurrently")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	summaries, err := inspect.InspectAll(cmd.Context(), args, concurrency)
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOutput()

	markdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if markdown {
		return inspect.NewMarkdownWriter(output).Write(summaries)
	}
	return inspect.NewTextWriter(output).Write(summaries)
}

// openOutput resolves the report destination: the --output file when
// given, standard output otherwise.
func openOutput(cmd *cobra.Command) (output io.Writer, closeOutput func(), err error) {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
