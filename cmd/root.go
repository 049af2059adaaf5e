// Package cmd implements the CLI commands for nbdistill using Cobra.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the nbdistill command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nbdistill",
		Short: "nbdistill — distill Jupyter notebooks into LLM-ready documents",
		Long: `nbdistill is a deterministic pipeline that converts Jupyter notebooks
into Markdown, JSON, plain text, or PDF, optionally split into size-bounded
chunks with token estimates.

Usage:
  nbdistill convert <notebook> [flags]`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default: ./.nbdistill.yaml or ~/.config/nbdistill/config.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log pipeline progress at debug level")

	root.AddCommand(newConvertCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes text logs to w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
