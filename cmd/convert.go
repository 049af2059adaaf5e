// Package cmd: convert command.
// This is the main command that orchestrates the pipeline:
// fetch → parse → extract → chunk → render → write.
//
// It handles config loading, token counter setup, and the single / --all modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/nbdistill/core"
	"github.com/gaurav-prasanna/nbdistill/core/config"
	"github.com/gaurav-prasanna/nbdistill/core/fetch"
	"github.com/gaurav-prasanna/nbdistill/core/notebook"
	"github.com/gaurav-prasanna/nbdistill/core/output"
	"github.com/gaurav-prasanna/nbdistill/core/pipeline"
	"github.com/gaurav-prasanna/nbdistill/core/tokens"
	"github.com/gaurav-prasanna/nbdistill/crawl"
)

// stdoutPath as --output writes the documents to standard output.
const stdoutPath = "-"

// encodingCacheSize bounds the tiktoken encodings kept in memory.
const encodingCacheSize = 8

type convertFlags struct {
	output    string
	outputDir string
	all       bool
}

// convertRun carries what one invocation needs across notebooks.
type convertRun struct {
	pipeline *pipeline.Pipeline
	fetcher  core.Fetcher
	log      *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	estimate bool
}

func newConvertCmd() *cobra.Command {
	var flags convertFlags
	cmd := &cobra.Command{
		Use:   "convert <notebook>",
		Short: "Convert a notebook to the configured output format",
		Long: `Convert reads a notebook from a path or URL, flattens its cells and outputs
into ordered blocks, optionally chunks them, and serializes each chunk.

Examples:
  nbdistill convert analysis.ipynb
  nbdistill convert analysis.ipynb -o analysis.json
  nbdistill convert analysis.ipynb --chunk-size 4000 --estimate-tokens --model gpt-4o
  nbdistill convert https://example.com/nbs/demo.ipynb -o - --format text
  nbdistill convert ./notebooks --all --output-dir ./distilled`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], flags)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", `Output file ("-" for stdout); its extension picks the format when --format is not set`)
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Output directory (default: current directory)")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Convert every notebook found under a directory or linked from an index page")
	return cmd
}

func runConvert(cmd *cobra.Command, source string, flags convertFlags) error {
	if flags.all && flags.output != "" {
		return fmt.Errorf("--output cannot be combined with --all; use --output-dir")
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	configFile, _ := cmd.Flags().GetString("config")
	log := newLogger(cmd.ErrOrStderr(), verbose)

	cfg, err := config.NewLoader().Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.File != "" {
		log.Debug("loaded config", "file", cfg.File)
	}

	var counter tokens.Counter
	if cfg.Options.EstimateTokenCount {
		tk, err := tokens.NewTiktoken(encodingCacheSize)
		if err != nil {
			log.Warn("tokenizer unavailable, using heuristic estimates", "error", err)
		} else {
			defer tk.Close()
			counter = tk
		}
	}

	p, err := pipeline.New(cfg.Options, counter, log)
	if err != nil {
		return err
	}

	r := &convertRun{
		pipeline: p,
		fetcher:  fetch.New(),
		log:      log,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		estimate: cfg.Options.EstimateTokenCount,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if flags.all {
		writer, err := output.New(flags.outputDir)
		if err != nil {
			return fmt.Errorf("initializing output writer: %w", err)
		}
		return r.runAll(ctx, source, writer)
	}
	return r.runOne(ctx, source, flags)
}

// runOne processes a single notebook through the pipeline.
func (r *convertRun) runOne(ctx context.Context, source string, flags convertFlags) error {
	res, err := r.process(ctx, source)
	if err != nil {
		return err
	}
	r.reportTokens(source, res)

	if flags.output == stdoutPath {
		return output.WriteStream(r.stdout, res.Documents)
	}

	writer, err := output.New(flags.outputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	path := flags.output
	if path == "" {
		path = writer.DefaultPath(source, r.pipeline.Extension())
	}
	paths, err := writer.Write(path, res.Documents)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(r.stdout, "✓ Written: %s\n", p)
	}
	return nil
}

// runAll discovers every notebook under root and processes each. A
// notebook that fails is reported and counted; the batch continues.
func (r *convertRun) runAll(ctx context.Context, root string, writer *output.Writer) error {
	r.log.Info("discovering notebooks", "root", root)

	sources, err := crawl.Discover(ctx, root, r.fetcher)
	if err != nil {
		return fmt.Errorf("discovering notebooks: %w", err)
	}
	if len(sources) == 0 {
		return core.NewInputError("no notebooks found under "+root, nil)
	}
	r.log.Info("found notebooks", "count", len(sources))

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetDescription("Distilling notebooks"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(r.stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.stderr)
		}),
	)

	var failed []string
	for _, source := range sources {
		if err := r.convertOne(ctx, root, source, writer); err != nil {
			r.log.Error("conversion failed", "source", source, "error", err)
			failed = append(failed, source)
		}
		_ = bar.Add(1)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d/%d notebooks failed", len(failed), len(sources))
	}
	return nil
}

func (r *convertRun) convertOne(ctx context.Context, root, source string, writer *output.Writer) error {
	res, err := r.process(ctx, source)
	if err != nil {
		return err
	}
	r.reportTokens(source, res)

	path, err := writer.MirrorPath(root, source, r.pipeline.Extension())
	if err != nil {
		return err
	}
	paths, err := writer.Write(path, res.Documents)
	if err != nil {
		return err
	}
	r.log.Debug("written", "source", source, "files", len(paths))
	return nil
}

// process runs a single notebook through the full pipeline.
func (r *convertRun) process(ctx context.Context, source string) (*core.Result, error) {
	// 1. Fetch
	fetched, err := r.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	// 2. Parse
	nb, err := notebook.Parse(fetched.Data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	nb.Source = source

	// 3. Extract, chunk, render
	res, err := r.pipeline.Run(nb)
	if err != nil {
		return nil, fmt.Errorf("distill %s: %w", source, err)
	}

	for _, d := range res.Diagnostics {
		r.log.Warn(d.Message, "code", d.Code, "cell", d.CellIndex, "source", source)
	}
	return res, nil
}

// reportTokens prints per-document token counts to stderr when estimating.
func (r *convertRun) reportTokens(source string, res *core.Result) {
	if !r.estimate {
		return
	}
	approx := ""
	for _, d := range res.Diagnostics {
		if d.Code == core.ErrEstimation {
			approx = " (approximate)"
			break
		}
	}
	if len(res.TokenCounts) > 1 {
		for i, n := range res.TokenCounts {
			fmt.Fprintf(r.stderr, "  chunk %d/%d: %d tokens\n", i+1, len(res.TokenCounts), n)
		}
	}
	fmt.Fprintf(r.stderr, "%s: %d tokens%s\n", source, res.TotalTokens, approx)
}
