// Package extract implements the content extractor.
// It walks a notebook's cells in document order and produces:
//  1. One block per markdown or raw cell, and per included code cell
//  2. One output block per retained output, right after its code block
//  3. Aggregated notebook metadata and cell statistics
//
// Malformed cells and outputs are skipped with a CELL diagnostic; only a
// missing notebook is fatal.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
	"github.com/gaurav-prasanna/nbdistill/core/normalize"
	"github.com/gaurav-prasanna/nbdistill/core/notebook"
)

// Extractor turns a notebook into an ordered block sequence.
type Extractor struct {
	opts core.Options
	norm core.Normalizer
	log  *slog.Logger
}

// New creates an Extractor whose normalizer targets opts.Format.
func New(opts core.Options, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Extractor{
		opts: opts,
		norm: normalize.New(opts.Format),
		log:  log,
	}
}

// run accumulates the state of one extraction.
type run struct {
	blocks      []core.Block
	diagnostics []core.Diagnostic
	stats       core.Stats
}

func (r *run) skip(cellIndex int, format string, args ...any) {
	r.diagnostics = append(r.diagnostics, core.Diagnostic{
		Code:      core.ErrCell,
		CellIndex: cellIndex,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Extract walks nb and returns its blocks, title, metadata and diagnostics.
// The notebook is not modified.
func (e *Extractor) Extract(nb *notebook.Notebook) (*core.Extraction, error) {
	if nb == nil {
		return nil, core.NewInputError("no notebook to extract", nil)
	}

	r := &run{}
	r.stats.TotalCells = len(nb.Cells)
	for _, cell := range nb.Cells {
		e.extractCell(r, cell, nb.Metadata.Language)
	}

	for _, b := range r.blocks {
		switch b.Role {
		case core.RoleMarkdown:
			r.stats.MarkdownBlocks++
		case core.RoleCode:
			r.stats.CodeBlocks++
		case core.RoleOutput:
			r.stats.OutputBlocks++
		}
	}

	for _, d := range r.diagnostics {
		e.log.Warn("skipped notebook content", "cell", d.CellIndex, "reason", d.Message)
	}
	e.log.Debug("extracted notebook",
		"source", nb.Source,
		"cells", r.stats.TotalCells,
		"blocks", len(r.blocks),
		"skipped", len(r.diagnostics),
	)

	x := &core.Extraction{
		Title:       resolveTitle(nb),
		Blocks:      r.blocks,
		Diagnostics: r.diagnostics,
	}
	if e.opts.IncludeMetadata {
		x.Metadata = buildMetadata(nb, r.stats)
		x.Metadata.Warnings = r.diagnostics
	}
	return x, nil
}

func (e *Extractor) extractCell(r *run, cell notebook.Cell, language string) {
	switch c := cell.(type) {
	case *notebook.MarkdownCell:
		r.stats.MarkdownCells++
		text, tables := e.norm.NormalizeTables(c.Source)
		block := e.withTables(core.NewBlock(core.RoleMarkdown, trimBlock(text), c.Index), tables)
		block.Tags = c.Metadata.Tags
		r.blocks = append(r.blocks, block)

	case *notebook.CodeCell:
		r.stats.CodeCells++
		if len(c.Outputs) > 0 {
			r.stats.CodeCellsWithOutput++
		}
		if c.ExecutionCount != nil {
			r.stats.MinExecutionCount = minCount(r.stats.MinExecutionCount, *c.ExecutionCount)
			r.stats.MaxExecutionCount = maxCount(r.stats.MaxExecutionCount, *c.ExecutionCount)
		}

		if e.opts.IncludeCode {
			block := core.NewBlock(core.RoleCode, strings.TrimRight(c.Source, "\n"), c.Index)
			block.ExecutionCount = c.ExecutionCount
			block.Language = language
			block.Tags = c.Metadata.Tags
			r.blocks = append(r.blocks, block)
		}
		if e.opts.IncludeOutputs {
			for i, out := range c.Outputs {
				block, ok := e.renderOutput(r, c.Index, i, out)
				if ok {
					r.blocks = append(r.blocks, block)
				}
			}
		}

	case *notebook.RawCell:
		r.stats.RawCells++
		block := core.NewBlock(core.RoleMarkdown, c.Source, c.Index)
		block.Tags = c.Metadata.Tags
		r.blocks = append(r.blocks, block)

	case *notebook.InvalidCell:
		r.stats.SkippedCells++
		if c.Type != "" {
			r.skip(c.Index, "skipped %s cell: %s", c.Type, c.Reason)
		} else {
			r.skip(c.Index, "skipped cell: %s", c.Reason)
		}
	}
}

// withTables attaches structured tables for the JSON target. Other targets
// already carry their tables rendered inline in the text.
func (e *Extractor) withTables(b core.Block, tables []core.Table) core.Block {
	if e.opts.Format != core.FormatJSON || len(tables) == 0 {
		return b
	}
	return b.WithTables(tables)
}

// trimBlock drops blank lines around s and trailing whitespace, keeping
// the indentation of the first line. Aligned text tables start with
// padding when their corner cell is empty.
func trimBlock(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	lead := len(s) - len(strings.TrimLeft(s, " \t\r\n"))
	if i := strings.LastIndexByte(s[:lead], '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func minCount(cur *int, n int) *int {
	if cur == nil || n < *cur {
		return &n
	}
	return cur
}

func maxCount(cur *int, n int) *int {
	if cur == nil || n > *cur {
		return &n
	}
	return cur
}
