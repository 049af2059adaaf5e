// Package pipeline runs the distillation stages in order:
// extract, estimate block sizes, chunk, serialize, count document tokens.
// Options are validated when the pipeline is built, so an unsupported
// format fails before any notebook is read.
package pipeline

import (
	"log/slog"

	"github.com/gaurav-prasanna/nbdistill/core"
	"github.com/gaurav-prasanna/nbdistill/core/chunk"
	"github.com/gaurav-prasanna/nbdistill/core/extract"
	"github.com/gaurav-prasanna/nbdistill/core/notebook"
	"github.com/gaurav-prasanna/nbdistill/core/render"
	"github.com/gaurav-prasanna/nbdistill/core/tokens"
)

// Pipeline distills notebooks with a fixed set of options. It holds no
// per-run state and may be reused.
type Pipeline struct {
	opts     core.Options
	counter  tokens.Counter
	renderer core.Renderer
	log      *slog.Logger
}

// New validates opts and builds a pipeline. counter may be nil, in which
// case token estimates use the character heuristic.
func New(opts core.Options, counter tokens.Counter, log *slog.Logger) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r, err := render.ForFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{opts: opts, counter: counter, renderer: r, log: log}, nil
}

// Options returns the validated options.
func (p *Pipeline) Options() core.Options {
	return p.opts
}

// Extension returns the file extension of the pipeline's output format.
func (p *Pipeline) Extension() string {
	return p.renderer.Extension()
}

// Run distills nb into one document, or one per chunk when chunking is on.
func (p *Pipeline) Run(nb *notebook.Notebook) (*core.Result, error) {
	x, err := extract.New(p.opts, p.log).Extract(nb)
	if err != nil {
		return nil, err
	}

	est := tokens.NewEstimator(p.counter, p.log)
	meta := x.Metadata
	if p.opts.EstimateTokenCount {
		est.Resolve(p.opts.Model)
		for i := range x.Blocks {
			x.Blocks[i].Tokens = est.Estimate(x.Blocks[i].Content(), p.opts.Model)
		}
		if p.opts.IncludeMetadata {
			meta.TokenModel = p.opts.Model
			meta.TokenEncoding = est.Encoding()
			meta.ApproximateTokens = est.Approximate()
			meta.Warnings = append(append([]core.Diagnostic(nil), meta.Warnings...), est.Diagnostics()...)
		}
	}

	size := 0
	if p.opts.ChunkSize > 0 {
		size = p.opts.ChunkSize
	}
	chunks := chunk.New(size).Chunk(x.Blocks, p.opts.Unit(), &meta, p.opts.IncludeMetadataInChunks)
	for i := range chunks {
		if chunks[i].Header != nil {
			chunks[i].Title = x.Title
		}
	}
	p.log.Debug("chunked notebook",
		"blocks", len(x.Blocks),
		"chunks", len(chunks),
		"budget", size,
		"unit", p.opts.Unit(),
	)

	res := &core.Result{
		Format:    p.opts.Format,
		Chunked:   size > 0,
		Documents: make([]string, 0, len(chunks)),
		Chunks:    chunks,
		Metadata:  meta,
	}
	for _, c := range chunks {
		doc, err := p.renderer.Render(c)
		if err != nil {
			return nil, err
		}
		res.Documents = append(res.Documents, string(doc))
	}

	if p.opts.EstimateTokenCount {
		if err := p.countDocuments(res, est); err != nil {
			return nil, err
		}
	}
	res.Diagnostics = append(append([]core.Diagnostic(nil), x.Diagnostics...), est.Diagnostics()...)
	return res, nil
}

// countDocuments fills the per-document token counts. PDF documents are
// counted on their Markdown layout, which carries the same text.
func (p *Pipeline) countDocuments(res *core.Result, est *tokens.Estimator) error {
	md := render.NewMarkdownRenderer()
	res.TokenCounts = make([]int, len(res.Documents))
	for i, doc := range res.Documents {
		if p.opts.Format == core.FormatPDF {
			text, err := md.Render(res.Chunks[i])
			if err != nil {
				return err
			}
			doc = string(text)
		}
		res.TokenCounts[i] = est.Estimate(doc, p.opts.Model)
		res.TotalTokens += res.TokenCounts[i]
	}
	p.log.Debug("estimated tokens", "documents", len(res.Documents), "total", res.TotalTokens, "fallback", est.Fallback().String())
	return nil
}
