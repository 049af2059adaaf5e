// Package notebook holds the in-memory notebook model consumed by the
// distillation pipeline, and a reader for .ipynb JSON documents.
//
// Cells and outputs are closed variants: the sealed Cell and Output
// interfaces are only implemented by the types in this package, so a type
// switch over them is exhaustive.
package notebook

// Notebook is an ordered sequence of cells plus top-level metadata.
// The pipeline never mutates it.
type Notebook struct {
	Source        string // path or URL the notebook was read from, if known
	Metadata      Metadata
	Cells         []Cell
	NBFormat      int
	NBFormatMinor int
}

// Metadata is the notebook-level metadata the pipeline understands.
type Metadata struct {
	Title             string
	KernelName        string
	KernelDisplayName string
	Language          string
	LanguageVersion   string
	Authors           []string
	Created           string
	LastModified      string
	Tags              []string
}

// CellMetadata is the cell-level metadata that survives into blocks.
type CellMetadata struct {
	Tags []string
}

// Cell is one of *MarkdownCell, *CodeCell, *RawCell or *InvalidCell.
type Cell interface {
	// Position returns the cell's index in the notebook.
	Position() int
	sealedCell()
}

// MarkdownCell is a prose cell.
type MarkdownCell struct {
	Index    int
	Source   string
	Metadata CellMetadata
}

// CodeCell is an executable cell with its outputs in execution order.
type CodeCell struct {
	Index          int
	Source         string
	ExecutionCount *int
	Outputs        []Output
	Metadata       CellMetadata
}

// RawCell is passthrough content whose encoding is kernel-defined.
type RawCell struct {
	Index    int
	Source   string
	Format   string // raw_mimetype, if any
	Metadata CellMetadata
}

// InvalidCell stands in for a cell the reader could not classify, so the
// extractor can skip it with a warning instead of failing the notebook.
type InvalidCell struct {
	Index  int
	Type   string
	Reason string
}

func (c *MarkdownCell) Position() int { return c.Index }
func (c *CodeCell) Position() int     { return c.Index }
func (c *RawCell) Position() int      { return c.Index }
func (c *InvalidCell) Position() int  { return c.Index }

func (*MarkdownCell) sealedCell() {}
func (*CodeCell) sealedCell()     {}
func (*RawCell) sealedCell()      {}
func (*InvalidCell) sealedCell()  {}

// Output is one of *StreamOutput, *DisplayData, *ErrorOutput or *InvalidOutput.
type Output interface {
	sealedOutput()
}

// StreamOutput is text written to stdout or stderr.
type StreamOutput struct {
	Name string // "stdout" or "stderr"
	Text string
}

// DisplayData maps MIME types to payloads. Binary payloads stay base64
// text; the pipeline never decodes them.
type DisplayData struct {
	Data           map[string]string
	ExecutionCount *int
	IsResult       bool // execute_result rather than display_data
}

// ErrorOutput is a raised exception.
type ErrorOutput struct {
	Name      string
	Value     string
	Traceback []string
}

// InvalidOutput stands in for an output of unknown or malformed type.
type InvalidOutput struct {
	Type   string
	Reason string
}

func (*StreamOutput) sealedOutput()  {}
func (*DisplayData) sealedOutput()   {}
func (*ErrorOutput) sealedOutput()   {}
func (*InvalidOutput) sealedOutput() {}

// Has reports whether the display data carries the MIME type.
func (d *DisplayData) Has(mime string) bool {
	_, ok := d.Data[mime]
	return ok
}
