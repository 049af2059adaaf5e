// Package core defines the pipeline types and interfaces for nbdistill.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Role is the kind of content a Block carries.
type Role string

const (
	RoleMarkdown Role = "markdown"
	RoleCode     Role = "code"
	RoleOutput   Role = "output"
)

// OutputKind refines an output Block so serializers can label it.
type OutputKind string

const (
	KindStream   OutputKind = "stream"
	KindStderr   OutputKind = "stderr"
	KindResult   OutputKind = "result"
	KindHTML     OutputKind = "html"
	KindMarkdown OutputKind = "markdown"
	KindLatex    OutputKind = "latex"
	KindJSON     OutputKind = "json"
	KindImage    OutputKind = "image"
	KindWidget   OutputKind = "widget"
	KindError    OutputKind = "error"
)

// Unit is the measure used for block sizes and chunk budgets.
type Unit string

const (
	UnitChars  Unit = "chars"
	UnitTokens Unit = "tokens"
)

// TruncationMarker is appended to any output cut at MaxOutputLength.
const TruncationMarker = "... [truncated]"

// Table is a structured HTML table lifted out of a cell or output.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Lines renders the header and each row as one line, cells separated by " | ".
func (t Table) Lines() []string {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, strings.Join(t.Header, " | "))
	for _, row := range t.Rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return lines
}

// Block is one unit of rendered content: a cell, or one output of a code cell.
type Block struct {
	Role           Role       `json:"role"`
	Kind           OutputKind `json:"kind,omitempty"`
	Text           string     `json:"text"`
	CellIndex      int        `json:"cell_index"`
	ExecutionCount *int       `json:"execution_count,omitempty"`
	Language       string     `json:"-"`
	Tags           []string   `json:"tags,omitempty"`
	Tables         []Table    `json:"tables,omitempty"`
	Chars          int        `json:"-"`
	Tokens         int        `json:"-"`
}

// NewBlock builds a Block and records its character size.
func NewBlock(role Role, text string, cellIndex int) Block {
	return Block{
		Role:      role,
		Text:      text,
		CellIndex: cellIndex,
		Chars:     utf8.RuneCountInString(text),
	}
}

// WithTables attaches structured tables and recounts Chars over Content.
func (b Block) WithTables(tables []Table) Block {
	b.Tables = tables
	b.Chars = utf8.RuneCountInString(b.Content())
	return b
}

// Content is everything the block contributes to a document: its text,
// then one line per table row.
func (b Block) Content() string {
	if len(b.Tables) == 0 {
		return b.Text
	}
	var sb strings.Builder
	sb.WriteString(b.Text)
	for _, t := range b.Tables {
		for _, line := range t.Lines() {
			sb.WriteString("\n")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// Size returns the block size in the given unit.
func (b Block) Size(unit Unit) int {
	if unit == UnitTokens {
		return b.Tokens
	}
	return b.Chars
}

// Chunk is a contiguous run of Blocks serialized as one document.
type Chunk struct {
	Index  int       // 1-based
	Total  int       // number of chunks in the sequence
	Blocks []Block   // never reordered
	Header *Metadata // nil when the header is not repeated on this chunk
	Title  string    // notebook title, set wherever Header is
	Size   int       // cumulative block size in Unit
	Unit   Unit
}

// Extraction pairs the extracted blocks with the aggregated metadata and
// the non-fatal diagnostics collected along the way.
type Extraction struct {
	Title       string // resolved even when metadata is excluded
	Blocks      []Block
	Metadata    Metadata
	Diagnostics []Diagnostic
}

// Result is the terminal artifact of a pipeline run.
type Result struct {
	Format      Format
	Chunked     bool
	Documents   []string
	Chunks      []Chunk
	Metadata    Metadata
	TokenCounts []int
	TotalTokens int
	Diagnostics []Diagnostic
}

// FetchResult holds the raw bytes of a notebook loaded from a path or URL.
type FetchResult struct {
	Source     string
	StatusCode int
	Data       []byte
}

// Fetcher retrieves raw notebook bytes from a path or URL.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*FetchResult, error)
}

// Normalizer rewrites embedded markup into the target format's native syntax.
type Normalizer interface {
	Normalize(text string) string
	NormalizeTables(text string) (string, []Table)
}

// Renderer converts a Chunk into a final output format.
type Renderer interface {
	Render(chunk Chunk) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".json").
	Extension() string
}
