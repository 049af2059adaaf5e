package core

// Metadata is the aggregated notebook metadata plus cell statistics.
// The zero value is the "empty" metadata produced when metadata is disabled.
type Metadata struct {
	Title             string   `json:"title,omitempty"`
	Kernel            string   `json:"kernel,omitempty"`
	KernelDisplayName string   `json:"kernel_display_name,omitempty"`
	Language          string   `json:"language,omitempty"`
	LanguageVersion   string   `json:"language_version,omitempty"`
	Authors           []string `json:"authors,omitempty"`
	Created           string   `json:"created,omitempty"`
	LastModified      string   `json:"last_modified,omitempty"`
	Tags              []string `json:"tags,omitempty"`

	Stats *Stats `json:"stats,omitempty"`

	TokenModel        string `json:"token_model,omitempty"`
	TokenEncoding     string `json:"token_encoding,omitempty"`
	ApproximateTokens bool   `json:"approximate_tokens,omitempty"`

	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// Stats holds cell and block counts for a notebook.
type Stats struct {
	TotalCells          int `json:"total_cells"`
	MarkdownCells       int `json:"markdown_cells"`
	CodeCells           int `json:"code_cells"`
	RawCells            int `json:"raw_cells"`
	SkippedCells        int `json:"skipped_cells,omitempty"`
	CodeCellsWithOutput int `json:"code_cells_with_output"`

	MarkdownBlocks int `json:"markdown_blocks"`
	CodeBlocks     int `json:"code_blocks"`
	OutputBlocks   int `json:"output_blocks"`

	// Execution count range over code cells; nil when no cell was executed.
	MinExecutionCount *int `json:"min_execution_count,omitempty"`
	MaxExecutionCount *int `json:"max_execution_count,omitempty"`
}

// IsEmpty reports whether m carries nothing worth rendering as a header.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.Kernel == "" && m.KernelDisplayName == "" &&
		m.Language == "" && m.LanguageVersion == "" && len(m.Authors) == 0 &&
		m.Created == "" && m.LastModified == "" && len(m.Tags) == 0 &&
		m.Stats == nil && m.TokenEncoding == "" && len(m.Warnings) == 0
}
