package notebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// multiline decodes nbformat's "string or list of strings" text fields.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*m = multiline(strings.Join(parts, ""))
	return nil
}

type rawNotebook struct {
	NBFormat      int                        `json:"nbformat"`
	NBFormatMinor int                        `json:"nbformat_minor"`
	Metadata      map[string]json.RawMessage `json:"metadata"`
	Cells         []json.RawMessage          `json:"cells"`
	Worksheets    []struct {
		Cells []json.RawMessage `json:"cells"`
	} `json:"worksheets"`
}

type rawCell struct {
	CellType       string            `json:"cell_type"`
	Source         *multiline        `json:"source"`
	Input          *multiline        `json:"input"` // nbformat 3 code cells
	Level          int               `json:"level"` // nbformat 3 heading cells
	ExecutionCount *int              `json:"execution_count"`
	PromptNumber   *int              `json:"prompt_number"`
	Outputs        []json.RawMessage `json:"outputs"`
	Metadata       map[string]any    `json:"metadata"`
}

type rawOutput struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name"`
	Stream         string                     `json:"stream"` // nbformat 3
	Text           *multiline                 `json:"text"`
	Data           map[string]json.RawMessage `json:"data"`
	ExecutionCount *int                       `json:"execution_count"`
	EName          string                     `json:"ename"`
	EValue         string                     `json:"evalue"`
	Traceback      []string                   `json:"traceback"`
}

// v3Mimes maps nbformat 3 output keys to MIME types.
var v3Mimes = map[string]string{
	"text":       "text/plain",
	"html":       "text/html",
	"latex":      "text/latex",
	"markdown":   "text/markdown",
	"json":       "application/json",
	"png":        "image/png",
	"jpeg":       "image/jpeg",
	"svg":        "image/svg+xml",
	"javascript": "application/javascript",
}

// Parse decodes an .ipynb document. A document that is not JSON or has no
// cell list is an input error; individual malformed cells become
// InvalidCell values so the rest of the notebook survives.
func Parse(data []byte) (*Notebook, error) {
	var raw rawNotebook
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.NewInputError("decoding notebook JSON", err)
	}

	cells := raw.Cells
	if cells == nil && len(raw.Worksheets) > 0 {
		for _, ws := range raw.Worksheets {
			cells = append(cells, ws.Cells...)
		}
	}
	if cells == nil {
		return nil, core.NewInputError("notebook has no cells array", nil)
	}

	nb := &Notebook{
		Metadata:      parseMetadata(raw.Metadata),
		Cells:         make([]Cell, 0, len(cells)),
		NBFormat:      raw.NBFormat,
		NBFormatMinor: raw.NBFormatMinor,
	}
	for i, rc := range cells {
		nb.Cells = append(nb.Cells, parseCell(i, rc))
	}
	return nb, nil
}

func parseCell(index int, data json.RawMessage) Cell {
	var rc rawCell
	if err := json.Unmarshal(data, &rc); err != nil {
		return &InvalidCell{Index: index, Reason: fmt.Sprintf("decoding cell: %v", err)}
	}

	meta := parseCellMetadata(rc.Metadata)
	switch rc.CellType {
	case "markdown":
		if rc.Source == nil {
			return &InvalidCell{Index: index, Type: rc.CellType, Reason: "missing source"}
		}
		return &MarkdownCell{Index: index, Source: string(*rc.Source), Metadata: meta}

	case "heading":
		if rc.Source == nil {
			return &InvalidCell{Index: index, Type: rc.CellType, Reason: "missing source"}
		}
		level := rc.Level
		if level < 1 || level > 6 {
			level = 1
		}
		src := strings.Repeat("#", level) + " " + strings.TrimSpace(string(*rc.Source))
		return &MarkdownCell{Index: index, Source: src, Metadata: meta}

	case "code":
		src := rc.Source
		if src == nil {
			src = rc.Input
		}
		if src == nil {
			return &InvalidCell{Index: index, Type: rc.CellType, Reason: "missing source"}
		}
		count := rc.ExecutionCount
		if count == nil {
			count = rc.PromptNumber
		}
		cell := &CodeCell{
			Index:          index,
			Source:         string(*src),
			ExecutionCount: count,
			Metadata:       meta,
		}
		for _, ro := range rc.Outputs {
			cell.Outputs = append(cell.Outputs, parseOutput(ro))
		}
		return cell

	case "raw":
		if rc.Source == nil {
			return &InvalidCell{Index: index, Type: rc.CellType, Reason: "missing source"}
		}
		format, _ := rc.Metadata["raw_mimetype"].(string)
		if format == "" {
			format, _ = rc.Metadata["format"].(string)
		}
		return &RawCell{Index: index, Source: string(*rc.Source), Format: format, Metadata: meta}

	case "":
		return &InvalidCell{Index: index, Reason: "missing cell_type"}

	default:
		return &InvalidCell{Index: index, Type: rc.CellType, Reason: "unknown cell type " + rc.CellType}
	}
}

func parseOutput(data json.RawMessage) Output {
	var ro rawOutput
	if err := json.Unmarshal(data, &ro); err != nil {
		return &InvalidOutput{Reason: fmt.Sprintf("decoding output: %v", err)}
	}

	switch ro.OutputType {
	case "stream":
		name := ro.Name
		if name == "" {
			name = ro.Stream
		}
		if name == "" {
			name = "stdout"
		}
		if ro.Text == nil {
			return &InvalidOutput{Type: ro.OutputType, Reason: "missing text"}
		}
		return &StreamOutput{Name: name, Text: string(*ro.Text)}

	case "display_data", "execute_result", "pyout":
		mimes := ro.Data
		if mimes == nil {
			mimes = v3Data(data)
		}
		if mimes == nil {
			return &InvalidOutput{Type: ro.OutputType, Reason: "missing data"}
		}
		return &DisplayData{
			Data:           decodeMimeBundle(mimes),
			ExecutionCount: ro.ExecutionCount,
			IsResult:       ro.OutputType != "display_data",
		}

	case "error", "pyerr":
		return &ErrorOutput{Name: ro.EName, Value: ro.EValue, Traceback: ro.Traceback}

	case "":
		return &InvalidOutput{Reason: "missing output_type"}

	default:
		return &InvalidOutput{Type: ro.OutputType, Reason: "unknown output type " + ro.OutputType}
	}
}

func v3Data(data json.RawMessage) map[string]json.RawMessage {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}
	out := make(map[string]json.RawMessage)
	for key, mime := range v3Mimes {
		if v, ok := all[key]; ok {
			out[mime] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeMimeBundle flattens every MIME payload to a string. JSON payloads
// that are objects keep their compact JSON text.
func decodeMimeBundle(bundle map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(bundle))
	for mime, raw := range bundle {
		var text multiline
		if err := json.Unmarshal(raw, &text); err == nil {
			out[mime] = string(text)
			continue
		}
		out[mime] = string(raw)
	}
	return out
}

func parseCellMetadata(m map[string]any) CellMetadata {
	return CellMetadata{Tags: stringList(m["tags"])}
}

func parseMetadata(m map[string]json.RawMessage) Metadata {
	var meta Metadata
	if m == nil {
		return meta
	}

	decode := func(key string, dst any) bool {
		raw, ok := m[key]
		if !ok {
			return false
		}
		return json.Unmarshal(raw, dst) == nil
	}

	decode("title", &meta.Title)

	var kernel struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Language    string `json:"language"`
	}
	if decode("kernelspec", &kernel) {
		meta.KernelName = kernel.Name
		meta.KernelDisplayName = kernel.DisplayName
		meta.Language = kernel.Language
	}

	var lang struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if decode("language_info", &lang) {
		if lang.Name != "" {
			meta.Language = lang.Name
		}
		meta.LanguageVersion = lang.Version
	}

	var authors []any
	if decode("authors", &authors) {
		for _, a := range authors {
			switch v := a.(type) {
			case string:
				meta.Authors = append(meta.Authors, v)
			case map[string]any:
				if name, ok := v["name"].(string); ok {
					meta.Authors = append(meta.Authors, name)
				}
			}
		}
	}

	for _, key := range []string{"created", "creation_date"} {
		if decode(key, &meta.Created) && meta.Created != "" {
			break
		}
	}
	for _, key := range []string{"last_modified", "modified"} {
		if decode(key, &meta.LastModified) && meta.LastModified != "" {
			break
		}
	}

	var tags []any
	if decode("tags", &tags) {
		meta.Tags = stringList(tags)
	}
	return meta
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
