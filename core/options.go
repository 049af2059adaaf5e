package core

import (
	"strings"
)

// Format is a serialization target.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
)

// SupportedFormats lists the formats accepted by Options.Validate.
func SupportedFormats() []Format {
	return []Format{FormatMarkdown, FormatJSON, FormatText, FormatPDF}
}

// DefaultModel is the model used for token estimation when none is configured.
const DefaultModel = "gpt-4"

// Options is the recognized configuration surface of a pipeline run.
// Zero MaxOutputLength and ChunkSize mean "no truncation" and "no chunking".
type Options struct {
	IncludeCode             bool   `mapstructure:"include_code" yaml:"include_code"`
	IncludeOutputs          bool   `mapstructure:"include_outputs" yaml:"include_outputs"`
	IncludeMetadata         bool   `mapstructure:"include_metadata" yaml:"include_metadata"`
	MaxOutputLength         int    `mapstructure:"max_output_length" yaml:"max_output_length"`
	ChunkSize               int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	EstimateTokenCount      bool   `mapstructure:"estimate_token_count" yaml:"estimate_token_count"`
	Model                   string `mapstructure:"model" yaml:"model"`
	Format                  Format `mapstructure:"output_format" yaml:"output_format"`
	IncludeMetadataInChunks bool   `mapstructure:"include_metadata_in_chunks" yaml:"include_metadata_in_chunks"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		IncludeCode:             true,
		IncludeOutputs:          true,
		IncludeMetadata:         true,
		Model:                   DefaultModel,
		Format:                  FormatMarkdown,
		IncludeMetadataInChunks: true,
	}
}

// Unit returns the size unit for chunk budgets: tokens when token
// estimation is enabled, characters otherwise.
func (o Options) Unit() Unit {
	if o.EstimateTokenCount {
		return UnitTokens
	}
	return UnitChars
}

// Validate checks option values. It runs before any processing so an
// unsupported format fails fast.
func (o Options) Validate() error {
	if !o.Format.Valid() {
		return NewFormatError(string(o.Format))
	}
	if o.MaxOutputLength < 0 {
		return NewOptionError("max_output_length", o.MaxOutputLength)
	}
	if o.ChunkSize < 0 {
		return NewOptionError("chunk_size", o.ChunkSize)
	}
	if o.EstimateTokenCount && strings.TrimSpace(o.Model) == "" {
		return NewOptionError("model", o.Model)
	}
	return nil
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, s := range SupportedFormats() {
		if f == s {
			return true
		}
	}
	return false
}

// FormatForExtension maps a file extension to its format.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return FormatMarkdown, true
	case ".json":
		return FormatJSON, true
	case ".txt", ".text":
		return FormatText, true
	case ".pdf":
		return FormatPDF, true
	default:
		return "", false
	}
}
