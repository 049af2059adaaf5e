// Package config loads pipeline options from, lowest to highest priority:
// built-in defaults, a YAML config file, NBDISTILL_* environment variables,
// and command-line flags the user set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// EnvPrefix is the prefix of environment overrides, e.g. NBDISTILL_CHUNK_SIZE.
const EnvPrefix = "NBDISTILL"

// LocalConfigFile is looked up in the working directory.
const LocalConfigFile = ".nbdistill.yaml"

// Config is the loaded configuration.
type Config struct {
	Options core.Options
	File    string // config file used, if any
}

// binding maps a CLI flag to an option key. Inverted flags such as
// --no-code clear a default-on option.
type binding struct {
	flag   string
	key    string
	invert bool
}

var bindings = []binding{
	{"no-code", "include_code", true},
	{"no-outputs", "include_outputs", true},
	{"no-metadata", "include_metadata", true},
	{"max-output-length", "max_output_length", false},
	{"chunk-size", "chunk_size", false},
	{"estimate-tokens", "estimate_token_count", false},
	{"model", "model", false},
	{"format", "output_format", false},
	{"no-metadata-in-chunks", "include_metadata_in_chunks", true},
}

// RegisterFlags defines the option flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := core.DefaultOptions()
	fs.Bool("no-code", false, "Exclude code cell sources")
	fs.Bool("no-outputs", false, "Exclude cell outputs")
	fs.Bool("no-metadata", false, "Exclude notebook metadata")
	fs.Int("max-output-length", d.MaxOutputLength, "Truncate outputs longer than this many characters (0 = no limit)")
	fs.Int("chunk-size", d.ChunkSize, "Split output into chunks of at most this size (0 = no chunking)")
	fs.Bool("estimate-tokens", d.EstimateTokenCount, "Estimate token counts; chunk sizes are then measured in tokens")
	fs.String("model", d.Model, "Model whose tokenizer is used for estimates")
	fs.StringP("format", "f", string(d.Format), "Output format: markdown, json, text, pdf")
	fs.Bool("no-metadata-in-chunks", false, "Only put the metadata header on the first chunk")
}

// Loader resolves configuration files relative to a working and home
// directory.
type Loader struct {
	WorkDir string
	HomeDir string
}

// NewLoader creates a Loader for the current process.
func NewLoader() *Loader {
	wd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	return &Loader{WorkDir: wd, HomeDir: home}
}

// Load builds the options. configFile, when set, must exist; otherwise
// ./.nbdistill.yaml and ~/.config/nbdistill/config.yaml are tried. When
// --format is not given, the extension of --output picks the format.
func (l *Loader) Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	switch {
	case configFile != "":
		v.SetConfigFile(configFile)
	case l.WorkDir != "" && fileExists(filepath.Join(l.WorkDir, LocalConfigFile)):
		v.SetConfigFile(filepath.Join(l.WorkDir, LocalConfigFile))
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if l.HomeDir != "" {
			v.AddConfigPath(filepath.Join(l.HomeDir, ".config", "nbdistill"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, core.NewInputError("reading config file", err)
		}
	}

	if flags != nil {
		if err := applyFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var opts core.Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Config{Options: opts, File: v.ConfigFileUsed()}, nil
}

func setDefaults(v *viper.Viper) {
	d := core.DefaultOptions()
	v.SetDefault("include_code", d.IncludeCode)
	v.SetDefault("include_outputs", d.IncludeOutputs)
	v.SetDefault("include_metadata", d.IncludeMetadata)
	v.SetDefault("max_output_length", d.MaxOutputLength)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("estimate_token_count", d.EstimateTokenCount)
	v.SetDefault("model", d.Model)
	v.SetDefault("output_format", string(d.Format))
	v.SetDefault("include_metadata_in_chunks", d.IncludeMetadataInChunks)
}

// applyFlags copies explicitly set flags over every other source.
func applyFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, b := range bindings {
		f := fs.Lookup(b.flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			val, err := fs.GetBool(b.flag)
			if err != nil {
				return core.NewOptionError(b.flag, f.Value.String())
			}
			v.Set(b.key, val != b.invert)
		case "int":
			val, err := fs.GetInt(b.flag)
			if err != nil {
				return core.NewOptionError(b.flag, f.Value.String())
			}
			v.Set(b.key, val)
		default:
			v.Set(b.key, f.Value.String())
		}
	}

	if out := fs.Lookup("output"); out != nil && out.Changed {
		if format := fs.Lookup("format"); format == nil || !format.Changed {
			if f, ok := core.FormatForExtension(filepath.Ext(out.Value.String())); ok {
				v.Set("output_format", string(f))
			}
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
