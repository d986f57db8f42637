package undex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
	"undex/internal/codegen"
	"undex/internal/dexfmt"
)

// Unreachable block policies.
const (
	UnreachableRender = "render" // commented listing
	UnreachableDrop   = "drop"
)

// Config controls a decompilation batch.
type Config struct {
	// Sources lists input paths handed to the Loader by Decompiler.Run.
	Sources []string `toml:"sources" yaml:"sources"`

	// Hints overrides parameter types of methods whose declarations are
	// ambiguous, keyed by signature: "Lcom/a/B;->m(I)V" = ["Ljava/lang/String;"].
	Hints map[string][]string `toml:"hints" yaml:"hints"`

	// Unreachable is "render" (default) or "drop".
	Unreachable string `toml:"unreachable" yaml:"unreachable"`

	// Workers bounds the class worker pool; 0 means runtime.NumCPU().
	Workers int `toml:"workers" yaml:"workers"`

	// MaxSteps caps decoding and inference passes; 0 derives a default.
	MaxSteps int `toml:"max_steps" yaml:"max_steps"`

	// Strict degrades methods with unresolved references instead of
	// rendering placeholders.
	Strict bool `toml:"strict" yaml:"strict"`

	// Exclude is a space-separated list of excluded packages or classes.
	Exclude string `toml:"exclude" yaml:"exclude"`

	// Indent is one indentation level of generated source.
	Indent string `toml:"indent" yaml:"indent"`
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("undex: read config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("undex: config %s: unknown format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("undex: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Unreachable {
	case "", UnreachableRender, UnreachableDrop:
	default:
		return fmt.Errorf("undex: config: unreachable must be %q or %q, got %q", UnreachableRender, UnreachableDrop, c.Unreachable)
	}
	if c.Workers < 0 {
		return fmt.Errorf("undex: config: workers must not be negative, got %d", c.Workers)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("undex: config: max_steps must not be negative, got %d", c.MaxSteps)
	}
	for sig, hint := range c.Hints {
		if !strings.Contains(sig, "->") {
			return fmt.Errorf("undex: config: hint key %q is not a method signature", sig)
		}
		for _, d := range hint {
			if d == "" {
				return fmt.Errorf("undex: config: empty hint for %s", sig)
			}
		}
	}
	return nil
}

// Excludes returns the parsed exclusion list.
func (c *Config) Excludes() []string { return ParseExcludes(c.Exclude) }

func (c *Config) mode() dexfmt.Mode {
	if c.Strict {
		return dexfmt.ModeStrict
	}
	return dexfmt.ModeBestEffort
}

func (c *Config) codegen() codegen.Options {
	opts := codegen.Options{Indent: c.Indent}
	if c.Unreachable == UnreachableDrop {
		opts.Dead = codegen.DeadDrop
	}
	return opts
}
