// Package config loads nllfacts configuration from a CUE file.
//
// The file is unified with an embedded #Config schema, so every field is
// optional and typed, and unknown fields are rejected with their position:
//
//	algorithm: "location_insensitive"
//	log: level: "debug"
//	store: path: "units.db"
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/logging"
)

//go:embed schema.cue
var schemaSource string

// Config is the resolved configuration.
type Config struct {
	Algorithm string      `json:"algorithm"`
	Log       LogConfig   `json:"log"`
	Store     StoreConfig `json:"store"`
	Dump      DumpConfig  `json:"dump"`
	Jobs      int         `json:"jobs"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

type DumpConfig struct {
	Dir string `json:"dir"`
}

// Error reports an invalid configuration file.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := parse(nil, "")
	if err != nil {
		// The embedded schema's defaults are always concrete.
		panic(fmt.Sprintf("config: default schema: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(data, path)
}

// Parse validates CUE source. filename is used in error positions.
func Parse(data []byte, filename string) (*Config, error) {
	return parse(data, filename)
}

func parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def
	if data != nil {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = def.Unify(user)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// AlgorithmValue returns the configured algorithm.
func (c *Config) AlgorithmValue() (analysis.Algorithm, error) {
	return analysis.ParseAlgorithm(c.Algorithm)
}

// LoggingOptions converts the log section for logging.Init.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
