// Package config loads proofslot configuration.
//
// Sources, lowest precedence first:
//  1. Defaults in the embedded CUE schema (schema.cue)
//  2. An optional CUE config file, unified with the schema
//  3. PROOFSLOT_* environment variables
//
// CLI flags are applied on top by the cli package. The merged result is
// validated against the schema once more, so an environment override cannot
// bypass a constraint the file would have been held to.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/caarlos0/env/v11"
)

//go:embed schema.cue
var schemaSource []byte

// Config is the resolved runtime configuration.
type Config struct {
	Backend     string `json:"backend" env:"PROOFSLOT_BACKEND"`
	Database    string `json:"database" env:"PROOFSLOT_DB"`
	Namespace   string `json:"namespace" env:"PROOFSLOT_NAMESPACE"`
	RentPerByte uint64 `json:"rent_per_byte" env:"PROOFSLOT_RENT_PER_BYTE"`
	LogLevel    string `json:"log_level" env:"PROOFSLOT_LOG_LEVEL"`
}

// Error is a configuration failure with the CUE position when one is known.
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

// Default returns the schema defaults with no file and no environment.
func Default() (*Config, error) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return nil, err
	}
	return decode(def)
}

// Load resolves configuration from the schema, the file at path (skipped
// when path is empty), and the environment.
func Load(path string) (*Config, error) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return nil, err
	}

	v := def
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		file := ctx.CompileBytes(data, cue.Filename(path))
		if err := file.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = def.Unify(file)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.validate(ctx, def)
}

// Validate checks cfg against the schema constraints.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return err
	}
	return c.validate(ctx, def)
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) validate(ctx *cue.Context, def cue.Value) error {
	merged := def.Unify(ctx.Encode(c))
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func schema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

func decode(v cue.Value) (*Config, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	var pos token.Pos
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos = positions[0]
	}
	return &Error{Message: first.Error(), Pos: pos}
}
