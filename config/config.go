// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package config holds the reader's Configuration object (spec §6),
// loadable from YAML and overridable by CLI flags — the same two sources
// the teacher's own CLI wires up (gopkg.in/yaml.v2 for files,
// github.com/spf13/pflag for flags).
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Config is the reader's Configuration object (spec §6 table).
type Config struct {
	NumThreads int `yaml:"numThreads"`

	MaxPrimNestLevel   int   `yaml:"kMaxPrimNestLevel"`
	MaxFieldValuePairs int   `yaml:"kMaxFieldValuePairs"`
	MaxTokenLength     int   `yaml:"kMaxTokenLength"`
	MaxStringLength    int64 `yaml:"kMaxStringLength"`
	MaxElementSize     int   `yaml:"kMaxElementSize"`
	MaxAllowedMemoryMB int   `yaml:"kMaxAllowedMemoryInMB"`

	AllowUnknownPrims      bool `yaml:"allow_unknown_prims"`
	AllowUnknownAPISchemas bool `yaml:"allow_unknown_apiSchemas"`
}

// Default returns the Configuration with spec §6's documented defaults.
func Default() Config {
	return Config{
		NumThreads:             -1,
		MaxPrimNestLevel:       256,
		MaxFieldValuePairs:     4096,
		MaxTokenLength:         4096,
		MaxStringLength:        64 * 1024 * 1024,
		MaxElementSize:         512,
		MaxAllowedMemoryMB:     16384,
		AllowUnknownPrims:      true,
		AllowUnknownAPISchemas: true,
	}
}

// LoadYAML merges fields found in the YAML file at path onto c. Fields
// absent from the file are left unchanged.
func (c *Config) LoadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

// BindPFlags registers every Config field as a CLI flag on fs, following
// the teacher's main.go convention of exposing its loader configuration
// directly via pflag rather than a bespoke flag-parsing loop.
func (c *Config) BindPFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.NumThreads, "num-threads", c.NumThreads, "advisory thread count; ignored by the ASCII reader")
	fs.IntVar(&c.MaxPrimNestLevel, "max-prim-nest-level", c.MaxPrimNestLevel, "max Prim nesting depth before a parse error")
	fs.IntVar(&c.MaxFieldValuePairs, "max-field-value-pairs", c.MaxFieldValuePairs, "max metadata entries per Prim")
	fs.IntVar(&c.MaxTokenLength, "max-token-length", c.MaxTokenLength, "max bytes per token")
	fs.Int64Var(&c.MaxStringLength, "max-string-length", c.MaxStringLength, "max bytes per string value")
	fs.IntVar(&c.MaxElementSize, "max-element-size", c.MaxElementSize, "max declared elementSize")
	fs.IntVar(&c.MaxAllowedMemoryMB, "max-allowed-memory-mb", c.MaxAllowedMemoryMB, "hard cap on cumulative memory, in MiB")
	fs.BoolVar(&c.AllowUnknownPrims, "allow-unknown-prims", c.AllowUnknownPrims, "fall back to Model for an unrecognized Prim type")
	fs.BoolVar(&c.AllowUnknownAPISchemas, "allow-unknown-api-schemas", c.AllowUnknownAPISchemas, "warn and drop unrecognized apiSchemas entries")
}
