package mapping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mhurbridge/pkg/host"
)

const (
	// AlternateChannelSlot and AlternateChannelSuffix identify textures that
	// carry an alternate channel and are never bound.
	AlternateChannelSlot   = 12
	AlternateChannelSuffix = "_FX"
)

type TextureRule struct {
	Name     string        `toml:"name" yaml:"name"`
	Slot     int           `toml:"slot" yaml:"slot"`
	Location host.Location `toml:"location" yaml:"location"`
	Linear   bool          `toml:"linear,omitempty" yaml:"linear,omitempty"`
}

type ScalarRule struct {
	Name string `toml:"name" yaml:"name"`
	Slot int    `toml:"slot" yaml:"slot"`
}

type VectorRule struct {
	Name      string `toml:"name" yaml:"name"`
	Slot      int    `toml:"slot" yaml:"slot"`
	AlphaSlot *int   `toml:"alpha_slot,omitempty" yaml:"alpha_slot,omitempty"`
}

// Rules are ordered tables; lookups try entries in declaration order and the
// first case-insensitive name match wins.
type Rules struct {
	Textures []TextureRule `toml:"texture" yaml:"texture"`
	Scalars  []ScalarRule  `toml:"scalar" yaml:"scalar"`
	Vectors  []VectorRule  `toml:"vector" yaml:"vector"`
}

func DefaultRules() Rules {
	alpha := 11
	return Rules{
		Textures: []TextureRule{
			{Name: "ColorTexture", Slot: 0, Location: host.Location{X: -300, Y: -75}},
		},
		Scalars: []ScalarRule{
			{Name: "RoughnessMin", Slot: 3},
		},
		Vectors: []VectorRule{
			{Name: "Skin Boost Color And Exponent", Slot: 10, AlphaSlot: &alpha},
		},
	}
}

func (r Rules) Texture(name string) (TextureRule, bool) {
	return first(r.Textures, name, func(rule TextureRule) string { return rule.Name })
}

func (r Rules) Scalar(name string) (ScalarRule, bool) {
	return first(r.Scalars, name, func(rule ScalarRule) string { return rule.Name })
}

func (r Rules) Vector(name string) (VectorRule, bool) {
	return first(r.Vectors, name, func(rule VectorRule) string { return rule.Name })
}

func first[R any](rules []R, name string, key func(R) string) (R, bool) {
	for _, rule := range rules {
		if strings.EqualFold(key(rule), name) {
			return rule, true
		}
	}
	var zero R
	return zero, false
}

// Validate rejects tables the engine could not apply.
func (r Rules) Validate() error {
	var errs []error
	for i, rule := range r.Textures {
		errs = append(errs, validateRule("texture", i, rule.Name, rule.Slot))
	}
	for i, rule := range r.Scalars {
		errs = append(errs, validateRule("scalar", i, rule.Name, rule.Slot))
	}
	for i, rule := range r.Vectors {
		errs = append(errs, validateRule("vector", i, rule.Name, rule.Slot))
		if rule.AlphaSlot != nil && *rule.AlphaSlot < 0 {
			errs = append(errs, fmt.Errorf("vector[%d] %q: alpha_slot must not be negative", i, rule.Name))
		}
	}
	return errors.Join(errs...)
}

func validateRule(table string, index int, name string, slot int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s[%d]: name is required", table, index)
	}
	if slot < 0 {
		return fmt.Errorf("%s[%d] %q: slot must not be negative", table, index, name)
	}
	return nil
}

// Format is a rules file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the encoding from the file extension; anything that is not
// .yaml or .yml is TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// LoadRules reads rule tables from a TOML or YAML file.
func LoadRules(path string) (Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	switch FormatOf(path) {
	case FormatYAML:
		err = yaml.Unmarshal(content, &rules)
	default:
		err = toml.Unmarshal(content, &rules)
	}
	if err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules file: %w", err)
	}

	return rules, nil
}

// Encode renders the tables in a rules file format.
func (r Rules) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(r)
	case FormatYAML:
		return yaml.Marshal(r)
	default:
		return nil, fmt.Errorf("unknown rules format %q", format)
	}
}
