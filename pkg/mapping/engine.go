// Package mapping turns a material description's named parameters into
// shader graph edits using ordered rule tables. Parameter names without a
// matching rule are ignored so that newer payloads keep working.
package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"mhurbridge/pkg/host"
	"mhurbridge/pkg/protocol"
)

// TextureResolver returns the image for a texture parameter value, or false
// when the texture cannot be found.
type TextureResolver func(value string) (host.Image, bool)

// Result counts what one Apply call did.
type Result struct {
	Textures   int
	Scalars    int
	Vectors    int
	Ignored    int
	Skipped    int
	Unresolved int
}

type Engine struct {
	rules atomic.Pointer[Rules]
	log   *slog.Logger
}

func NewEngine(rules Rules, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{log: log.With("component", "mapping.engine")}
	e.rules.Store(&rules)
	return e
}

// Rules returns the tables currently in effect.
func (e *Engine) Rules() Rules {
	return *e.rules.Load()
}

// SetRules swaps the tables used by subsequent Apply calls.
func (e *Engine) SetRules(rules Rules) {
	e.rules.Store(&rules)
}

// Apply binds textures, then scalars, then vectors onto the shader node.
// The table snapshot is taken once so a concurrent reload never mixes tables
// within one material.
func (e *Engine) Apply(graph host.Graph, shader host.Node, material protocol.MaterialDescription, resolve TextureResolver) (Result, error) {
	rules := e.rules.Load()
	var result Result

	for _, texture := range material.Textures {
		if err := e.applyTexture(rules, graph, shader, texture, resolve, &result); err != nil {
			return result, fmt.Errorf("texture %q: %w", texture.Name, err)
		}
	}

	for _, scalar := range material.Scalars {
		rule, ok := rules.Scalar(scalar.Name)
		if !ok {
			result.Ignored++
			continue
		}
		input, err := shader.Input(rule.Slot)
		if err != nil {
			return result, fmt.Errorf("scalar %q: %w", scalar.Name, err)
		}
		if err := input.SetFloat(scalar.Value); err != nil {
			return result, fmt.Errorf("scalar %q: %w", scalar.Name, err)
		}
		result.Scalars++
	}

	for _, vector := range material.Vectors {
		rule, ok := rules.Vector(vector.Name)
		if !ok {
			result.Ignored++
			continue
		}
		if err := applyVector(shader, rule, vector.Value); err != nil {
			return result, fmt.Errorf("vector %q: %w", vector.Name, err)
		}
		result.Vectors++
	}

	return result, nil
}

func (e *Engine) applyTexture(rules *Rules, graph host.Graph, shader host.Node, texture protocol.TextureParameter, resolve TextureResolver, result *Result) error {
	rule, ok := rules.Texture(texture.Name)
	if !ok {
		result.Ignored++
		return nil
	}

	if rule.Slot == AlternateChannelSlot && strings.HasSuffix(texture.Value, AlternateChannelSuffix) {
		result.Skipped++
		return nil
	}

	input, err := shader.Input(rule.Slot)
	if err != nil {
		return err
	}

	image, ok := resolve(texture.Value)
	if !ok || image == nil {
		e.log.Debug("Texture did not resolve", "parameter", texture.Name, "value", texture.Value)
		result.Unresolved++
		return nil
	}

	node := graph.NewNode(host.NodeTexImage)
	node.SetImage(image)
	image.SetAlphaMode(host.AlphaChannelPacked)
	node.SetHidden(true)
	node.SetLocation(rule.Location)
	if rule.Linear {
		image.SetColorSpace(host.ColorSpaceLinear)
	}

	output, err := node.Output(0)
	if err != nil {
		return err
	}
	if err := graph.Link(output, input); err != nil {
		return err
	}

	result.Textures++
	return nil
}

func applyVector(shader host.Node, rule VectorRule, color protocol.LinearColor) error {
	input, err := shader.Input(rule.Slot)
	if err != nil {
		return err
	}
	if err := input.SetColor([4]float64{color.R, color.G, color.B, 1}); err != nil {
		return err
	}

	if rule.AlphaSlot == nil {
		return nil
	}

	alpha, err := shader.Input(*rule.AlphaSlot)
	if err != nil {
		return err
	}
	err = alpha.SetFloat(color.A)
	if errors.Is(err, host.ErrSocketType) {
		err = alpha.SetInt(int(color.A))
	}
	return err
}
