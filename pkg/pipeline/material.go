package pipeline

import (
	"fmt"
	"strings"

	"mhurbridge/pkg/host"
	"mhurbridge/pkg/mapping"
	"mhurbridge/pkg/protocol"
)

var outputLocation = host.Location{X: 200, Y: 0}

// importMaterial binds the described material into slot. A graph-based
// material that already carries the exact name is reused as is; otherwise
// the slot's material is copied under the new name, unless it already has
// that name ignoring case, and its graph is rebuilt.
func (p *Pipeline) importMaterial(jc *jobContext, slot host.MaterialSlot, material protocol.MaterialDescription) (bool, error) {
	name := material.MaterialName
	if existing, ok := p.scene.Material(name); ok && existing.UsesNodes() {
		slot.SetMaterial(existing)
		return true, nil
	}

	group, ok := p.scene.NodeGroup(ToonShaderGroup)
	if !ok {
		return false, fmt.Errorf("node group %q is not loaded", ToonShaderGroup)
	}

	target := slot.Material()
	switch {
	case target == nil:
		target = p.scene.NewMaterial(name)
		slot.SetMaterial(target)
	case !strings.EqualFold(target.Name(), name):
		target = target.Copy()
		target.SetName(name)
		slot.SetMaterial(target)
	}
	target.EnableNodes()

	graph := target.Graph()
	graph.Clear()

	output := graph.NewNode(host.NodeOutputMaterial)
	output.SetLocation(outputLocation)

	shader := graph.NewNode(host.NodeGroupShader)
	shader.SetGroup(group)

	if err := link(graph, shader, 0, output, 0); err != nil {
		return false, err
	}

	result, err := p.engine.Apply(graph, shader, material, func(value string) (host.Image, bool) {
		return p.importTexture(jc, value)
	})
	addResult(&jc.report.Bindings, result)
	if err != nil {
		return false, err
	}

	jc.log.Debug("Built material", "material", target.Name(), "textures", result.Textures, "scalars", result.Scalars, "vectors", result.Vectors, "ignored", result.Ignored)
	return false, nil
}

// importTexture resolves a "Dir/Name.Name" value to an image, reusing an
// image already loaded under Name. A texture that cannot be found resolves to
// nothing rather than failing the material.
func (p *Pipeline) importTexture(jc *jobContext, value string) (host.Image, bool) {
	path, name, ok := splitTexturePath(value)
	if !ok {
		jc.log.Warn("Unrecognized texture path", "value", value)
		return nil, false
	}

	if existing, ok := p.scene.Image(name); ok {
		return existing, true
	}

	file, err := ResolveTexturePath(jc.assetsRoot, path, p.cfg.TextureExtension)
	if err != nil {
		jc.log.Warn("Texture not found", "texture", name, "error", err)
		return nil, false
	}

	image, err := p.scene.LoadImage(file)
	if err != nil {
		jc.log.Warn("Texture failed to load", "texture", name, "path", file, "error", err)
		return nil, false
	}
	return image, true
}

// addOutlineMaterial appends a flat black emission material to the mesh as an
// extra slot. It is derived from the first slot's material when there is one.
func (p *Pipeline) addOutlineMaterial(mesh host.Object) error {
	var outline host.Material
	if slots := mesh.MaterialSlots(); len(slots) > 0 && slots[0].Material() != nil {
		outline = slots[0].Material().Copy()
		outline.SetName(OutlineMaterialName)
	} else {
		outline = p.scene.NewMaterial(OutlineMaterialName)
	}
	outline.EnableNodes()

	graph := outline.Graph()
	graph.Clear()

	emission := graph.NewNode(host.NodeEmission)
	color, err := emission.InputNamed("Color")
	if err != nil {
		return err
	}
	if err := color.SetColor([4]float64{0, 0, 0, 1}); err != nil {
		return err
	}

	output := graph.NewNode(host.NodeOutputMaterial)
	output.SetLocation(outputLocation)

	from, err := emission.OutputNamed("Emission")
	if err != nil {
		return err
	}
	to, err := output.InputNamed("Surface")
	if err != nil {
		return err
	}
	if err := graph.Link(from, to); err != nil {
		return err
	}

	mesh.AppendMaterial(outline)
	return nil
}

func link(graph host.Graph, from host.Node, output int, to host.Node, input int) error {
	src, err := from.Output(output)
	if err != nil {
		return err
	}
	dst, err := to.Input(input)
	if err != nil {
		return err
	}
	return graph.Link(src, dst)
}

func addResult(total *mapping.Result, r mapping.Result) {
	total.Textures += r.Textures
	total.Scalars += r.Scalars
	total.Vectors += r.Vectors
	total.Ignored += r.Ignored
	total.Skipped += r.Skipped
	total.Unresolved += r.Unresolved
}
