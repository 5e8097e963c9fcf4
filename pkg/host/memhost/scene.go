// Package memhost is an in-memory host: a scene graph with materials,
// shader graphs and images, a mesh importer that probes files on disk, a tick
// scheduler acting as the host main loop and a terminal notifier. The serve
// command runs the bridge against it and tests use it as the host.
package memhost

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"mhurbridge/pkg/host"
)

type NodeGroup struct {
	name    string
	Inputs  []SocketSpec
	Outputs []SocketSpec
}

func (g *NodeGroup) Name() string { return g.name }

type Image struct {
	name string
	Path string
	// Format is the sniffed file type, or the extension when the content is
	// not recognized.
	Format     string
	AlphaMode  host.AlphaMode
	ColorSpace host.ColorSpace
}

func (i *Image) Name() string                     { return i.name }
func (i *Image) SetAlphaMode(mode host.AlphaMode) { i.AlphaMode = mode }
func (i *Image) SetColorSpace(cs host.ColorSpace) { i.ColorSpace = cs }

// Scene holds all data blocks. Like the host it stands in for, it is not safe
// for concurrent use.
type Scene struct {
	materials  map[string]*Material
	nodeGroups map[string]*NodeGroup
	objects    map[string]*Object
	images     map[string]*Image
	imagePaths map[string]*Image
	libraries  map[string]*Manifest
	active     *Object
}

func NewScene() *Scene {
	return &Scene{
		materials:  make(map[string]*Material),
		nodeGroups: make(map[string]*NodeGroup),
		objects:    make(map[string]*Object),
		images:     make(map[string]*Image),
		imagePaths: make(map[string]*Image),
		libraries:  make(map[string]*Manifest),
	}
}

func (s *Scene) Material(name string) (host.Material, bool) {
	m, ok := s.materials[name]
	if !ok {
		return nil, false
	}
	return m, true
}

// Materials returns every material by name.
func (s *Scene) Materials() map[string]*Material {
	return s.materials
}

func (s *Scene) NewMaterial(name string) host.Material {
	return s.newMaterial(name, false)
}

func (s *Scene) newMaterial(name string, nodes bool) *Material {
	m := &Material{scene: s, name: s.uniqueMaterialName(name), usesNodes: nodes, graph: &Graph{}}
	s.materials[m.name] = m
	return m
}

// uniqueMaterialName appends .001, .002, ... to names already taken.
func (s *Scene) uniqueMaterialName(name string) string {
	if _, taken := s.materials[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if _, taken := s.materials[candidate]; !taken {
			return candidate
		}
	}
}

func (s *Scene) NodeGroup(name string) (host.NodeGroup, bool) {
	g, ok := s.nodeGroups[name]
	if !ok {
		return nil, false
	}
	return g, true
}

// AddNodeGroup registers a node group directly.
func (s *Scene) AddNodeGroup(name string, inputs, outputs []SocketSpec) *NodeGroup {
	g := &NodeGroup{name: name, Inputs: inputs, Outputs: outputs}
	s.nodeGroups[name] = g
	return g
}

func (s *Scene) Image(name string) (host.Image, bool) {
	img, ok := s.images[name]
	if !ok {
		return nil, false
	}
	return img, true
}

// Images returns every loaded image by name.
func (s *Scene) Images() map[string]*Image {
	return s.images
}

// LoadImage loads an image file. Loading the same path twice returns the
// first image. The image is named after the file without its extension.
func (s *Scene) LoadImage(path string) (host.Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if img, ok := s.imagePaths[abs]; ok {
		return img, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("load image: %s is a directory", abs)
	}

	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	img := &Image{name: name, Path: abs, Format: imageFormat(abs), AlphaMode: host.AlphaStraight, ColorSpace: host.ColorSpaceSRGB}
	s.images[name] = img
	s.imagePaths[abs] = img
	return img, nil
}

func imageFormat(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	return kind.Extension
}

func (s *Scene) Has(kind host.DataKind, name string) bool {
	switch kind {
	case host.DataNodeGroups:
		_, ok := s.nodeGroups[name]
		return ok
	case host.DataObjects:
		_, ok := s.objects[name]
		return ok
	case host.DataMaterials:
		_, ok := s.materials[name]
		return ok
	default:
		return false
	}
}

// Objects returns every object by name.
func (s *Scene) Objects() map[string]*Object {
	return s.objects
}

func (s *Scene) addObject(name string, kind host.ObjectKind) *Object {
	unique := name
	for i := 1; ; i++ {
		if _, taken := s.objects[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s.%03d", name, i)
	}
	obj := &Object{scene: s, name: unique, kind: kind}
	s.objects[unique] = obj
	return obj
}

func (s *Scene) ActiveObject() host.Object {
	if s.active == nil {
		return nil
	}
	return s.active
}

func (s *Scene) SetActiveObject(obj host.Object) {
	o, ok := obj.(*Object)
	if !ok {
		s.active = nil
		return
	}
	s.active = o
}

type Object struct {
	scene    *Scene
	name     string
	kind     host.ObjectKind
	children []*Object
	slots    []*MaterialSlot
}

func (o *Object) Name() string          { return o.name }
func (o *Object) Kind() host.ObjectKind { return o.kind }

func (o *Object) Children() []host.Object {
	children := make([]host.Object, 0, len(o.children))
	for _, c := range o.children {
		children = append(children, c)
	}
	return children
}

func (o *Object) MaterialSlots() []host.MaterialSlot {
	slots := make([]host.MaterialSlot, 0, len(o.slots))
	for _, s := range o.slots {
		slots = append(slots, s)
	}
	return slots
}

// Slots returns the concrete slots for inspection.
func (o *Object) Slots() []*MaterialSlot {
	return o.slots
}

func (o *Object) AppendMaterial(m host.Material) host.MaterialSlot {
	slot := &MaterialSlot{}
	slot.SetMaterial(m)
	o.slots = append(o.slots, slot)
	return slot
}

func (o *Object) addChild(child *Object) {
	o.children = append(o.children, child)
}

type MaterialSlot struct {
	material *Material
}

func (s *MaterialSlot) Material() host.Material {
	if s.material == nil {
		return nil
	}
	return s.material
}

// Bound returns the concrete material for inspection.
func (s *MaterialSlot) Bound() *Material {
	return s.material
}

func (s *MaterialSlot) SetMaterial(m host.Material) {
	material, _ := m.(*Material)
	s.material = material
}

type Material struct {
	scene     *Scene
	name      string
	usesNodes bool
	graph     *Graph
}

func (m *Material) Name() string { return m.name }

// SetName renames the material, suffixing the name if it is taken.
func (m *Material) SetName(name string) {
	if name == m.name {
		return
	}
	delete(m.scene.materials, m.name)
	m.name = m.scene.uniqueMaterialName(name)
	m.scene.materials[m.name] = m
}

func (m *Material) UsesNodes() bool { return m.usesNodes }
func (m *Material) EnableNodes()    { m.usesNodes = true }

func (m *Material) Copy() host.Material {
	c := &Material{scene: m.scene, name: m.scene.uniqueMaterialName(m.name), usesNodes: m.usesNodes, graph: m.graph.clone()}
	m.scene.materials[c.name] = c
	return c
}

func (m *Material) Graph() host.Graph { return m.graph }

// NodeGraph returns the concrete graph for inspection.
func (m *Material) NodeGraph() *Graph { return m.graph }
