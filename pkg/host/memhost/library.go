package memhost

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"mhurbridge/pkg/host"
)

//go:embed shared.toml
var builtinManifest []byte

// BuiltinLibrary is the library path that resolves to the embedded manifest.
const BuiltinLibrary = ""

// Manifest describes the contents of a shared data library file.
type Manifest struct {
	Version    int             `toml:"version"`
	NodeGroups []GroupManifest `toml:"node_group"`
	Objects    []NamedBlock    `toml:"object"`
	Materials  []NamedBlock    `toml:"material"`
}

type GroupManifest struct {
	Name    string       `toml:"name"`
	Inputs  []SocketSpec `toml:"inputs"`
	Outputs []SocketSpec `toml:"outputs"`
}

type NamedBlock struct {
	Name string `toml:"name"`
}

func parseManifest(content []byte) (*Manifest, error) {
	var manifest Manifest
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("parse library manifest: %w", err)
	}
	return &manifest, nil
}

func (s *Scene) manifest(path string) (*Manifest, error) {
	if m, ok := s.libraries[path]; ok {
		return m, nil
	}

	content := builtinManifest
	if path != BuiltinLibrary {
		var err error
		content, err = os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read library %s: %w", path, err)
		}
	}

	m, err := parseManifest(content)
	if err != nil {
		return nil, err
	}
	s.libraries[path] = m
	return m, nil
}

func (s *Scene) ReadLibrary(path string) (host.LibraryIndex, error) {
	m, err := s.manifest(path)
	if err != nil {
		return nil, err
	}

	index := host.LibraryIndex{}
	for _, g := range m.NodeGroups {
		index[host.DataNodeGroups] = append(index[host.DataNodeGroups], g.Name)
	}
	for _, o := range m.Objects {
		index[host.DataObjects] = append(index[host.DataObjects], o.Name)
	}
	for _, mat := range m.Materials {
		index[host.DataMaterials] = append(index[host.DataMaterials], mat.Name)
	}
	return index, nil
}

// AppendFromLibrary creates the wanted blocks. Names already present are
// skipped, as are names the library does not contain.
func (s *Scene) AppendFromLibrary(path string, want host.LibraryIndex) error {
	m, err := s.manifest(path)
	if err != nil {
		return err
	}

	for _, name := range want[host.DataNodeGroups] {
		if s.Has(host.DataNodeGroups, name) {
			continue
		}
		for _, g := range m.NodeGroups {
			if g.Name == name {
				s.AddNodeGroup(g.Name, g.Inputs, g.Outputs)
				break
			}
		}
	}

	for _, name := range want[host.DataObjects] {
		if s.Has(host.DataObjects, name) || !containsBlock(m.Objects, name) {
			continue
		}
		s.addObject(name, host.ObjectMesh)
	}

	for _, name := range want[host.DataMaterials] {
		if s.Has(host.DataMaterials, name) || !containsBlock(m.Materials, name) {
			continue
		}
		s.newMaterial(name, true)
	}

	return nil
}

// RegisterLibrary makes path resolve to manifest without touching disk.
func (s *Scene) RegisterLibrary(path string, manifest *Manifest) {
	s.libraries[path] = manifest
}

func containsBlock(blocks []NamedBlock, name string) bool {
	for _, b := range blocks {
		if b.Name == name {
			return true
		}
	}
	return false
}
