package memhost

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mhurbridge/pkg/host"
)

// ImportRecord is one call to the importer.
type ImportRecord struct {
	Path    string
	Options host.ImportOptions
	OK      bool
}

// Importer imports mesh files that exist on disk as an armature with one
// child mesh. The mesh gets Slots default (non-node) materials.
type Importer struct {
	scene *Scene
	Slots int
	// Reject, when set, fails the import for matching paths.
	Reject func(path string) bool

	Records []ImportRecord
}

func NewImporter(scene *Scene, slots int) *Importer {
	if slots <= 0 {
		slots = 1
	}
	return &Importer{scene: scene, Slots: slots}
}

func (i *Importer) Import(path string, opts host.ImportOptions) bool {
	ok := i.importFile(path)
	i.Records = append(i.Records, ImportRecord{Path: path, Options: opts, OK: ok})
	return ok
}

func (i *Importer) importFile(path string) bool {
	if i.Reject != nil && i.Reject(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	armature := i.scene.addObject(base, host.ObjectArmature)
	mesh := i.scene.addObject(base+"_Mesh", host.ObjectMesh)
	armature.addChild(mesh)

	for slot := range i.Slots {
		mesh.AppendMaterial(i.scene.NewMaterial(fmt.Sprintf("%s_Mat%d", base, slot)))
	}

	i.scene.SetActiveObject(armature)
	return true
}

// Rigger records the armatures it was asked to rig.
type Rigger struct {
	Rigged []string
	Err    error
}

func (r *Rigger) ApplyRig(armature host.Object) error {
	if r.Err != nil {
		return r.Err
	}
	r.Rigged = append(r.Rigged, armature.Name())
	return nil
}
