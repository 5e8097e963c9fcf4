package pipeline

import (
	"fmt"

	"mhurbridge/pkg/host"
)

var sharedKinds = []host.DataKind{host.DataNodeGroups, host.DataObjects, host.DataMaterials}

// prepareSharedData appends the shared library's node groups, objects and
// materials that the scene does not have yet. Names already present are left
// untouched, so repeated jobs load each block once.
func (p *Pipeline) prepareSharedData() error {
	index, err := p.scene.ReadLibrary(p.cfg.SharedLibrary)
	if err != nil {
		return err
	}

	want := host.LibraryIndex{}
	missing := 0
	for _, kind := range sharedKinds {
		for _, name := range index[kind] {
			if p.scene.Has(kind, name) {
				continue
			}
			want[kind] = append(want[kind], name)
			missing++
		}
	}

	if missing == 0 {
		return nil
	}

	if err := p.scene.AppendFromLibrary(p.cfg.SharedLibrary, want); err != nil {
		return fmt.Errorf("append from %q: %w", p.cfg.SharedLibrary, err)
	}

	p.log.Debug("Loaded shared data", "library", p.cfg.SharedLibrary, "blocks", missing)
	return nil
}
