// Package pipeline replays one import job against the host scene: it loads
// the shared shader data, imports each part's mesh, adds the outline material
// and builds a toon shader graph for every material the job lists.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mhurbridge/pkg/config"
	"mhurbridge/pkg/host"
	"mhurbridge/pkg/mapping"
	"mhurbridge/pkg/protocol"
)

const (
	ToonShaderGroup     = "MHURPortingBasicToonShader"
	OutlineMaterialName = "MHUR_Outline"
)

// jobContext carries the values of one job through the call chain.
type jobContext struct {
	id         string
	assetsRoot string
	settings   protocol.Settings
	log        *slog.Logger
	report     *Report
}

// SkippedPart records a part that was not imported and why.
type SkippedPart struct {
	PartType string
	Reason   string
}

// Report summarizes one import. Duplicates counts parts whose type was
// already imported; they are not skips.
type Report struct {
	JobID      string
	Asset      string
	Kind       string
	Imported   []string
	Skipped    []SkippedPart
	Duplicates int
	Materials  int
	Reused     int
	Bindings   mapping.Result
}

type Pipeline struct {
	scene    host.Scene
	importer host.MeshImporter
	rigger   host.Rigger
	engine   *mapping.Engine
	cfg      config.PipelineConfig
	log      *slog.Logger
}

func New(h host.Host, engine *mapping.Engine, cfg config.PipelineConfig, log *slog.Logger) (*Pipeline, error) {
	if h.Scene == nil {
		return nil, errors.New("host scene is required")
	}
	if h.Importer == nil {
		return nil, errors.New("host mesh importer is required")
	}
	if engine == nil {
		return nil, errors.New("mapping engine is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		scene:    h.Scene,
		importer: h.Importer,
		rigger:   h.Rigger,
		engine:   engine,
		cfg:      cfg,
		log:      log.With("component", "pipeline"),
	}, nil
}

// Import runs one job to completion. Missing files and importer failures skip
// the affected part; any other failure aborts the job and is returned.
func (p *Pipeline) Import(ctx context.Context, job *protocol.ImportJob) (Report, error) {
	if job == nil {
		return Report{}, errors.New("job is required")
	}

	report := Report{JobID: job.ID, Asset: job.Data.Name, Kind: job.Data.Kind}
	jc := &jobContext{
		id:         job.ID,
		assetsRoot: job.AssetsRoot,
		settings:   job.Settings,
		log:        p.log.With("job_id", job.ID),
		report:     &report,
	}

	if err := p.prepareSharedData(); err != nil {
		return report, fmt.Errorf("prepare shared data: %w", err)
	}

	jc.log.Info("Received import", "type", job.Data.Kind, "name", job.Data.Name, "parts", len(job.Data.Parts))

	imported := make(map[string]struct{}, len(job.Data.Parts))
	for _, part := range job.Data.Parts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, ok := imported[part.PartType]; ok {
			jc.log.Debug("Skipping duplicate part", "part", part.PartType, "mesh_path", part.MeshPath)
			report.Duplicates++
			continue
		}

		err := p.importPart(jc, part)
		switch {
		case err == nil:
			imported[part.PartType] = struct{}{}
			report.Imported = append(report.Imported, part.PartType)
		case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrExternalImport), errors.Is(err, ErrNoMesh):
			jc.log.Warn("Skipping part", "part", part.PartType, "error", err)
			report.Skipped = append(report.Skipped, SkippedPart{PartType: part.PartType, Reason: err.Error()})
		default:
			return report, fmt.Errorf("part %q: %w", part.PartType, err)
		}
	}

	return report, nil
}

func (p *Pipeline) importPart(jc *jobContext, part protocol.PartDescription) error {
	path, err := ResolveMeshPath(jc.assetsRoot, part.MeshPath, p.cfg.LODSuffix, p.cfg.MeshExtensions)
	if err != nil {
		return err
	}

	opts := host.ImportOptions{ReorientBones: p.cfg.ShouldReorientBones(), BoneSizeRatio: p.cfg.BoneSizeRatio}
	if !p.importer.Import(path, opts) {
		return fmt.Errorf("%w: %s", ErrExternalImport, path)
	}

	root := p.scene.ActiveObject()
	if root == nil {
		return fmt.Errorf("%w: no active object after importing %s", ErrExternalImport, path)
	}

	if root.Kind() == host.ObjectArmature && jc.settings.UseIK() && p.rigger != nil {
		if err := p.rigger.ApplyRig(root); err != nil {
			jc.log.Warn("Rig setup failed", "part", part.PartType, "armature", root.Name(), "error", err)
		}
	}

	mesh, err := meshOf(root)
	if err != nil {
		return err
	}
	p.scene.SetActiveObject(mesh)

	if err := p.addOutlineMaterial(mesh); err != nil {
		return fmt.Errorf("outline material: %w", err)
	}

	// Overrides are applied last so they win on a shared slot index.
	for _, material := range part.Materials {
		if err := p.applyMaterial(jc, mesh, material); err != nil {
			return err
		}
	}
	for _, material := range part.OverrideMaterials {
		if err := p.applyMaterial(jc, mesh, material); err != nil {
			return err
		}
	}

	jc.log.Info("Imported part", "part", part.PartType, "path", path, "mesh", mesh.Name())
	return nil
}

// meshOf returns the renderable mesh of an imported root: its first child,
// or the root itself for a bare mesh.
func meshOf(root host.Object) (host.Object, error) {
	if children := root.Children(); len(children) > 0 {
		return children[0], nil
	}
	if root.Kind() == host.ObjectMesh {
		return root, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMesh, root.Name())
}

func (p *Pipeline) applyMaterial(jc *jobContext, mesh host.Object, material protocol.MaterialDescription) error {
	slots := mesh.MaterialSlots()
	if material.SlotIndex < 0 || material.SlotIndex >= len(slots) {
		jc.log.Warn("Skipping material for missing slot", "material", material.MaterialName, "slot", material.SlotIndex, "slots", len(slots))
		return nil
	}
	if material.MaterialName == "" {
		jc.log.Warn("Skipping unnamed material", "slot", material.SlotIndex)
		return nil
	}

	reused, err := p.importMaterial(jc, slots[material.SlotIndex], material)
	if err != nil {
		return fmt.Errorf("material %q: %w", material.MaterialName, err)
	}

	jc.report.Materials++
	if reused {
		jc.report.Reused++
	}
	return nil
}
