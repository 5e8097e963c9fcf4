package memhost

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mhurbridge/pkg/host"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestMaterialNamesStayUnique(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	a := scene.NewMaterial("MI_Body")
	b := scene.NewMaterial("MI_Body")
	if a.Name() != "MI_Body" || b.Name() != "MI_Body.001" {
		t.Fatalf("names = %q, %q", a.Name(), b.Name())
	}

	c := a.Copy()
	if c.Name() != "MI_Body.002" {
		t.Fatalf("copy name = %q, want MI_Body.002", c.Name())
	}

	c.SetName("MI_Head")
	if _, ok := scene.Material("MI_Body.002"); ok {
		t.Fatal("old name still registered after rename")
	}
	if got, ok := scene.Material("MI_Head"); !ok || got != c {
		t.Fatal("renamed material not found under its new name")
	}
}

func TestMaterialCopyClonesGraph(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	m := scene.NewMaterial("MI_Body").(*Material)
	m.EnableNodes()
	emission := m.Graph().NewNode(host.NodeEmission)
	output := m.Graph().NewNode(host.NodeOutputMaterial)
	from, _ := emission.OutputNamed("Emission")
	to, _ := output.InputNamed("Surface")
	if err := m.Graph().Link(from, to); err != nil {
		t.Fatalf("Link error: %v", err)
	}

	c := m.Copy().(*Material)
	if !c.UsesNodes() {
		t.Fatal("copy lost the node flag")
	}
	c.Graph().Clear()

	if len(m.NodeGraph().Nodes) != 2 || len(m.NodeGraph().Links) != 1 {
		t.Fatal("clearing the copy changed the original graph")
	}
}

func TestGraphLinkValidation(t *testing.T) {
	t.Parallel()

	g := &Graph{}
	other := &Graph{}
	emission := g.NewNode(host.NodeEmission)
	output := g.NewNode(host.NodeOutputMaterial)
	foreign := other.NewNode(host.NodeOutputMaterial)

	out, _ := emission.OutputNamed("Emission")
	in, _ := output.InputNamed("Surface")
	color, _ := emission.InputNamed("Color")
	foreignIn, _ := foreign.InputNamed("Surface")

	if err := g.Link(in, out); err == nil {
		t.Fatal("linked input to output")
	}
	if err := g.Link(out, color); err != nil {
		t.Fatalf("Link error: %v", err)
	}
	if err := g.Link(out, foreignIn); err == nil {
		t.Fatal("linked across graphs")
	}

	if err := g.Link(out, in); err != nil {
		t.Fatalf("Link error: %v", err)
	}
	if err := g.Link(out, in); err != nil {
		t.Fatalf("relink error: %v", err)
	}
	if len(g.Links) != 2 {
		t.Fatalf("links = %d, want 2 after relinking the same input", len(g.Links))
	}

	if _, err := output.Input(9); !errors.Is(err, host.ErrNoSocket) {
		t.Fatalf("Input(9) error = %v, want ErrNoSocket", err)
	}
}

func TestSocketTypes(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	group := scene.AddNodeGroup("G", []SocketSpec{{Name: "F", Type: SocketFloat}, {Name: "I", Type: SocketInt}, {Name: "C", Type: SocketColor}}, nil)
	n := (&Graph{}).NewNode(host.NodeGroupShader).(*Node)
	n.SetGroup(group)

	f, i, c := n.InputSocket(0), n.InputSocket(1), n.InputSocket(2)
	if err := i.SetFloat(1.5); !errors.Is(err, host.ErrSocketType) {
		t.Fatalf("SetFloat on int socket error = %v", err)
	}
	if err := i.SetInt(4); err != nil || i.Value != 4 {
		t.Fatalf("SetInt on int socket = %v, %v", i.Value, err)
	}
	if err := f.SetInt(2); err != nil || f.Value != 2.0 {
		t.Fatalf("SetInt on float socket = %v, %v", f.Value, err)
	}
	if err := c.SetFloat(1); !errors.Is(err, host.ErrSocketType) {
		t.Fatalf("SetFloat on color socket error = %v", err)
	}
	if err := f.SetColor([4]float64{1, 1, 1, 1}); !errors.Is(err, host.ErrSocketType) {
		t.Fatalf("SetColor on float socket error = %v", err)
	}
}

func TestLoadImageCachesByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	png := filepath.Join(dir, "T_Body_D.png")
	if err := os.WriteFile(png, pngHeader, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := filepath.Join(dir, "T_Mask.tga")
	if err := os.WriteFile(raw, []byte("plain"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	scene := NewScene()
	first, err := scene.LoadImage(png)
	if err != nil {
		t.Fatalf("LoadImage error: %v", err)
	}
	second, err := scene.LoadImage(filepath.Join(dir, ".", "T_Body_D.png"))
	if err != nil {
		t.Fatalf("LoadImage error: %v", err)
	}
	if first != second {
		t.Fatal("same path loaded twice")
	}
	if got, ok := scene.Image("T_Body_D"); !ok || got != first {
		t.Fatal("image not registered by file stem")
	}

	img := first.(*Image)
	if img.Format != "png" || img.ColorSpace != host.ColorSpaceSRGB || img.AlphaMode != host.AlphaStraight {
		t.Fatalf("image = %+v", img)
	}

	mask, err := scene.LoadImage(raw)
	if err != nil {
		t.Fatalf("LoadImage error: %v", err)
	}
	if mask.(*Image).Format != "tga" {
		t.Fatalf("fallback format = %q, want tga", mask.(*Image).Format)
	}

	if _, err := scene.LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestBuiltinLibraryAppendIsIdempotent(t *testing.T) {
	t.Parallel()

	scene := NewScene()
	index, err := scene.ReadLibrary(BuiltinLibrary)
	if err != nil {
		t.Fatalf("ReadLibrary error: %v", err)
	}
	if len(index[host.DataNodeGroups]) == 0 {
		t.Fatal("builtin library has no node groups")
	}

	for range 2 {
		if err := scene.AppendFromLibrary(BuiltinLibrary, index); err != nil {
			t.Fatalf("AppendFromLibrary error: %v", err)
		}
	}

	group, ok := scene.NodeGroup("MHURPortingBasicToonShader")
	if !ok {
		t.Fatal("toon shader group not appended")
	}
	if got := len(group.(*NodeGroup).Inputs); got != 13 {
		t.Fatalf("toon shader inputs = %d, want 13", got)
	}
	for name := range scene.Materials() {
		if strings.Contains(name, ".00") {
			t.Fatalf("duplicate material %q", name)
		}
	}
}

func TestAppendFromLibraryIgnoresUnknownNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "shared.toml")
	manifest := "version = 2\n[[material]]\nname = \"M_Shared\"\n"
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	scene := NewScene()
	err := scene.AppendFromLibrary(path, host.LibraryIndex{host.DataMaterials: {"M_Shared", "M_Unknown"}})
	if err != nil {
		t.Fatalf("AppendFromLibrary error: %v", err)
	}
	if !scene.Has(host.DataMaterials, "M_Shared") || scene.Has(host.DataMaterials, "M_Unknown") {
		t.Fatalf("materials = %v", scene.Materials())
	}
	if m, _ := scene.Material("M_Shared"); !m.UsesNodes() {
		t.Fatal("library material should be node based")
	}

	if _, err := scene.ReadLibrary(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("expected error for a missing library")
	}
}

func TestImporterBuildsArmatureWithMesh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Body_LOD0.psk")
	if err := os.WriteFile(path, []byte("mesh"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	scene := NewScene()
	importer := NewImporter(scene, 2)
	opts := host.ImportOptions{ReorientBones: true, BoneSizeRatio: 0.2}

	if !importer.Import(path, opts) {
		t.Fatal("Import failed")
	}
	root := scene.ActiveObject()
	if root == nil || root.Kind() != host.ObjectArmature || root.Name() != "Body_LOD0" {
		t.Fatalf("active object = %v", root)
	}
	children := root.Children()
	if len(children) != 1 || children[0].Kind() != host.ObjectMesh || len(children[0].MaterialSlots()) != 2 {
		t.Fatalf("children = %v", children)
	}

	if importer.Import(filepath.Join(t.TempDir(), "missing.psk"), opts) {
		t.Fatal("Import of a missing file succeeded")
	}
	if len(importer.Records) != 2 || !importer.Records[0].OK || importer.Records[1].OK {
		t.Fatalf("records = %+v", importer.Records)
	}
}

func TestSchedulerRunHonorsReturnedDelay(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	var calls atomic.Int32
	s.RegisterTimer(func() time.Duration {
		calls.Add(1)
		return 20 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := calls.Load()
	if got < 3 || got > 15 {
		t.Fatalf("timer calls = %d, want roughly 10", got)
	}
}

func TestSchedulerStepCallsEveryTimer(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	var a, b int
	s.RegisterTimer(func() time.Duration { a++; return time.Hour })
	s.RegisterTimer(func() time.Duration { b++; return time.Hour })

	s.Step()
	s.Step()
	if a != 2 || b != 2 {
		t.Fatalf("calls = %d, %d, want 2, 2", a, b)
	}
}

func TestNotifierRendersBox(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewNotifier(&buf)
	n.Notify("MHUR Porting", "node group missing", host.SeverityError)

	out := buf.String()
	if !strings.Contains(out, "ERROR: MHUR Porting") || !strings.Contains(out, "node group missing") {
		t.Fatalf("rendered = %q", out)
	}
	if !strings.Contains(out, "╭") {
		t.Fatalf("rendered without a rounded border: %q", out)
	}

	history := n.History()
	if len(history) != 1 || history[0].Severity != host.SeverityError {
		t.Fatalf("history = %+v", history)
	}
}
