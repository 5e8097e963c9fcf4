// Package host declares the narrow contracts the bridge needs from the
// application it imports into: scene data, shader graphs, the mesh importer,
// the rig builder, the repeating timer and user notifications.
//
// All Scene, Object, Material and Graph methods must be called from the
// host's main loop.
package host

import (
	"errors"
	"time"
)

// ErrSocketType is returned when a value does not fit a socket's type.
var ErrSocketType = errors.New("socket type mismatch")

// ErrNoSocket is returned for an unknown socket index or name.
var ErrNoSocket = errors.New("no such socket")

type ObjectKind string

const (
	ObjectArmature ObjectKind = "ARMATURE"
	ObjectMesh     ObjectKind = "MESH"
)

type NodeKind string

const (
	NodeOutputMaterial NodeKind = "ShaderNodeOutputMaterial"
	NodeGroupShader    NodeKind = "ShaderNodeGroup"
	NodeTexImage       NodeKind = "ShaderNodeTexImage"
	NodeEmission       NodeKind = "ShaderNodeEmission"
)

type AlphaMode string

const (
	AlphaStraight      AlphaMode = "STRAIGHT"
	AlphaChannelPacked AlphaMode = "CHANNEL_PACKED"
)

type ColorSpace string

const (
	ColorSpaceSRGB   ColorSpace = "sRGB"
	ColorSpaceLinear ColorSpace = "Linear"
)

// DataKind names a block type in a shared data library.
type DataKind string

const (
	DataNodeGroups DataKind = "node_groups"
	DataObjects    DataKind = "objects"
	DataMaterials  DataKind = "materials"
)

// LibraryIndex lists block names per kind available in (or wanted from) a library.
type LibraryIndex map[DataKind][]string

// Location is a position on the node editor canvas.
type Location struct {
	X float64 `toml:"x" yaml:"x"`
	Y float64 `toml:"y" yaml:"y"`
}

type Scene interface {
	// Material looks a material up by exact name.
	Material(name string) (Material, bool)
	NewMaterial(name string) Material
	NodeGroup(name string) (NodeGroup, bool)
	// Image looks an already loaded image up by name.
	Image(name string) (Image, bool)
	// LoadImage loads path, returning the existing image when it was loaded before.
	LoadImage(path string) (Image, error)
	Has(kind DataKind, name string) bool
	ReadLibrary(path string) (LibraryIndex, error)
	AppendFromLibrary(path string, want LibraryIndex) error
	ActiveObject() Object
	SetActiveObject(Object)
}

type Object interface {
	Name() string
	Kind() ObjectKind
	Children() []Object
	MaterialSlots() []MaterialSlot
	// AppendMaterial adds a new slot holding m.
	AppendMaterial(m Material) MaterialSlot
}

type MaterialSlot interface {
	Material() Material
	SetMaterial(Material)
}

type Material interface {
	Name() string
	SetName(string)
	UsesNodes() bool
	EnableNodes()
	// Copy duplicates the material, registering the copy with the scene.
	Copy() Material
	Graph() Graph
}

type Graph interface {
	// Clear removes every node and link.
	Clear()
	NewNode(kind NodeKind) Node
	Link(from, to Socket) error
}

type Node interface {
	Kind() NodeKind
	SetLocation(Location)
	SetHidden(bool)
	SetGroup(NodeGroup)
	SetImage(Image)
	Input(index int) (Socket, error)
	InputNamed(name string) (Socket, error)
	Output(index int) (Socket, error)
	OutputNamed(name string) (Socket, error)
}

type Socket interface {
	Name() string
	// SetFloat fails with ErrSocketType on an integer socket.
	SetFloat(v float64) error
	SetInt(v int) error
	SetColor(c [4]float64) error
}

type NodeGroup interface {
	Name() string
}

type Image interface {
	Name() string
	SetAlphaMode(AlphaMode)
	SetColorSpace(ColorSpace)
}

// ImportOptions are passed through to the mesh importer.
type ImportOptions struct {
	ReorientBones bool
	BoneSizeRatio float64
}

// MeshImporter imports a mesh file. On success the imported root becomes the
// scene's active object.
type MeshImporter interface {
	Import(path string, opts ImportOptions) bool
}

// Rigger sets up an IK rig on an imported armature.
type Rigger interface {
	ApplyRig(armature Object) error
}

// TimerFunc is called by the host scheduler and returns the delay before the
// next call. It must never block.
type TimerFunc func() time.Duration

type Scheduler interface {
	RegisterTimer(fn TimerFunc)
}

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Notifier shows a non-fatal message to the user.
type Notifier interface {
	Notify(title string, message string, severity Severity)
}

// Host bundles the collaborators.
type Host struct {
	Scene     Scene
	Importer  MeshImporter
	Rigger    Rigger
	Scheduler Scheduler
	Notifier  Notifier
}
