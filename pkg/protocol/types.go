package protocol

// ImportJob is one decoded import request. The JSON field names follow the
// authoring tool's wire document.
type ImportJob struct {
	// ID is assigned locally when the message finishes decoding.
	ID         string           `json:"-"`
	AssetsRoot string           `json:"AssetsRoot"`
	Settings   Settings         `json:"Settings"`
	Data       AssetDescription `json:"Data"`
}

// Settings carries the sender's import options by name.
type Settings map[string]any

// UseIK reports whether the rig setup should be applied. Only a literal
// boolean true enables it.
func (s Settings) UseIK() bool {
	value, ok := s["UseIk"].(bool)
	return ok && value
}

type AssetDescription struct {
	Name  string            `json:"Name"`
	Kind  string            `json:"Type"`
	Parts []PartDescription `json:"Parts"`
}

type PartDescription struct {
	PartType          string                `json:"Part"`
	MeshPath          string                `json:"MeshPath"`
	Materials         []MaterialDescription `json:"Materials"`
	OverrideMaterials []MaterialDescription `json:"OverrideMaterials"`
}

type MaterialDescription struct {
	SlotIndex    int                `json:"SlotIndex"`
	MaterialName string             `json:"MaterialName"`
	Textures     []TextureParameter `json:"Textures"`
	Scalars      []ScalarParameter  `json:"Scalars"`
	Vectors      []VectorParameter  `json:"Vectors"`
}

// TextureParameter binds a parameter name to a "Dir/Name.Name" resource path.
type TextureParameter struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type ScalarParameter struct {
	Name  string  `json:"Name"`
	Value float64 `json:"Value"`
}

type VectorParameter struct {
	Name  string      `json:"Name"`
	Value LinearColor `json:"Value"`
}

type LinearColor struct {
	R float64 `json:"R"`
	G float64 `json:"G"`
	B float64 `json:"B"`
	A float64 `json:"A"`
}
