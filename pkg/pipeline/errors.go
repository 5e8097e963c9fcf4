package pipeline

import "errors"

var (
	// ErrAssetNotFound means a resolved path does not exist on disk.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrExternalImport means the host's mesh importer reported failure.
	ErrExternalImport = errors.New("mesh importer failed")
	// ErrNoMesh means an imported object has no renderable mesh.
	ErrNoMesh = errors.New("imported object has no mesh")
)
