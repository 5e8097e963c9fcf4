package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveMeshPath maps a host-relative asset path such as
// "/Game/Char/Body.Body" to the first existing "<root>/Game/Char/Body_LOD0<ext>".
func ResolveMeshPath(assetsRoot, meshPath, lodSuffix string, extensions []string) (string, error) {
	relative := strings.TrimPrefix(meshPath, "/")
	relative, _, _ = strings.Cut(relative, ".")
	base := filepath.Join(assetsRoot, filepath.FromSlash(relative)) + lodSuffix
	if !isWithin(assetsRoot, base) {
		return "", fmt.Errorf("%w: %s escapes the assets root", ErrAssetNotFound, meshPath)
	}

	for _, ext := range extensions {
		candidate := base + ext
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s{%s}", ErrAssetNotFound, base, strings.Join(extensions, ","))
}

// splitTexturePath splits "Dir/Name.Name" into its directory path and the
// resource name used as the cache key.
func splitTexturePath(value string) (path string, name string, ok bool) {
	path, name, ok = strings.Cut(value, ".")
	if !ok || path == "" || name == "" || strings.Contains(name, ".") {
		return "", "", false
	}
	return path, name, true
}

// ResolveTexturePath maps a texture path without its resource suffix to the
// image file on disk.
func ResolveTexturePath(assetsRoot, texturePath, extension string) (string, error) {
	relative := strings.TrimPrefix(texturePath, "/")
	candidate := filepath.Join(assetsRoot, filepath.FromSlash(relative)) + extension
	if !isWithin(assetsRoot, candidate) {
		return "", fmt.Errorf("%w: %s escapes the assets root", ErrAssetNotFound, texturePath)
	}
	if !fileExists(candidate) {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, candidate)
	}
	return candidate, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
