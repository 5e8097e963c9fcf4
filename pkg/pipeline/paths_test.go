package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveMeshPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "Game", "Char")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"Body_LOD0.psk", "Body_LOD0.pskx", "Hair_LOD0.pskx"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	exts := []string{".psk", ".pskx"}
	tests := []struct {
		name     string
		meshPath string
		want     string
		wantErr  bool
	}{
		{name: "first extension wins", meshPath: "/Game/Char/Body.Body", want: filepath.Join(dir, "Body_LOD0.psk")},
		{name: "fallback extension", meshPath: "/Game/Char/Hair.Hair", want: filepath.Join(dir, "Hair_LOD0.pskx")},
		{name: "no leading slash", meshPath: "Game/Char/Body.uasset", want: filepath.Join(dir, "Body_LOD0.psk")},
		{name: "missing", meshPath: "/Game/Char/Face.Face", wantErr: true},
		{name: "escapes root", meshPath: "/../outside/Body.Body", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveMeshPath(root, tt.meshPath, "_LOD0", exts)
			if tt.wantErr {
				if !errors.Is(err, ErrAssetNotFound) {
					t.Fatalf("error = %v, want ErrAssetNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveMeshPath error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveMeshPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitTexturePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		wantPath string
		wantName string
		wantOK   bool
	}{
		{value: "/Game/Tex/T_Body_D.T_Body_D", wantPath: "/Game/Tex/T_Body_D", wantName: "T_Body_D", wantOK: true},
		{value: "/Game/Tex/T_Body_D", wantOK: false},
		{value: "/Game/Tex/T.a.b", wantOK: false},
		{value: ".T_Body_D", wantOK: false},
		{value: "/Game/Tex/T_Body_D.", wantOK: false},
	}

	for _, tt := range tests {
		path, name, ok := splitTexturePath(tt.value)
		if ok != tt.wantOK || path != tt.wantPath || name != tt.wantName {
			t.Fatalf("splitTexturePath(%q) = %q, %q, %v", tt.value, path, name, ok)
		}
	}
}

func TestResolveTexturePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "Game", "Tex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "T_Body_D.png"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ResolveTexturePath(root, "/Game/Tex/T_Body_D", ".png")
	if err != nil {
		t.Fatalf("ResolveTexturePath error: %v", err)
	}
	if got != filepath.Join(dir, "T_Body_D.png") {
		t.Fatalf("ResolveTexturePath = %q", got)
	}

	if _, err := ResolveTexturePath(root, "/Game/Tex/T_Missing", ".png"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("missing texture error = %v", err)
	}
	if _, err := ResolveTexturePath(root, "/../../etc/passwd", ""); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("escaping texture error = %v", err)
	}
}
