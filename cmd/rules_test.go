package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mhurbridge/pkg/config"
	"mhurbridge/pkg/mapping"
)

func TestEffectiveRulesDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	rules, err := effectiveRules(config.Default())
	if err != nil {
		t.Fatalf("effectiveRules error: %v", err)
	}
	if !reflect.DeepEqual(rules, mapping.DefaultRules()) {
		t.Fatal("expected the built-in rules")
	}

	cfg := config.Default()
	cfg.Mapping.RulesFile = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := effectiveRules(cfg); err == nil {
		t.Fatal("expected error for a missing rules file")
	}
}

func TestWriteRulesProducesLoadableFile(t *testing.T) {
	t.Parallel()

	for _, format := range []mapping.Format{mapping.FormatTOML, mapping.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := writeRules(&buf, mapping.DefaultRules(), format); err != nil {
				t.Fatalf("writeRules error: %v", err)
			}

			path := filepath.Join(t.TempDir(), "rules."+string(format))
			if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			cfg := config.Default()
			cfg.Mapping.RulesFile = path
			rules, err := effectiveRules(cfg)
			if err != nil {
				t.Fatalf("effectiveRules error: %v", err)
			}
			if _, ok := rules.Texture("ColorTexture"); !ok {
				t.Fatal("written rules lost the ColorTexture entry")
			}
		})
	}
}

func TestWriteRulesRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := writeRules(&buf, mapping.DefaultRules(), "json"); err == nil {
		t.Fatal("expected error for an unknown format")
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %q for an unknown format", buf.String())
	}
}
