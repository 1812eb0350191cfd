package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/types"
)

func TestCatalogEntries(t *testing.T) {
	catalog, _, err := manifest.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v, want nil", err)
	}

	entries, err := catalogEntries(catalog, []string{"HasMinLength"})
	if err != nil {
		t.Fatalf("catalogEntries() error = %v, want nil", err)
	}
	if len(entries) == 0 {
		t.Fatal("catalogEntries() returned no overloads")
	}
	for _, e := range entries {
		if e.Name != "HasMinLength" {
			t.Errorf("entry name = %q, want HasMinLength", e.Name)
		}
		if !strings.HasPrefix(e.Signature, "HasMinLength(") {
			t.Errorf("signature = %q", e.Signature)
		}
		if !strings.HasPrefix(e.Func, "rules.") {
			t.Errorf("func = %q, want the rules qualifier", e.Func)
		}
	}

	all, err := catalogEntries(catalog, nil)
	if err != nil {
		t.Fatalf("catalogEntries(nil) error = %v, want nil", err)
	}
	if len(all) != catalog.Len() {
		t.Errorf("catalogEntries(nil) = %d entries, want %d", len(all), catalog.Len())
	}

	if _, err := catalogEntries(catalog, []string{"NoSuchRule"}); !errors.Is(err, types.ErrUnknownRule) {
		t.Errorf("catalogEntries(NoSuchRule) error = %v, want ErrUnknownRule", err)
	}
}

func TestWriteEntries(t *testing.T) {
	entries := []ruleEntry{
		{Name: "IsSku", Signature: "IsSku(value string)", Func: "checks.Sku", Code: "Sku"},
		{Name: "IsKnown", Signature: "IsKnown(value string)", Func: "lookup.Known", Async: true},
	}

	var text bytes.Buffer
	if err := writeEntries(&text, "text", entries); err != nil {
		t.Fatalf("writeEntries(text) error = %v, want nil", err)
	}
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("text output has %d lines, want header plus 2:\n%s", len(lines), text.String())
	}
	if !strings.Contains(lines[2], "lookup.Known (async)") {
		t.Errorf("async rule not marked: %q", lines[2])
	}

	var js bytes.Buffer
	if err := writeEntries(&js, "json", entries); err != nil {
		t.Fatalf("writeEntries(json) error = %v, want nil", err)
	}
	var decoded []ruleEntry
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not decode: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Func != "checks.Sku" {
		t.Errorf("json output = %+v", decoded)
	}

	var ym bytes.Buffer
	if err := writeEntries(&ym, "yaml", entries); err != nil {
		t.Fatalf("writeEntries(yaml) error = %v, want nil", err)
	}
	decoded = nil
	if err := yaml.Unmarshal(ym.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml output does not decode: %v", err)
	}
	if len(decoded) != 2 || !decoded[1].Async {
		t.Errorf("yaml output = %+v", decoded)
	}

	if err := writeEntries(&bytes.Buffer{}, "xml", entries); err == nil {
		t.Error("writeEntries(xml) error = nil, want error")
	}
}
