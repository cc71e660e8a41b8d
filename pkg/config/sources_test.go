package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing layout: %v", err)
	}
	return path
}

func TestLoadSourceLayout(t *testing.T) {
	path := writeLayout(t, `
entities:
  customer:
    file: data/customers.csv
  order:
    file: data/orders.csv
`)

	layout, err := LoadSourceLayout(path)
	if err != nil {
		t.Fatalf("LoadSourceLayout: %v", err)
	}

	file, err := layout.FileFor("customer")
	if err != nil || file != "data/customers.csv" {
		t.Errorf("FileFor(customer) = %q, %v", file, err)
	}
	file, err = layout.FileFor("order")
	if err != nil || file != "data/orders.csv" {
		t.Errorf("FileFor(order) = %q, %v", file, err)
	}
	if _, err := layout.FileFor("invoice"); err == nil {
		t.Error("expected error for unconfigured entity")
	}
}

func TestLoadSourceLayout_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{"no entities", "entities: {}\n", "no entities"},
		{"missing file", "entities:\n  customer: {}\n", "has no file"},
		{"bad yaml", "entities: [not a map\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSourceLayout(writeLayout(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantIn)
			}
		})
	}
}

func TestLoadSourceLayout_MissingFile(t *testing.T) {
	if _, err := LoadSourceLayout(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing layout file")
	}
}
