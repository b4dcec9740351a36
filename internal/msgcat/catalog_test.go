package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("ledger.showdown.missing_winner", map[string]any{"Pot": "Side Pot 1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "Side Pot 1") {
		t.Fatalf("rendered text missing pot label: %q", got)
	}
}

func TestRenderMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("ledger.no.such.key", nil); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestRenderMissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// missingkey=error: template references .Pot which is absent
	if _, err := c.Render("ledger.showdown.missing_winner", map[string]any{}); err == nil {
		t.Fatal("expected error for missing template field")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "ledger:\n  session:\n    none: \"custom fallback\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-local.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("ledger.session.none", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "custom fallback" {
		t.Fatalf("override not applied: %q", got)
	}
}

func TestDuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	body := "ledger:\n  session:\n    none: \"a\"\n"
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected duplicate key error across override files")
	}
}
