package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset", Command: "   "}})
	if results[0].Available {
		t.Fatal("blank command must be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "Required-OK", Available: true},
		{Name: "Required-Missing", Available: false},
		{Name: "Optional-Missing", Available: false, Optional: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "Required-Missing" {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}

func TestDefaultRequirements(t *testing.T) {
	reqs := Default("/opt/calibre/ebook-convert")
	if len(reqs) == 0 {
		t.Fatal("expected at least one requirement")
	}
	if reqs[0].Command != "/opt/calibre/ebook-convert" {
		t.Fatalf("converter binary not propagated: %+v", reqs[0])
	}
	if reqs[0].Optional {
		t.Fatal("the converter requirement must not be optional")
	}
}
