package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `data_dir = "` + filepath.Join(base, "data") + `"

[device]
address = "127.0.0.1:1"
model = "rm2"

[logging]
format = "json"
dir = "` + filepath.Join(base, "logs") + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, needle string) {
	t.Helper()
	if !strings.Contains(output, needle) {
		t.Fatalf("output missing %q:\n%s", needle, output)
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, command := range []string{"status", "list", "send", "config", "deps"} {
		requireContains(t, out, command)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidate(t *testing.T) {
	out, err := runCLI(t, []string{"config", "validate"}, writeTestConfig(t))
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestStatusUnreachableDevice(t *testing.T) {
	out, err := runCLI(t, []string{"status"}, writeTestConfig(t))
	if err == nil {
		t.Fatal("expected error for unreachable device")
	}
	requireContains(t, out, "127.0.0.1:1")
	requireContains(t, out, "no")
}

func TestSendRejectsMissingFile(t *testing.T) {
	_, err := runCLI(t, []string{"send", "/definitely/not/here.epub"}, writeTestConfig(t))
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
}
