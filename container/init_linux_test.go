package container

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveEntry(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tool")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "script"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	env := []string{"PATH=" + dir}

	if got, err := resolveEntry(bin, env); err != nil || got != bin {
		t.Errorf("resolveEntry(abs) = %q, %v", got, err)
	}
	if got, err := resolveEntry("tool", env); err != nil || got != bin {
		t.Errorf("resolveEntry(bare) = %q, %v", got, err)
	}
	if _, err := resolveEntry("missing", env); err == nil {
		t.Errorf("missing binary resolved")
	}
	if _, err := resolveEntry(filepath.Join(dir, "nothing"), env); err == nil {
		t.Errorf("missing absolute path resolved")
	}
	if _, err := resolveEntry("script", env); err == nil {
		t.Errorf("non-executable file resolved")
	}
	if _, err := resolveEntry(dir, env); err == nil {
		t.Errorf("directory resolved")
	}
}

func TestEntryEnv(t *testing.T) {
	conf := initConfig{ID: "c1", Hostname: "box"}
	conf.Entry.Env = []string{"PATH=/custom", "FOO=bar"}
	env := entryEnv(&conf)
	joined := strings.Join(env, "\n")
	for _, want := range []string{"PATH=/custom", "HOSTNAME=box", "HOME=/root", "container=burrow", "container_uuid=c1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("env missing %q: %v", want, env)
		}
	}
	if strings.Contains(joined, defaultPathEnv) {
		t.Errorf("spec PATH overridden: %v", env)
	}
}
