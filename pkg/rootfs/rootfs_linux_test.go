package rootfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProvision_MissingLowerLayer(t *testing.T) {
	base := t.TempDir()
	lower := filepath.Join(base, "lower")
	if err := os.Mkdir(lower, 0755); err != nil {
		t.Fatal(err)
	}
	d := &Descriptor{Overlay: &Overlay{
		LowerDirs: []string{lower, filepath.Join(base, "missing")},
	}}
	dir := filepath.Join(base, "scratch")
	if _, err := Provision(d, dir); err == nil {
		t.Fatalf("expected error for missing lower layer")
	}
	// full rollback: nothing of this attempt is left behind
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir left behind after failed provisioning")
	}
}

func TestProvisionTeardown_Overlay(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("test needs root")
	}
	base := t.TempDir()
	lowA := filepath.Join(base, "a")
	lowB := filepath.Join(base, "b")
	for _, p := range []string{lowA, lowB} {
		if err := os.Mkdir(p, 0755); err != nil {
			t.Fatal(err)
		}
	}
	// same file in both layers: B (higher) must win
	if err := os.WriteFile(filepath.Join(lowA, "f"), []byte("from-a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lowB, "f"), []byte("from-b"), 0644); err != nil {
		t.Fatal(err)
	}

	d := &Descriptor{Overlay: &Overlay{LowerDirs: []string{lowA, lowB}}}
	dir := filepath.Join(base, "scratch")
	h, err := Provision(d, dir)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(h.Root, "f"))
	if err != nil {
		t.Fatalf("read merged file: %v", err)
	}
	if string(got) != "from-b" {
		t.Errorf("merged file = %q, want %q", got, "from-b")
	}

	// a write lands in the upper layer and wins afterwards
	if err := os.WriteFile(filepath.Join(h.Root, "f"), []byte("from-u"), 0644); err != nil {
		t.Fatalf("write merged file: %v", err)
	}
	got, _ = os.ReadFile(filepath.Join(h.Root, "f"))
	if string(got) != "from-u" {
		t.Errorf("merged file after write = %q, want %q", got, "from-u")
	}
	lowGot, _ := os.ReadFile(filepath.Join(lowB, "f"))
	if string(lowGot) != "from-b" {
		t.Errorf("lower layer modified by write: %q", lowGot)
	}

	if err := h.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if err := h.Teardown(); err != nil {
		t.Errorf("second teardown: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir left behind after teardown")
	}
}

func TestProvisionTeardown_Tmpfs(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("test needs root")
	}
	base := t.TempDir()
	d := &Descriptor{Tmpfs: &Tmpfs{SizeLimit: 1 << 20}}
	h, err := Provision(d, filepath.Join(base, "scratch"))
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := os.WriteFile(filepath.Join(h.Root, "f"), []byte("x"), 0644); err != nil {
		t.Errorf("write to tmpfs root: %v", err)
	}
	if err := h.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
}
