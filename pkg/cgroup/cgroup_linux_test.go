package cgroup

import (
	"fmt"
	"os"
	"testing"
)

func TestCreateRelease(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("test needs root")
	}
	name := fmt.Sprintf("burrow-test-%d", os.Getpid())
	c, err := Create(name, &Limits{Pids: 16, Memory: 64 << 20})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Path() == "" {
		t.Errorf("empty cgroup path")
	}
	if err := c.AddProc(os.Getpid()); err != nil {
		t.Errorf("add proc: %v", err)
	}
	// move back out before rmdir
	root := &Cgroup{v2: c.v2, paths: rootProcsPaths(c.v2)}
	if err := root.AddProc(os.Getpid()); err != nil {
		t.Fatalf("detach proc: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func rootProcsPaths(v2 bool) []string {
	if v2 {
		return []string{basePath}
	}
	ps := make([]string, 0, len(v1Controllers))
	for _, ctrl := range v1Controllers {
		ps = append(ps, basePath+"/"+ctrl)
	}
	return ps
}
