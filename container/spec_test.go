package container

import (
	"errors"
	"syscall"
	"testing"

	"github.com/burrowrt/burrow/pkg/namespace"
	"github.com/burrowrt/burrow/pkg/rootfs"
)

func validSpec() Spec {
	return Spec{
		Entry:  Command{Path: "/bin/true"},
		Rootfs: rootfs.Descriptor{Tmpfs: &rootfs.Tmpfs{SizeLimit: 1 << 20}},
	}
}

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty entry", func(s *Spec) { s.Entry.Path = "" }},
		{"slash in id", func(s *Spec) { s.ID = "a/b" }},
		{"dot id", func(s *Spec) { s.ID = "." }},
		{"no rootfs", func(s *Spec) { s.Rootfs = rootfs.Descriptor{} }},
		{"both rootfs", func(s *Spec) {
			s.Rootfs.Overlay = &rootfs.Overlay{LowerDirs: []string{"/l"}, UpperDir: "/u", WorkDir: "/w"}
		}},
		{"bad namespace", func(s *Spec) { s.Namespaces = namespace.Set{"bogus"} }},
		{"negative grace", func(s *Spec) { s.GracePeriod = -1 }},
		{"negative output limit", func(s *Spec) { s.OutputLimit = -1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := validSpec().withDefaults("test-id")
			c.mutate(&s)
			err := s.validate()
			if err == nil {
				t.Fatalf("validate() = nil, want error")
			}
			if !errors.Is(err, SpecInvalid) {
				t.Errorf("validate() kind = %v, want SpecInvalid", err)
			}
		})
	}
	s := validSpec().withDefaults("test-id")
	if err := s.validate(); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}

func TestSpecDefaults(t *testing.T) {
	s := validSpec().withDefaults("0123456789abcdef")
	if s.ID != "0123456789abcdef" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Hostname != "0123456789ab" {
		t.Errorf("Hostname = %q, want first 12 chars of id", s.Hostname)
	}
	if !s.Namespaces.Contains(namespace.Mount) || !s.Namespaces.Contains(namespace.PID) {
		t.Errorf("default namespaces missing mount or pid: %v", s.Namespaces)
	}
	if s.StopSignal != syscall.SIGTERM {
		t.Errorf("StopSignal = %v, want SIGTERM", s.StopSignal)
	}
	if s.GracePeriod != defaultGracePeriod {
		t.Errorf("GracePeriod = %v", s.GracePeriod)
	}
	if s.Entry.Dir != "/" {
		t.Errorf("Entry.Dir = %q", s.Entry.Dir)
	}
}

func TestSpecDefaultsKeepMountNamespace(t *testing.T) {
	s := validSpec()
	s.Namespaces = namespace.Set{namespace.UTS}
	s = s.withDefaults("id")
	if !s.Namespaces.Contains(namespace.Mount) {
		t.Errorf("mount namespace not enforced: %v", s.Namespaces)
	}
	if s.Namespaces.Contains(namespace.Network) {
		t.Errorf("explicit namespace set grew extra entries: %v", s.Namespaces)
	}
}

func TestShortIDHostname(t *testing.T) {
	s := validSpec().withDefaults("abc")
	if s.Hostname != "abc" {
		t.Errorf("Hostname = %q, want %q", s.Hostname, "abc")
	}
}
