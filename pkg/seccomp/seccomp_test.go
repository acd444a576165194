package seccomp

import (
	"strings"
	"testing"
)

func TestPolicy_Validate(t *testing.T) {
	p := &Policy{DefaultAction: ActionAllow, Errno: []string{"mount", "umount2"}}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := &Policy{DefaultAction: Action("deny")}
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for unknown default action")
	}

	overlap := &Policy{
		DefaultAction: ActionAllow,
		Errno:         []string{"mount"},
		Kill:          []string{"mount"},
	}
	if err := overlap.Validate(); err == nil {
		t.Errorf("expected error for overlapping groups")
	}
}

func TestPolicy_String(t *testing.T) {
	p := &Policy{DefaultAction: ActionAllow, Kill: []string{"reboot"}}
	s := p.String()
	if !strings.Contains(s, "default=allow") || !strings.Contains(s, "kill=1") {
		t.Errorf("unexpected string: %s", s)
	}
}
