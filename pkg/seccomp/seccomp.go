// Package seccomp defines an optional syscall policy for a container,
// loaded by the init process right before the entry command executes.
package seccomp

import (
	"fmt"
)

// Action is the policy decision for a syscall group
type Action string

// Available actions
const (
	ActionAllow Action = "allow"
	ActionErrno Action = "errno"
	ActionKill  Action = "kill"
	ActionLog   Action = "log"
)

// Policy describes the filter for one container. Syscalls are referred to by
// name; the default action applies to everything not named.
type Policy struct {
	DefaultAction Action
	Allow         []string
	Errno         []string
	Kill          []string
}

// Validate checks the default action and that the groups do not overlap
func (p *Policy) Validate() error {
	switch p.DefaultAction {
	case ActionAllow, ActionErrno, ActionKill, ActionLog:
	default:
		return fmt.Errorf("seccomp: unknown default action %q", p.DefaultAction)
	}
	seen := make(map[string]Action)
	for _, g := range []struct {
		action Action
		names  []string
	}{
		{ActionAllow, p.Allow},
		{ActionErrno, p.Errno},
		{ActionKill, p.Kill},
	} {
		for _, name := range g.names {
			if prev, ok := seen[name]; ok && prev != g.action {
				return fmt.Errorf("seccomp: syscall %q in both %s and %s groups", name, prev, g.action)
			}
			seen[name] = g.action
		}
	}
	return nil
}

func (p *Policy) String() string {
	return fmt.Sprintf("seccomp[default=%s allow=%d errno=%d kill=%d]",
		p.DefaultAction, len(p.Allow), len(p.Errno), len(p.Kill))
}
