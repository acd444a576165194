// Package namespace defines the set of Linux isolation namespaces a
// container may request and its mapping to clone flags.
//
// All requested namespaces are created by a single clone call so there is no
// observable intermediate state. When the user namespace is part of the set
// the kernel establishes it before the sibling namespaces, so identity
// remapping is already in effect when the privileged namespace checks run.
package namespace

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is a single namespace kind
type Kind string

// Supported namespace kinds
const (
	IPC     Kind = "ipc"
	Mount   Kind = "mount"
	Network Kind = "network"
	PID     Kind = "pid"
	User    Kind = "user"
	UTS     Kind = "uts"
	Cgroup  Kind = "cgroup"
)

// Set is a set of namespace kinds requested for one container
type Set []Kind

// Default returns the namespace set used when a spec does not name one
func Default() Set {
	return Set{Mount, PID, UTS, IPC, Network}
}

// Contains reports whether k is part of the set
func (s Set) Contains(k Kind) bool {
	for _, v := range s {
		if v == k {
			return true
		}
	}
	return false
}

// With returns a set that includes k
func (s Set) With(k Kind) Set {
	if s.Contains(k) {
		return s
	}
	return append(append(Set{}, s...), k)
}

// Validate checks that every kind is known and appears once
func (s Set) Validate() error {
	seen := make(map[Kind]bool, len(s))
	for _, k := range s {
		switch k {
		case IPC, Mount, Network, PID, User, UTS, Cgroup:
		default:
			return fmt.Errorf("namespace: unknown kind %q", k)
		}
		if seen[k] {
			return fmt.Errorf("namespace: duplicated kind %q", k)
		}
		seen[k] = true
	}
	return nil
}

func (s Set) String() string {
	names := make([]string, 0, len(s))
	for _, k := range s {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return "[" + strings.Join(names, " ") + "]"
}
