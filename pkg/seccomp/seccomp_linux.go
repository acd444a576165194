package seccomp

import (
	"fmt"

	libseccomp "github.com/elastic/go-seccomp-bpf"
)

func toAction(a Action) libseccomp.Action {
	switch a {
	case ActionAllow:
		return libseccomp.ActionAllow
	case ActionErrno:
		return libseccomp.ActionErrno
	case ActionLog:
		return libseccomp.ActionLog
	default:
		return libseccomp.ActionKillProcess
	}
}

// Supported reports whether the kernel supports seccomp filtering
func Supported() bool {
	return libseccomp.Supported()
}

// Load validates the policy and installs the filter on the current process
// along with no-new-privs; the filter is synced to all threads.
func (p *Policy) Load() error {
	if err := p.Validate(); err != nil {
		return err
	}
	var groups []libseccomp.SyscallGroup
	for _, g := range []struct {
		action libseccomp.Action
		names  []string
	}{
		{libseccomp.ActionAllow, p.Allow},
		{libseccomp.ActionErrno, p.Errno},
		{libseccomp.ActionKillProcess, p.Kill},
	} {
		if len(g.names) == 0 {
			continue
		}
		groups = append(groups, libseccomp.SyscallGroup{
			Action: g.action,
			Names:  g.names,
		})
	}
	filter := libseccomp.Filter{
		NoNewPrivs: true,
		Flag:       libseccomp.FilterFlagTSync,
		Policy: libseccomp.Policy{
			DefaultAction: toAction(p.DefaultAction),
			Syscalls:      groups,
		},
	}
	if err := libseccomp.LoadFilter(filter); err != nil {
		return fmt.Errorf("seccomp: load filter: %w", err)
	}
	return nil
}
