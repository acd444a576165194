package namespace

import "golang.org/x/sys/unix"

var cloneFlag = map[Kind]uintptr{
	IPC:     unix.CLONE_NEWIPC,
	Mount:   unix.CLONE_NEWNS,
	Network: unix.CLONE_NEWNET,
	PID:     unix.CLONE_NEWPID,
	User:    unix.CLONE_NEWUSER,
	UTS:     unix.CLONE_NEWUTS,
	Cgroup:  unix.CLONE_NEWCGROUP,
}

// CloneFlags returns the combined clone flags for the set
func (s Set) CloneFlags() uintptr {
	var flags uintptr
	for _, k := range s {
		flags |= cloneFlag[k]
	}
	return flags
}
