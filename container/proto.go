package container

import (
	"github.com/burrowrt/burrow/pkg/mount"
	"github.com/burrowrt/burrow/pkg/rlimit"
	"github.com/burrowrt/burrow/pkg/seccomp"
)

// initArg marks the re-exec of the host binary as the intermediate init
const initArg = "burrow-init"

// enterArg marks the re-exec of the host binary as an exec helper that
// joins the namespaces of a running container
const enterArg = "burrow-enter"

const defaultPathEnv = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// initConfig travels parent to child over the config pipe (fd 3) as a
// single gob value before any setup work starts.
type initConfig struct {
	ID         string
	Root       string
	Hostname   string
	Domainname string
	Mounts     []mount.Mount
	RLimits    []rlimit.RLimit
	Seccomp    *seccomp.Policy
	Entry      Command
	PivotRoot  bool
}

// enterConfig travels parent to helper over the config pipe (fd 3). The
// namespace handles to join follow the status pipe as fds 5 onward, Count
// of them, in join order.
type enterConfig struct {
	ID    string
	Count int
	Entry Command
}

// initReport travels child to parent over the status pipe (fd 4). Step
// names the setup phase so the parent can classify the failure; an empty
// Error means setup succeeded up to the gate.
type initReport struct {
	Step  string
	Error string
}
