package container

import (
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/burrowrt/burrow/pkg/cgroup"
	"github.com/burrowrt/burrow/pkg/mount"
	"github.com/burrowrt/burrow/pkg/namespace"
	"github.com/burrowrt/burrow/pkg/rlimit"
	"github.com/burrowrt/burrow/pkg/rootfs"
	"github.com/burrowrt/burrow/pkg/seccomp"
)

// default grace period for stop when the spec does not name one
const defaultGracePeriod = 10 * time.Second

// Command is the entry process of a container
type Command struct {
	// Path is the executable path inside the container
	Path string
	// Args are the arguments passed to the entry process (argv[1:])
	Args []string
	// Env are the environment variables; runtime defaults are appended
	Env []string
	// Dir is the working directory inside the container, default "/"
	Dir string
}

// Spec is the fully resolved configuration of one container, immutable
// after Create.
type Spec struct {
	// ID is the caller chosen identifier; generated when empty
	ID string

	Entry Command

	// Hostname defaults to the first 12 characters of the id
	Hostname   string
	Domainname string

	// Namespaces defaults to mount+pid+uts+ipc+network; the mount
	// namespace is always included since the rootfs switch requires it
	Namespaces namespace.Set

	// Rootfs selects and configures the root filesystem backend
	Rootfs rootfs.Descriptor

	// Mounts are extra bind/tmpfs mounts inside the rootfs, targets
	// relative to the container root
	Mounts []mount.Mount

	// Limits are optional cgroup limits
	Limits *cgroup.Limits

	// RLimits are optional per-process setrlimit limits
	RLimits *rlimit.RLimits

	// Seccomp is an optional syscall policy loaded before the entry runs
	Seccomp *seccomp.Policy

	// StopSignal is sent on Stop, default SIGTERM
	StopSignal syscall.Signal
	// GracePeriod bounds the wait for voluntary exit before SIGKILL
	GracePeriod time.Duration

	// Stdio of the init process; nil reads from and writes to /dev/null
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// OutputLimit captures combined output up to this many bytes when no
	// Stdout/Stderr writer is set
	OutputLimit int64
}

func (s *Spec) validate() error {
	const op = "create"
	if s.Entry.Path == "" {
		return errKindf(SpecInvalid, op, s.ID, "entry command is empty")
	}
	if strings.ContainsAny(s.ID, "/\x00") || s.ID == "." || s.ID == ".." {
		return errKindf(SpecInvalid, op, s.ID, "id %q is not a valid identifier", s.ID)
	}
	if err := s.Rootfs.Validate(); err != nil {
		return errKind(SpecInvalid, op, s.ID, err)
	}
	if err := s.Namespaces.Validate(); err != nil {
		return errKind(SpecInvalid, op, s.ID, err)
	}
	if s.Seccomp != nil {
		if err := s.Seccomp.Validate(); err != nil {
			return errKind(SpecInvalid, op, s.ID, err)
		}
	}
	if s.GracePeriod < 0 {
		return errKindf(SpecInvalid, op, s.ID, "negative grace period")
	}
	if s.OutputLimit < 0 {
		return errKindf(SpecInvalid, op, s.ID, "negative output limit")
	}
	return nil
}

// withDefaults fills the unset spec fields once the id is known
func (s Spec) withDefaults(id string) Spec {
	s.ID = id
	if len(s.Namespaces) == 0 {
		s.Namespaces = namespace.Default()
	}
	s.Namespaces = s.Namespaces.With(namespace.Mount)
	if s.Hostname == "" {
		if len(id) > 12 {
			s.Hostname = id[:12]
		} else {
			s.Hostname = id
		}
	}
	if s.StopSignal == 0 {
		s.StopSignal = syscall.SIGTERM
	}
	if s.GracePeriod == 0 {
		s.GracePeriod = defaultGracePeriod
	}
	if s.Entry.Dir == "" {
		s.Entry.Dir = "/"
	}
	return s
}
