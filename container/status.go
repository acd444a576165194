package container

import (
	"fmt"
	"syscall"
)

// ExitStatus records how the entry process ended
type ExitStatus struct {
	// Code is the exit code; 128+signal when the init was signalled
	Code int
	// Signaled is true when the init process was terminated by a signal
	Signaled bool
	// Signal is the terminating signal when Signaled
	Signal syscall.Signal
	// Forced is true when the runtime escalated to SIGKILL after the
	// grace period
	Forced bool
}

func (e ExitStatus) String() string {
	switch {
	case e.Forced && e.Signaled:
		return fmt.Sprintf("forced(%s)", e.Signal)
	case e.Signaled:
		return fmt.Sprintf("signalled(%s)", e.Signal)
	case e.Forced:
		return fmt.Sprintf("forced(exit %d)", e.Code)
	default:
		return fmt.Sprintf("exited(%d)", e.Code)
	}
}

// Status is a point-in-time view of one container
type Status struct {
	ID    string
	State State
	// Pid of the init process, present only while Running or Paused
	Pid int
	// Exit is set once the container reached Stopped
	Exit *ExitStatus
	// Output is the captured combined output when the spec set an
	// OutputLimit, available once the container stopped
	Output []byte
	// Memory is the current memory usage in bytes, best effort while
	// Running or Paused
	Memory uint64
}

func (s Status) String() string {
	if s.Exit != nil {
		return fmt.Sprintf("container[%s %s %s]", s.ID, s.State, *s.Exit)
	}
	if s.Pid > 0 {
		return fmt.Sprintf("container[%s %s pid=%d]", s.ID, s.State, s.Pid)
	}
	return fmt.Sprintf("container[%s %s]", s.ID, s.State)
}
