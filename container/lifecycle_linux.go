package container

import (
	"errors"
	"os"
	"syscall"
	"time"

	multierror "github.com/hashicorp/go-multierror"
)

// signal delivers sig to the init process, tolerating one that is already
// gone. The exec.Cmd process handle is reap safe; recovered containers
// carry only a pid, so the exited channel is checked first to narrow the
// window for hitting a recycled pid.
func (c *Container) signal(sig syscall.Signal) error {
	c.mu.Lock()
	var proc *os.Process
	if c.cmd != nil {
		proc = c.cmd.Process
	}
	pid := c.pid
	exited := c.exited
	c.mu.Unlock()

	if proc != nil {
		if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}
	if pid == 0 {
		return nil
	}
	if err := syscall.Kill(pid, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// Stop signals the init process with the spec stop signal and waits up to
// grace for a voluntary exit before escalating to SIGKILL. A zero or
// negative grace falls back to the spec grace period. Stopping an already
// stopped container is a no-op.
func (c *Container) Stop(grace time.Duration) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop(grace)
}

// stop implements Stop with opMu held so Destroy can reuse it.
func (c *Container) stop(grace time.Duration) error {
	const op = "stop"
	c.mu.Lock()
	st := c.state
	pid := c.pid
	exited := c.exited
	c.mu.Unlock()

	switch st {
	case Running, Paused:
	case Stopped:
		return nil
	default:
		return errKindf(InvalidState, op, c.id, "cannot stop from state %s", st)
	}

	// a frozen container cannot act on the signal
	if st == Paused {
		if err := c.thaw(); err != nil {
			c.log.Warn("thaw before stop", "error", err)
		}
	}

	if grace <= 0 {
		grace = c.spec.GracePeriod
	}
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	// recovered containers carry no spec
	sig := c.spec.StopSignal
	if sig == 0 {
		sig = syscall.SIGTERM
	}
	if err := c.signal(sig); err != nil {
		return errKindf(InvalidState, op, c.id, "signal %s: %v", sig, err)
	}

	select {
	case <-exited:
	case <-time.After(grace):
		c.mu.Lock()
		c.forced = true
		c.mu.Unlock()
		c.log.Warn("grace period expired, killing", "pid", pid)
		c.signal(syscall.SIGKILL)
		<-exited
	}
	return nil
}

// Pause freezes every process in the container. With a cgroup this uses
// the freezer; otherwise the init process is stopped with SIGSTOP and
// relied on to hold no other processes.
func (c *Container) Pause() error {
	const op = "pause"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st := c.state
	cg := c.cg
	c.mu.Unlock()

	switch st {
	case Paused:
		return nil
	case Running:
	default:
		return errKindf(InvalidState, op, c.id, "cannot pause from state %s", st)
	}

	if cg != nil {
		if err := cg.Freeze(); err != nil {
			return errKind(classifyCgroup(err), op, c.id, err)
		}
	} else if err := c.signal(syscall.SIGSTOP); err != nil {
		return errKindf(InvalidState, op, c.id, "SIGSTOP: %v", err)
	}

	c.mu.Lock()
	if c.state == Running {
		c.setStateLocked(Paused)
	}
	c.mu.Unlock()
	c.publish(Event{ID: c.id, State: Paused})
	return nil
}

// Resume thaws a paused container.
func (c *Container) Resume() error {
	const op = "resume"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	switch st {
	case Running:
		return nil
	case Paused:
	default:
		return errKindf(InvalidState, op, c.id, "cannot resume from state %s", st)
	}

	if err := c.thaw(); err != nil {
		return errKind(classifyCgroup(err), op, c.id, err)
	}

	c.mu.Lock()
	if c.state == Paused {
		c.setStateLocked(Running)
	}
	c.mu.Unlock()
	c.publish(Event{ID: c.id, State: Running})
	return nil
}

func (c *Container) thaw() error {
	c.mu.Lock()
	cg := c.cg
	c.mu.Unlock()
	if cg != nil {
		return cg.Thaw()
	}
	return c.signal(syscall.SIGCONT)
}

// Destroy stops the container if needed, releases the cgroup, the rootfs
// mounts and the persisted state, and completes the transition to
// Destroyed even when teardown steps fail; leftovers are reported
// together as TeardownPartialFailure. Destroying a destroyed container is
// a no-op.
func (c *Container) Destroy() error {
	const op = "destroy"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	if st == Destroyed {
		return nil
	}
	if st == Running || st == Paused {
		if err := c.stop(0); err != nil {
			return err
		}
	}

	c.mu.Lock()
	fs := c.fs
	cg := c.cg
	c.mu.Unlock()

	var merr *multierror.Error
	if cg != nil {
		if err := cg.Release(); err != nil {
			merr = multierror.Append(merr, err)
		} else {
			c.mu.Lock()
			c.cg = nil
			c.mu.Unlock()
		}
	}
	if fs != nil {
		if err := fs.Teardown(); err != nil {
			merr = multierror.Append(merr, err)
		} else {
			c.mu.Lock()
			c.fs = nil
			c.mu.Unlock()
		}
	}
	if err := os.RemoveAll(c.stateDir); err != nil {
		merr = multierror.Append(merr, err)
	}

	c.mu.Lock()
	c.setStateLocked(Destroyed)
	c.mu.Unlock()
	c.publish(Event{ID: c.id, State: Destroyed})

	if err := merr.ErrorOrNil(); err != nil {
		c.log.Warn("destroyed with leftover resources", "error", err)
		return errKind(TeardownPartialFailure, op, c.id, err)
	}
	c.log.Info("destroyed")
	return nil
}
