package container

import (
	"os/exec"
	"path/filepath"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/burrowrt/burrow/pkg/cgroup"
	"github.com/burrowrt/burrow/pkg/pipe"
	"github.com/burrowrt/burrow/pkg/rootfs"
)

// Container is the per-container lifecycle state machine. All exported
// operations go through the Registry; a Container is never shared between
// registries.
type Container struct {
	id   string
	spec Spec
	log  hclog.Logger

	// opMu serializes lifecycle transitions (start/stop/pause/resume/
	// destroy); it may be held across blocking waits
	opMu sync.Mutex

	// mu guards the fields below; never held while blocking
	mu     sync.Mutex
	state  State
	pid    int
	cmd    *exec.Cmd
	fs     *rootfs.Handle
	cg     *cgroup.Cgroup
	out    *pipe.Buffer
	exit   *ExitStatus
	forced bool
	// exited closes once the watcher recorded the exit status
	exited chan struct{}

	stateDir string
	notify   func(Event)
}

// ID returns the immutable container identifier
func (c *Container) ID() string {
	return c.id
}

func (c *Container) rootfsDir() string {
	return filepath.Join(c.stateDir, "rootfs")
}

func cgroupName(id string) string {
	return filepath.Join("burrow", id)
}

// Status reports the current state, pid and last known exit status
func (c *Container) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		ID:    c.id,
		State: c.state,
		Pid:   c.pid,
	}
	if c.exit != nil {
		e := *c.exit
		st.Exit = &e
	}
	if c.out != nil {
		select {
		case <-c.out.Done:
			st.Output = c.out.Buffer.Bytes()
		default:
		}
	}
	if (c.state == Running || c.state == Paused) && c.cg != nil {
		if mem, err := c.cg.MemoryUsage(); err == nil {
			st.Memory = mem
		}
	}
	return st
}

// setStateLocked moves the state machine along the transition graph and
// persists the record. mu must be held.
func (c *Container) setStateLocked(to State) {
	if !canTransition(c.state, to) {
		c.log.Error("illegal state transition", "from", c.state, "to", to)
	}
	c.state = to
	c.save()
}

func (c *Container) publish(ev Event) {
	if c.notify != nil {
		c.notify(ev)
	}
}
