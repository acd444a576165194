package container

import (
	"os/exec"
	"syscall"
)

// watch owns cmd.Wait for the init process. It is the single writer of
// the exit status; stop and destroy only observe the exited channel.
func (c *Container) watch(cmd *exec.Cmd) {
	waitErr := cmd.Wait()

	var es ExitStatus
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			es.Signaled = true
			es.Signal = ws.Signal()
			es.Code = 128 + int(ws.Signal())
		} else {
			es.Code = ws.ExitStatus()
		}
	} else if waitErr != nil {
		es.Code = -1
	}

	c.mu.Lock()
	es.Forced = c.forced
	c.exit = &es
	c.pid = 0
	if c.state == Running || c.state == Paused {
		c.setStateLocked(Stopped)
	}
	close(c.exited)
	c.mu.Unlock()

	c.log.Info("exited", "status", es.String())
	c.publish(Event{ID: c.id, State: Stopped, Exit: &es})
}
