package container

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/burrowrt/burrow/pkg/cgroup"
	"github.com/burrowrt/burrow/pkg/rootfs"
)

// recover rebuilds containers persisted by a previous process. Containers
// whose init died while no runtime was watching are demoted to Stopped;
// their mounts and cgroups stay held until Destroy.
func (r *Registry) recover() error {
	entries, err := os.ReadDir(r.stateDir)
	if err != nil {
		return fmt.Errorf("registry: recover %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.stateDir, e.Name())
		rec, err := readStateRecord(dir)
		if err != nil {
			r.log.Warn("skipping unreadable state", "dir", dir, "error", err)
			continue
		}
		st, ok := parseState(rec.State)
		if !ok {
			r.log.Warn("skipping unknown state", "dir", dir, "state", rec.State)
			continue
		}
		c := &Container{
			id:       rec.ID,
			log:      r.log.With("id", rec.ID),
			state:    st,
			pid:      rec.Pid,
			exit:     rec.Exit,
			stateDir: dir,
			notify:   r.publish,
		}
		if rec.RootfsRoot != "" {
			c.fs = rootfs.Recover(rec.RootfsRoot, rec.RootfsMounts, rec.RootfsScratch)
		}
		if rec.CgroupName != "" {
			c.cg = cgroup.Recover(rec.CgroupName)
		}
		if st == Running || st == Paused {
			if pidAlive(rec.Pid) {
				c.exited = make(chan struct{})
				go c.watchPid(rec.Pid)
			} else {
				c.state = Stopped
				c.pid = 0
				c.mu.Lock()
				c.save()
				c.mu.Unlock()
				r.log.Info("recovered container already exited", "id", rec.ID)
			}
		}
		r.containers[rec.ID] = c
		r.log.Debug("recovered", "id", rec.ID, "state", c.state)
	}
	return nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

// watchPid polls a recovered init process that is not our child, so
// cmd.Wait is not available. The exit code is unobservable this way.
func (c *Container) watchPid(pid int) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for range t.C {
		if !pidAlive(pid) {
			break
		}
	}
	es := ExitStatus{Code: -1}
	c.mu.Lock()
	es.Forced = c.forced
	c.exit = &es
	c.pid = 0
	if c.state == Running || c.state == Paused {
		c.setStateLocked(Stopped)
	}
	close(c.exited)
	c.mu.Unlock()
	c.publish(Event{ID: c.id, State: Stopped, Exit: &es})
}
