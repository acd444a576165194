package cgroup

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
)

const (
	basePath             = "/sys/fs/cgroup"
	cgroupProcs          = "cgroup.procs"
	cgroupControllers    = "cgroup.controllers"
	cgroupSubtreeControl = "cgroup.subtree_control"

	filePerm = 0644
	dirPerm  = 0755

	// v1 cpu.cfs_period_us the quota applies to
	cfsPeriodUs = 100000
)

var v1Controllers = []string{"cpu", "memory", "pids", "freezer"}

var v2Controllers = []string{"cpu", "memory", "pids"}

// Cgroup is the ownership token for one container resource limit group
type Cgroup struct {
	name string
	v2   bool

	mu       sync.Mutex
	paths    []string // v2: single dir; v1: one dir per controller
	released bool
}

// DetectV2 reports whether the unified v2 hierarchy is mounted
func DetectV2() bool {
	_, err := os.Stat(path.Join(basePath, cgroupControllers))
	return err == nil
}

// v2ControlMessage builds the cgroup.subtree_control line enabling the
// controllers limits use, restricted to the ones the parent offers.
func v2ControlMessage(available []string) []byte {
	msg := make([]string, 0, len(v2Controllers))
	for _, c := range v2Controllers {
		for _, a := range available {
			if a == c {
				msg = append(msg, "+"+c)
				break
			}
		}
	}
	if len(msg) == 0 {
		return nil
	}
	return []byte(strings.Join(msg, " "))
}

// enableSubtree grants the controllers to the children of dir. Writing a
// controller that is already granted succeeds.
func enableSubtree(dir string) error {
	b, err := readFile(path.Join(dir, cgroupControllers))
	if err != nil {
		return fmt.Errorf("cgroup: controllers of %s: %w", dir, err)
	}
	msg := v2ControlMessage(strings.Fields(string(b)))
	if msg == nil {
		return nil
	}
	if err := writeFile(path.Join(dir, cgroupSubtreeControl), msg, filePerm); err != nil {
		return fmt.Errorf("cgroup: enable controllers in %s: %w", dir, err)
	}
	return nil
}

// Recover rebuilds the token for an existing group so a new process can
// release a group created before a restart. Directories that no longer
// exist are skipped.
func Recover(name string) *Cgroup {
	c := &Cgroup{name: name, v2: DetectV2()}
	if c.v2 {
		p := path.Join(basePath, name)
		if _, err := os.Stat(p); err == nil {
			c.paths = []string{p}
		}
		return c
	}
	for _, ctrl := range v1Controllers {
		p := path.Join(basePath, ctrl, name)
		if _, err := os.Stat(p); err == nil {
			c.paths = append(c.paths, p)
		}
	}
	return c
}

// Create builds the limit group named name and applies l. On failure any
// directory created during this attempt is removed.
func Create(name string, l *Limits) (cg *Cgroup, err error) {
	c := &Cgroup{name: name, v2: DetectV2()}
	defer func() {
		if err != nil {
			c.Release()
		}
	}()
	if c.v2 {
		err = c.createV2(l)
	} else {
		err = c.createV1(l)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cgroup) createV2(l *Limits) error {
	// a child only exposes controller files once every ancestor grants
	// the controllers through cgroup.subtree_control, so walk the levels
	// enabling each parent before creating its child
	p := basePath
	for _, e := range strings.Split(c.name, "/") {
		if err := enableSubtree(p); err != nil {
			return err
		}
		p = path.Join(p, e)
		if err := os.Mkdir(p, dirPerm); err != nil && !os.IsExist(err) {
			return fmt.Errorf("cgroup: create %s: %w", p, err)
		}
	}
	c.paths = []string{p}
	if l.Empty() {
		return nil
	}
	if l.CPUShares > 0 {
		if err := writeUint(p, "cpu.weight", v2CPUWeight(l.CPUShares)); err != nil {
			return err
		}
	}
	if l.CPUQuotaUs > 0 {
		content := strconv.FormatUint(l.CPUQuotaUs, 10) + " " + strconv.Itoa(cfsPeriodUs)
		if err := writeFile(path.Join(p, "cpu.max"), []byte(content), filePerm); err != nil {
			return fmt.Errorf("cgroup: cpu.max: %w", err)
		}
	}
	if l.Memory > 0 {
		if err := writeUint(p, "memory.max", uint64(l.Memory)); err != nil {
			return err
		}
	}
	if l.Pids > 0 {
		if err := writeUint(p, "pids.max", uint64(l.Pids)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cgroup) createV1(l *Limits) error {
	for _, ctrl := range v1Controllers {
		p := path.Join(basePath, ctrl, c.name)
		if err := os.MkdirAll(p, dirPerm); err != nil {
			return fmt.Errorf("cgroup: create %s: %w", p, err)
		}
		c.paths = append(c.paths, p)
	}
	if l.Empty() {
		return nil
	}
	cpu := path.Join(basePath, "cpu", c.name)
	if l.CPUShares > 0 {
		if err := writeUint(cpu, "cpu.shares", l.CPUShares); err != nil {
			return err
		}
	}
	if l.CPUQuotaUs > 0 {
		if err := writeUint(cpu, "cpu.cfs_period_us", cfsPeriodUs); err != nil {
			return err
		}
		if err := writeUint(cpu, "cpu.cfs_quota_us", l.CPUQuotaUs); err != nil {
			return err
		}
	}
	if l.Memory > 0 {
		if err := writeUint(path.Join(basePath, "memory", c.name), "memory.limit_in_bytes", uint64(l.Memory)); err != nil {
			return err
		}
	}
	if l.Pids > 0 {
		if err := writeUint(path.Join(basePath, "pids", c.name), "pids.max", uint64(l.Pids)); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the primary cgroup directory, used for persisted state
func (c *Cgroup) Path() string {
	if len(c.paths) == 0 {
		return ""
	}
	return c.paths[0]
}

// AddProc attaches pid to the limit group (all controllers on v1)
func (c *Cgroup) AddProc(pid int) error {
	for _, p := range c.paths {
		if err := writeUint(p, cgroupProcs, uint64(pid)); err != nil {
			return err
		}
	}
	return nil
}

// Freeze suspends every process in the group
func (c *Cgroup) Freeze() error {
	if c.v2 {
		return writeUint(c.Path(), "cgroup.freeze", 1)
	}
	return writeFile(path.Join(basePath, "freezer", c.name, "freezer.state"), []byte("FROZEN"), filePerm)
}

// Thaw resumes a frozen group
func (c *Cgroup) Thaw() error {
	if c.v2 {
		return writeUint(c.Path(), "cgroup.freeze", 0)
	}
	return writeFile(path.Join(basePath, "freezer", c.name, "freezer.state"), []byte("THAWED"), filePerm)
}

// MemoryUsage reads the current memory usage of the group in bytes
func (c *Cgroup) MemoryUsage() (uint64, error) {
	if c.v2 {
		return readUint(c.Path(), "memory.current")
	}
	return readUint(path.Join(basePath, "memory", c.name), "memory.usage_in_bytes")
}

// Release removes the limit group directories. Directories already gone
// count as success; step failures are collected but do not stop the
// remaining steps. Release is idempotent.
func (c *Cgroup) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	var merr *multierror.Error
	for _, p := range c.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			merr = multierror.Append(merr, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}
	c.released = true
	return nil
}

func writeUint(dir, name string, i uint64) error {
	if err := writeFile(path.Join(dir, name), []byte(strconv.FormatUint(i, 10)), filePerm); err != nil {
		return fmt.Errorf("cgroup: %s: %w", name, err)
	}
	return nil
}

func readUint(dir, name string) (uint64, error) {
	b, err := readFile(path.Join(dir, name))
	if err != nil {
		return 0, fmt.Errorf("cgroup: %s: %w", name, err)
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}
