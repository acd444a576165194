package container

import (
	"encoding/gob"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/burrowrt/burrow/pkg/cgroup"
	"github.com/burrowrt/burrow/pkg/mount"
	"github.com/burrowrt/burrow/pkg/namespace"
	"github.com/burrowrt/burrow/pkg/pipe"
	"github.com/burrowrt/burrow/pkg/rootfs"
)

// setupTimeout bounds how long the parent waits for an init report
const setupTimeout = 30 * time.Second

// Start provisions the rootfs, creates the cgroup, spawns the
// intermediate init in fresh namespaces and releases it to run the entry
// process once it sits in the cgroup. Any failure rolls back every step
// already taken.
func (c *Container) Start() error {
	const op = "start"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	switch st {
	case Created:
	case Running, Paused:
		return errKindf(AlreadyRunning, op, c.id, "container is %s", st)
	default:
		return errKindf(InvalidState, op, c.id, "cannot start from state %s", st)
	}
	// containers recovered from disk carry no spec and only support
	// inspection and teardown
	if c.spec.Entry.Path == "" {
		return errKindf(SpecInvalid, op, c.id, "recovered container cannot be started, recreate it")
	}

	var undo []func()
	fail := func(e error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return e
	}

	fs, err := rootfs.Provision(&c.spec.Rootfs, c.rootfsDir())
	if err != nil {
		return errKind(MountFailed, op, c.id, err)
	}
	undo = append(undo, func() {
		if err := fs.Teardown(); err != nil {
			c.log.Warn("rollback rootfs", "error", err)
		}
	})

	var cg *cgroup.Cgroup
	if c.spec.Limits != nil && !c.spec.Limits.Empty() {
		cg, err = cgroup.Create(cgroupName(c.id), c.spec.Limits)
		if err != nil {
			return fail(errKind(classifyCgroup(err), op, c.id, err))
		}
		undo = append(undo, func() {
			if err := cg.Release(); err != nil {
				c.log.Warn("rollback cgroup", "error", err)
			}
		})
	}

	cmd, statusR, gateW, out, err := c.spawnInit(fs)
	if err != nil {
		return fail(errKind(ProcessSpawnFailed, op, c.id, err))
	}
	kill := func() {
		cmd.Process.Kill()
		cmd.Wait()
	}

	// first report arrives once the child finished namespace and mount
	// setup and blocks on the gate
	rep, err := waitReport(statusR)
	if err != nil {
		kill()
		statusR.Close()
		gateW.Close()
		return fail(errKindf(ProcessSpawnFailed, op, c.id, "init setup: %v", err))
	}
	if rep.Error != "" {
		kill()
		statusR.Close()
		gateW.Close()
		return fail(errKindf(classifyStep(rep.Step), op, c.id, "init %s: %s", rep.Step, rep.Error))
	}

	if cg != nil {
		if err := cg.AddProc(cmd.Process.Pid); err != nil {
			kill()
			statusR.Close()
			gateW.Close()
			return fail(errKind(classifyCgroup(err), op, c.id, err))
		}
	}

	// open the gate: the child applies rlimits and seccomp and execs the
	// entry only after this byte
	if _, err := gateW.Write([]byte{'G'}); err != nil {
		kill()
		statusR.Close()
		gateW.Close()
		return fail(errKindf(ProcessSpawnFailed, op, c.id, "gate: %v", err))
	}
	gateW.Close()

	rep, err = waitReport(statusR)
	statusR.Close()
	if err != nil {
		kill()
		return fail(errKindf(ProcessSpawnFailed, op, c.id, "init run: %v", err))
	}
	if rep.Error != "" {
		kill()
		return fail(errKindf(classifyStep(rep.Step), op, c.id, "init %s: %s", rep.Step, rep.Error))
	}

	c.mu.Lock()
	c.cmd = cmd
	c.pid = cmd.Process.Pid
	c.fs = fs
	c.cg = cg
	c.out = out
	c.exit = nil
	c.forced = false
	c.exited = make(chan struct{})
	c.setStateLocked(Running)
	c.mu.Unlock()

	c.log.Info("started", "pid", cmd.Process.Pid)
	c.publish(Event{ID: c.id, State: Running})
	go c.watch(cmd)
	return nil
}

// spawnInit re-execs the current binary as the intermediate init inside
// the spec namespaces and hands it the configuration over fd 3.
func (c *Container) spawnInit(fs *rootfs.Handle) (*exec.Cmd, *os.File, *os.File, *pipe.Buffer, error) {
	configR, configW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("start: config pipe %v", err)
	}
	statusR, statusW, err := os.Pipe()
	if err != nil {
		closeAll(configR, configW)
		return nil, nil, nil, nil, fmt.Errorf("start: status pipe %v", err)
	}
	gateR, gateW, err := os.Pipe()
	if err != nil {
		closeAll(configR, configW, statusR, statusW)
		return nil, nil, nil, nil, fmt.Errorf("start: gate pipe %v", err)
	}

	var out *pipe.Buffer
	stdout, stderr := c.spec.Stdout, c.spec.Stderr
	if stdout == nil && stderr == nil && c.spec.OutputLimit > 0 {
		out, err = pipe.NewBuffer(c.spec.OutputLimit)
		if err != nil {
			closeAll(configR, configW, statusR, statusW, gateR, gateW)
			return nil, nil, nil, nil, fmt.Errorf("start: output buffer %v", err)
		}
		stdout, stderr = out.W, out.W
	}

	cmd := exec.Command("/proc/self/exe")
	cmd.Args = []string{os.Args[0], initArg}
	cmd.Stdin = c.spec.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{configR, statusW, gateR}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: c.spec.Namespaces.CloneFlags(),
		Pdeathsig:  syscall.SIGKILL,
	}
	if c.spec.Namespaces.Contains(namespace.User) {
		cmd.SysProcAttr.UidMappings = []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Geteuid(), Size: 1},
		}
		cmd.SysProcAttr.GidMappings = []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getegid(), Size: 1},
		}
		cmd.SysProcAttr.GidMappingsEnableSetgroups = false
		cmd.SysProcAttr.AmbientCaps = []uintptr{unix.CAP_SYS_ADMIN}
	}

	if err := cmd.Start(); err != nil {
		closeAll(configR, configW, statusR, statusW, gateR, gateW)
		if out != nil {
			out.W.Close()
		}
		return nil, nil, nil, nil, fmt.Errorf("start: spawn init %v", err)
	}
	// child ends travel with the process
	closeAll(configR, statusW, gateR)
	if out != nil {
		out.W.Close()
	}

	// targets are relative to the new root; the init mounts them in order
	// before the pivot
	mb := mount.NewBuilder()
	if c.spec.Namespaces.Contains(namespace.PID) {
		mb.WithProc()
	}
	mb.WithMounts(c.spec.Mounts)

	conf := initConfig{
		ID:        c.id,
		Root:      fs.Root,
		Mounts:    mb.Mounts,
		Seccomp:   c.spec.Seccomp,
		Entry:     c.spec.Entry,
		PivotRoot: true,
	}
	// without a UTS namespace sethostname would leak to the host
	if c.spec.Namespaces.Contains(namespace.UTS) {
		conf.Hostname = c.spec.Hostname
		conf.Domainname = c.spec.Domainname
	}
	if c.spec.RLimits != nil {
		conf.RLimits = c.spec.RLimits.PrepareRLimit()
	}
	encErr := gob.NewEncoder(configW).Encode(conf)
	configW.Close()
	if encErr != nil {
		cmd.Process.Kill()
		cmd.Wait()
		closeAll(statusR, gateW)
		return nil, nil, nil, nil, fmt.Errorf("start: send config %v", encErr)
	}
	return cmd, statusR, gateW, out, nil
}

// waitReport decodes one init report off the status pipe with a deadline
func waitReport(r *os.File) (initReport, error) {
	var rep initReport
	r.SetReadDeadline(time.Now().Add(setupTimeout))
	err := gob.NewDecoder(r).Decode(&rep)
	r.SetReadDeadline(time.Time{})
	return rep, err
}

// classifyStep maps a failing init step to the error kind callers match on
func classifyStep(step string) Kind {
	switch step {
	case "mounts":
		return MountFailed
	case "rlimit", "workdir", "exec":
		return ProcessSpawnFailed
	default:
		// config, private, pivot, dev, sysfs, hostname, enter
		return NamespaceSetupFailed
	}
}

func classifyCgroup(err error) Kind {
	if os.IsPermission(err) {
		return PermissionDenied
	}
	return ResourceLimitExceeded
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		f.Close()
	}
}
