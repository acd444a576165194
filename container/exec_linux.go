package container

import (
	"encoding/gob"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/burrowrt/burrow/pkg/pipe"
)

// fallback output capture for exec when the spec carries no limit
const defaultExecOutput = 64 << 10

// Exec runs cmd inside the namespaces of a running container's init
// process and waits for it to finish, returning its exit status and the
// captured combined output. The command joins every namespace the init
// holds except the user namespace, which a multithreaded process cannot
// enter; it runs with the caller's credentials.
func (c *Container) Exec(cmd Command) (*ExitStatus, []byte, error) {
	const op = "exec"

	c.mu.Lock()
	st := c.state
	pid := c.pid
	c.mu.Unlock()
	if st != Running {
		return nil, nil, errKindf(InvalidState, op, c.id, "cannot exec in state %s", st)
	}
	if cmd.Path == "" {
		return nil, nil, errKindf(SpecInvalid, op, c.id, "command path is empty")
	}
	if cmd.Dir == "" {
		cmd.Dir = "/"
	}

	ns, err := openNamespaces(pid)
	if err != nil {
		return nil, nil, errKind(ProcessSpawnFailed, op, c.id, err)
	}
	defer closeAll(ns...)

	configR, configW, err := os.Pipe()
	if err != nil {
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "config pipe: %v", err)
	}
	statusR, statusW, err := os.Pipe()
	if err != nil {
		closeAll(configR, configW)
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "status pipe: %v", err)
	}

	limit := c.spec.OutputLimit
	if limit <= 0 {
		limit = defaultExecOutput
	}
	out, err := pipe.NewBuffer(limit)
	if err != nil {
		closeAll(configR, configW, statusR, statusW)
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "output buffer: %v", err)
	}

	ecmd := exec.Command("/proc/self/exe")
	ecmd.Args = []string{os.Args[0], enterArg}
	ecmd.Stdout = out.W
	ecmd.Stderr = out.W
	ecmd.ExtraFiles = append([]*os.File{configR, statusW}, ns...)

	if err := ecmd.Start(); err != nil {
		closeAll(configR, configW, statusR, statusW, out.W)
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "spawn helper: %v", err)
	}
	closeAll(configR, statusW)
	out.W.Close()

	conf := enterConfig{ID: c.id, Count: len(ns), Entry: cmd}
	encErr := gob.NewEncoder(configW).Encode(conf)
	configW.Close()
	if encErr != nil {
		ecmd.Process.Kill()
		ecmd.Wait()
		statusR.Close()
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "send config: %v", encErr)
	}

	rep, err := waitReport(statusR)
	statusR.Close()
	if err != nil {
		ecmd.Process.Kill()
		ecmd.Wait()
		return nil, nil, errKindf(ProcessSpawnFailed, op, c.id, "enter: %v", err)
	}
	if rep.Error != "" {
		ecmd.Wait()
		return nil, nil, errKindf(classifyStep(rep.Step), op, c.id, "enter %s: %s", rep.Step, rep.Error)
	}

	waitErr := ecmd.Wait()
	var es ExitStatus
	if ws, ok := ecmd.ProcessState.Sys().(syscall.WaitStatus); ok {
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
	<-out.Done
	c.log.Debug("exec finished", "path", cmd.Path, "code", es.Code)
	return &es, out.Buffer.Bytes(), nil
}

// nsJoinOrder lists the namespace handles Exec joins, in join order. The
// mount namespace comes last so the others resolve against the host proc.
var nsJoinOrder = []string{"ipc", "uts", "net", "pid", "mnt"}

// openNamespaces opens the namespace handles of pid that differ from the
// calling process's own. Namespaces the kernel does not expose are
// skipped.
func openNamespaces(pid int) ([]*os.File, error) {
	var files []*os.File
	for _, name := range nsJoinOrder {
		self, _ := os.Readlink("/proc/self/ns/" + name)
		p := fmt.Sprintf("/proc/%d/ns/%s", pid, name)
		target, err := os.Readlink(p)
		if err != nil || target == self {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll(files...)
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// Exec runs cmd inside the running container id and waits for it. See
// Container.Exec.
func (r *Registry) Exec(id string, cmd Command) (*ExitStatus, []byte, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return c.Exec(cmd)
}
