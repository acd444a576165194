package container

import (
	"encoding/gob"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// runEnter performs the in-namespace half of Exec: join the namespace
// handles passed as fds 5 onward, report on fd 4, then run the command as
// a child so it lands in the pid namespace and relay its exit code.
func runEnter() int {
	config := os.NewFile(3, "config")
	status := os.NewFile(4, "status")

	report := func(step string, err error) {
		rep := initReport{Step: step}
		if err != nil {
			rep.Error = err.Error()
		}
		gob.NewEncoder(status).Encode(rep)
	}

	var conf enterConfig
	if err := gob.NewDecoder(config).Decode(&conf); err != nil {
		report("config", err)
		return 1
	}
	config.Close()

	runtime.LockOSThread()
	// a mount namespace refuses a joiner whose filesystem state is shared
	// with other threads
	if err := unix.Unshare(unix.CLONE_FS); err != nil {
		report("enter", err)
		return 1
	}
	for i := 0; i < conf.Count; i++ {
		if err := unix.Setns(5+i, 0); err != nil {
			report("enter", fmt.Errorf("setns fd %d: %v", 5+i, err))
			return 1
		}
	}

	if err := os.Chdir(conf.Entry.Dir); err != nil {
		report("workdir", err)
		return 1
	}

	env := conf.Entry.Env
	if !hasEnv(env, "PATH") {
		env = append(env, defaultPathEnv)
	}
	path, err := resolveEntry(conf.Entry.Path, env)
	if err != nil {
		report("exec", err)
		return 1
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   append([]string{conf.Entry.Path}, conf.Entry.Args...),
		Env:    env,
		Dir:    conf.Entry.Dir,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := cmd.Start(); err != nil {
		report("exec", err)
		return 1
	}
	report("run", nil)
	status.Close()

	waitErr := cmd.Wait()
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	if waitErr != nil {
		return 1
	}
	return 0
}
