package container

import (
	"encoding/gob"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/burrowrt/burrow/pkg/mount"
)

// Init checks whether the current process is a re-exec of the host binary
// acting as a container init or exec helper and, if so, runs that sequence
// and never returns. It must be called at the top of main before any flag
// parsing or goroutine creation.
func Init() {
	if len(os.Args) != 2 {
		return
	}
	switch os.Args[1] {
	case initArg:
		os.Exit(runInit())
	case enterArg:
		os.Exit(runEnter())
	}
}

// runInit performs the in-namespace half of Start: read the config off
// fd 3, set up mounts and the rootfs switch, report on fd 4, wait for the
// gate on fd 5, then exec the entry process.
func runInit() int {
	config := os.NewFile(3, "config")
	status := os.NewFile(4, "status")
	gate := os.NewFile(5, "gate")

	report := func(step string, err error) {
		rep := initReport{Step: step}
		if err != nil {
			rep.Error = err.Error()
		}
		gob.NewEncoder(status).Encode(rep)
	}

	var conf initConfig
	if err := gob.NewDecoder(config).Decode(&conf); err != nil {
		report("config", err)
		return 1
	}
	config.Close()

	if err := setupRootfs(&conf); err != nil {
		report(err.step, err.err)
		return 1
	}

	if conf.Hostname != "" {
		if err := syscall.Sethostname([]byte(conf.Hostname)); err != nil {
			report("hostname", err)
			return 1
		}
	}
	if conf.Domainname != "" {
		if err := syscall.Setdomainname([]byte(conf.Domainname)); err != nil {
			report("hostname", err)
			return 1
		}
	}

	if err := os.Chdir(conf.Entry.Dir); err != nil {
		report("workdir", err)
		return 1
	}

	report("setup", nil)

	// hold here until the parent placed us in the cgroup
	b := make([]byte, 1)
	if n, err := gate.Read(b); n != 1 || err != nil {
		// parent gave up
		return 1
	}
	gate.Close()

	for _, r := range conf.RLimits {
		if err := r.Apply(); err != nil {
			report("rlimit", fmt.Errorf("%v: %v", r, err))
			return 1
		}
	}

	argv := append([]string{conf.Entry.Path}, conf.Entry.Args...)
	env := entryEnv(&conf)

	// resolve and verify the entry binary now; an exec failure after the
	// run report would be invisible to the parent
	entry, err := resolveEntry(conf.Entry.Path, env)
	if err != nil {
		report("exec", err)
		return 1
	}

	// no failure can be reported past this point
	report("run", nil)
	status.Close()

	if conf.Seccomp != nil {
		if err := conf.Seccomp.Load(); err != nil {
			return 126
		}
	}
	if err := unix.Exec(entry, argv, env); err != nil {
		return 127
	}
	return 0
}

// resolveEntry locates the entry binary, searching the entry PATH for a
// bare name, and verifies it is executable.
func resolveEntry(name string, env []string) (string, error) {
	if strings.Contains(name, "/") {
		if err := findExecutable(name); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return name, nil
	}
	for _, e := range env {
		if !strings.HasPrefix(e, "PATH=") {
			continue
		}
		for _, dir := range filepath.SplitList(e[len("PATH="):]) {
			if dir == "" {
				dir = "."
			}
			p := filepath.Join(dir, name)
			if findExecutable(p) == nil {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

type initError struct {
	step string
	err  error
}

// setupRootfs makes the mount tree private, populates dev, sys and the
// mount plan composed by the parent under the new root, then pivots into
// it.
func setupRootfs(conf *initConfig) *initError {
	if err := syscall.Mount("", "/", "", syscall.MS_REC|syscall.MS_PRIVATE, ""); err != nil {
		return &initError{"private", err}
	}

	root := conf.Root
	if err := setupDev(root); err != nil {
		return &initError{"dev", err}
	}
	// sysfs fails in a user namespace without a network namespace; the
	// container works without it
	sys := mount.Mount{Source: "sysfs", Target: filepath.Join(root, "sys"), FsType: "sysfs", Flags: syscall.MS_RDONLY}
	sys.Mount()

	for _, m := range conf.Mounts {
		m.Target = filepath.Join(root, m.Target)
		if err := m.Mount(); err != nil {
			return &initError{"mounts", err}
		}
	}

	if conf.PivotRoot {
		if err := pivotInto(root); err != nil {
			return &initError{"pivot", err}
		}
	} else if err := syscall.Chroot(root); err != nil {
		return &initError{"pivot", err}
	}
	return nil
}

var devBinds = []string{"null", "zero", "full", "random", "urandom", "tty"}

var devLinks = [][2]string{
	{"/proc/self/fd", "fd"},
	{"/proc/self/fd/0", "stdin"},
	{"/proc/self/fd/1", "stdout"},
	{"/proc/self/fd/2", "stderr"},
}

// setupDev mounts a small tmpfs on dev and fills it with bind mounted
// host device nodes and the usual symlinks. mknod is not permitted in a
// user namespace, bind mounting the host nodes is.
func setupDev(root string) error {
	dev := filepath.Join(root, "dev")
	t := mount.Mount{Source: "tmpfs", Target: dev, FsType: "tmpfs", Data: "mode=0755", Flags: syscall.MS_NOSUID}
	if err := t.Mount(); err != nil {
		return err
	}
	for _, name := range devBinds {
		host := "/dev/" + name
		if _, err := os.Stat(host); err != nil {
			continue
		}
		// bind needs an existing mount point, a plain file here
		target := filepath.Join(dev, name)
		f, err := os.OpenFile(target, os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		f.Close()
		if err := syscall.Mount(host, target, "", syscall.MS_BIND, ""); err != nil {
			return fmt.Errorf("bind %s: %w", host, err)
		}
	}
	for _, l := range devLinks {
		if err := os.Symlink(l[0], filepath.Join(dev, l[1])); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Join(dev, "shm"), 0755); err != nil {
		return err
	}
	shm := mount.Mount{Source: "tmpfs", Target: filepath.Join(dev, "shm"), FsType: "tmpfs", Data: "mode=1777,size=65536k", Flags: syscall.MS_NOSUID | syscall.MS_NODEV}
	return shm.Mount()
}

// pivotInto switches the root to dir using the pivot_root into self
// trick, then drops the old root.
func pivotInto(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return err
	}
	if err := syscall.PivotRoot(".", "."); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}
	if err := syscall.Unmount(".", syscall.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount old root: %w", err)
	}
	return os.Chdir("/")
}

// entryEnv appends the runtime environment to the spec environment. Spec
// values win over the defaults.
func entryEnv(conf *initConfig) []string {
	env := conf.Entry.Env
	if !hasEnv(env, "PATH") {
		env = append(env, defaultPathEnv)
	}
	if !hasEnv(env, "HOSTNAME") && conf.Hostname != "" {
		env = append(env, "HOSTNAME="+conf.Hostname)
	}
	if !hasEnv(env, "HOME") {
		env = append(env, "HOME=/root")
	}
	env = append(env, "container=burrow", "container_uuid="+conf.ID)
	return env
}

func hasEnv(env []string, key string) bool {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}
