package rootfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/burrowrt/burrow/pkg/mount"
)

const (
	layersDir = "layers"
	upperDir  = "upper"
	workDir   = "work"
	mergedDir = "merged"
	rootDir   = "root"
)

// Handle is the ownership token for one provisioned root filesystem. It is
// consumed by a fully successful Teardown; later calls are no-ops.
type Handle struct {
	// Root is the path the container pivots into
	Root string

	mu      sync.Mutex
	mounts  []string // in mount order, unmounted in reverse
	scratch string   // backend private directory, removed on teardown
	done    bool
}

// Mounts returns the mount targets in mount order for persistence
func (h *Handle) Mounts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.mounts...)
}

// Scratch returns the backend private directory for persistence
func (h *Handle) Scratch() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scratch
}

// Recover rebuilds a handle from persisted mount targets so a new process
// can tear down a filesystem provisioned before a restart.
func Recover(root string, mounts []string, scratch string) *Handle {
	return &Handle{
		Root:    root,
		mounts:  append([]string(nil), mounts...),
		scratch: scratch,
	}
}

// Provision materializes the filesystem described by d under the backend
// private directory dir. On failure every mount and directory created during
// this attempt is undone before the error is returned.
func Provision(d *Descriptor, dir string) (*Handle, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Overlay != nil {
		return provisionOverlay(d.Overlay, dir)
	}
	return provisionTmpfs(d.Tmpfs, dir)
}

func provisionOverlay(o *Overlay, dir string) (h *Handle, err error) {
	var mounted []string
	defer func() {
		if err != nil {
			for i := len(mounted) - 1; i >= 0; i-- {
				mount.Unmount(mounted[i])
			}
			os.RemoveAll(dir)
		}
	}()

	for _, p := range o.LowerDirs {
		fi, serr := os.Stat(p)
		if serr != nil {
			return nil, fmt.Errorf("rootfs: lower layer %s: %w", p, serr)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("rootfs: lower layer %s is not a directory", p)
		}
	}

	upper := o.UpperDir
	if upper == "" {
		upper = filepath.Join(dir, upperDir)
	}
	work := o.WorkDir
	if work == "" {
		work = filepath.Join(dir, workDir)
	}
	merged := filepath.Join(dir, mergedDir)
	for _, p := range []string{upper, work, merged} {
		if err = os.MkdirAll(p, 0755); err != nil {
			return nil, fmt.Errorf("rootfs: create %s: %w", p, err)
		}
	}

	// stage each lower layer as a read-only bind mount so a layer removed or
	// modified on the host after provisioning cannot change the composition
	b := mount.NewBuilder()
	staged := make([]string, 0, len(o.LowerDirs))
	for i, p := range o.LowerDirs {
		target := filepath.Join(dir, layersDir, fmt.Sprintf("%04d", i))
		b.WithMount(mount.Mount{Source: p, Target: target, Flags: mount.RoBindFlags})
		staged = append(staged, target)
	}
	b.WithOverlay(merged, overlayData(staged, upper, work))

	for _, m := range b.Mounts {
		if err = m.Mount(); err != nil {
			return nil, fmt.Errorf("rootfs: mount %s: %w", m, err)
		}
		mounted = append(mounted, m.Target)
	}

	return &Handle{
		Root:    merged,
		mounts:  mounted,
		scratch: dir,
	}, nil
}

func provisionTmpfs(t *Tmpfs, dir string) (*Handle, error) {
	root := filepath.Join(dir, rootDir)
	m := mount.Mount{
		Source: "tmpfs",
		Target: root,
		FsType: "tmpfs",
		Data:   tmpfsData(t.SizeLimit),
	}
	if err := m.Mount(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("rootfs: mount tmpfs: %w", err)
	}
	return &Handle{
		Root:    root,
		mounts:  []string{root},
		scratch: dir,
	}, nil
}

// Teardown unmounts in reverse order of mounting and removes the backend
// private scratch directory. Mounts that are already gone count as success.
// Step failures are collected and returned together; Teardown is safe to
// retry and a no-op once it has fully succeeded.
func (h *Handle) Teardown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return nil
	}
	var merr *multierror.Error
	for i := len(h.mounts) - 1; i >= 0; i-- {
		if err := mount.Unmount(h.mounts[i]); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("unmount %s: %w", h.mounts[i], err))
		}
	}
	if err := os.RemoveAll(h.scratch); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("remove %s: %w", h.scratch, err))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}
	h.done = true
	return nil
}
