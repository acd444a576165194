// Package rootfs materializes a mutable root filesystem view for one
// container and discards it on teardown.
//
// Two backends are supported: overlay composition of read-only lower layers
// with one writable layer on top, and an ephemeral size-bounded tmpfs. The
// backend set is closed; a Descriptor carries exactly one variant.
package rootfs

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// Overlay describes an overlay composition. LowerDirs are read-only layers
// ordered lowest priority first. UpperDir and WorkDir are optional; when
// empty they are created inside the backend scratch directory.
type Overlay struct {
	LowerDirs []string
	UpperDir  string
	WorkDir   string
}

// Tmpfs describes a memory backed root. SizeLimit is in bytes, zero leaves
// the kernel default in place.
type Tmpfs struct {
	SizeLimit int64
}

// Descriptor selects the backend for one container. Exactly one variant must
// be set.
type Descriptor struct {
	Overlay *Overlay
	Tmpfs   *Tmpfs
}

// Validate checks that exactly one variant is set and it is well formed
func (d *Descriptor) Validate() error {
	switch {
	case d == nil:
		return fmt.Errorf("rootfs: nil descriptor")
	case d.Overlay != nil && d.Tmpfs != nil:
		return fmt.Errorf("rootfs: more than one backend selected")
	case d.Overlay != nil:
		if len(d.Overlay.LowerDirs) == 0 {
			return fmt.Errorf("rootfs: overlay requires at least one lower layer")
		}
		for _, p := range d.Overlay.LowerDirs {
			if p == "" {
				return fmt.Errorf("rootfs: empty lower layer path")
			}
		}
		return nil
	case d.Tmpfs != nil:
		if d.Tmpfs.SizeLimit < 0 {
			return fmt.Errorf("rootfs: negative tmpfs size limit")
		}
		return nil
	default:
		return fmt.Errorf("rootfs: no backend selected")
	}
}

func (d *Descriptor) String() string {
	switch {
	case d == nil:
		return "rootfs[nil]"
	case d.Overlay != nil:
		return fmt.Sprintf("rootfs[overlay %d layers]", len(d.Overlay.LowerDirs))
	case d.Tmpfs != nil:
		if d.Tmpfs.SizeLimit > 0 {
			return fmt.Sprintf("rootfs[tmpfs %s]", units.BytesSize(float64(d.Tmpfs.SizeLimit)))
		}
		return "rootfs[tmpfs]"
	default:
		return "rootfs[none]"
	}
}

// ParseSize converts a human readable size ("64m", "1g") to bytes
func ParseSize(s string) (int64, error) {
	return units.RAMInBytes(s)
}

// overlayData composes the overlayfs mount data string. staged is ordered
// lowest priority first while the lowerdir option wants highest first, so the
// sequence is reversed here.
func overlayData(staged []string, upper, work string) string {
	lowers := make([]string, 0, len(staged))
	for i := len(staged) - 1; i >= 0; i-- {
		lowers = append(lowers, staged[i])
	}
	return fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		strings.Join(lowers, ":"), upper, work)
}

// tmpfsData renders the tmpfs mount data string for a size limit in bytes
func tmpfsData(sizeLimit int64) string {
	if sizeLimit <= 0 {
		return ""
	}
	return fmt.Sprintf("size=%d", sizeLimit)
}
