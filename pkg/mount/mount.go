// Package mount provides the mount point primitives used to assemble a
// container root filesystem and its pseudo file systems.
package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mount defines a single mount operation
type Mount struct {
	Source, Target, FsType, Data string
	Flags                        uintptr
}

// IsBindMount returns true if the mount is a bind mount
func (m Mount) IsBindMount() bool {
	return m.Flags&unix.MS_BIND == unix.MS_BIND
}

// IsReadOnly returns true if the mount is read-only
func (m Mount) IsReadOnly() bool {
	return m.Flags&unix.MS_RDONLY == unix.MS_RDONLY
}

// IsTmpFs returns true if the mount is a tmpfs
func (m Mount) IsTmpFs() bool {
	return m.FsType == "tmpfs"
}

func (m Mount) String() string {
	switch {
	case m.IsBindMount():
		flag := "rw"
		if m.IsReadOnly() {
			flag = "ro"
		}
		return fmt.Sprintf("bind[%s:%s:%s]", m.Source, m.Target, flag)

	case m.IsTmpFs():
		return fmt.Sprintf("tmpfs[%s]", m.Target)

	case m.FsType == "proc":
		return "proc[]"

	case m.FsType == "overlay":
		return fmt.Sprintf("overlay[%s:%s]", m.Target, m.Data)

	default:
		return fmt.Sprintf("mount[%s,%s:%s:%x,%s]", m.FsType, m.Source, m.Target, m.Flags, m.Data)
	}
}
