package container

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateFileName = "state.json"

// stateRecord is the persisted view of one container, enough to rebuild
// the resource handles after a process restart.
type stateRecord struct {
	ID        string      `json:"id"`
	State     string      `json:"state"`
	Pid       int         `json:"pid,omitempty"`
	Exit      *ExitStatus `json:"exit,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`

	RootfsRoot    string   `json:"rootfs_root,omitempty"`
	RootfsMounts  []string `json:"rootfs_mounts,omitempty"`
	RootfsScratch string   `json:"rootfs_scratch,omitempty"`
	CgroupName    string   `json:"cgroup_name,omitempty"`
}

// save persists the current state record with a write plus rename so a
// crash never leaves a torn file. mu must be held. Failures are logged,
// not returned; the in-memory state stays authoritative.
func (c *Container) save() {
	if c.state == Destroyed {
		return
	}
	rec := stateRecord{
		ID:        c.id,
		State:     c.state.String(),
		Pid:       c.pid,
		Exit:      c.exit,
		UpdatedAt: time.Now(),
	}
	if c.fs != nil {
		rec.RootfsRoot = c.fs.Root
		rec.RootfsMounts = c.fs.Mounts()
		rec.RootfsScratch = c.fs.Scratch()
	}
	if c.cg != nil {
		rec.CgroupName = cgroupName(c.id)
	}
	if err := writeStateRecord(c.stateDir, &rec); err != nil {
		c.log.Warn("persist state", "error", err)
	}
}

func writeStateRecord(dir string, rec *stateRecord) error {
	buf, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, stateFileName+".tmp")
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, stateFileName))
}

func readStateRecord(dir string) (*stateRecord, error) {
	buf, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, err
	}
	rec := new(stateRecord)
	if err := json.Unmarshal(buf, rec); err != nil {
		return nil, fmt.Errorf("statefile: %s: %w", dir, err)
	}
	return rec, nil
}
