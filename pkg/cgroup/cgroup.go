// Package cgroup creates per-container resource limit groups under the
// systemd defined mount path (/sys/fs/cgroup), supporting both the unified
// v2 hierarchy and the legacy v1 controllers (cpu, memory, pids, freezer).
package cgroup

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// Limits defines optional resource limits for one container
type Limits struct {
	// CPUShares is the relative cpu weight (v1 cpu.shares scale)
	CPUShares uint64
	// CPUQuotaUs limits cpu time in microseconds per 100ms period
	CPUQuotaUs uint64
	// Memory is the memory ceiling in bytes
	Memory int64
	// Pids is the maximum number of processes
	Pids int64
}

// Empty returns true when no limit is set
func (l *Limits) Empty() bool {
	return l == nil || (l.CPUShares == 0 && l.CPUQuotaUs == 0 && l.Memory == 0 && l.Pids == 0)
}

func (l *Limits) String() string {
	if l.Empty() {
		return "limits[]"
	}
	s := make([]string, 0, 4)
	if l.CPUShares > 0 {
		s = append(s, fmt.Sprintf("cpu-shares=%d", l.CPUShares))
	}
	if l.CPUQuotaUs > 0 {
		s = append(s, fmt.Sprintf("cpu-quota=%dus", l.CPUQuotaUs))
	}
	if l.Memory > 0 {
		s = append(s, "memory="+units.BytesSize(float64(l.Memory)))
	}
	if l.Pids > 0 {
		s = append(s, fmt.Sprintf("pids=%d", l.Pids))
	}
	return "limits[" + strings.Join(s, ",") + "]"
}

// v2CPUWeight converts v1 cpu.shares (2..262144) to v2 cpu.weight (1..10000)
func v2CPUWeight(shares uint64) uint64 {
	if shares == 0 {
		return 0
	}
	if shares < 2 {
		shares = 2
	}
	if shares > 262144 {
		shares = 262144
	}
	return 1 + ((shares-2)*9999)/262142
}
