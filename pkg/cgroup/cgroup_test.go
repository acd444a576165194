package cgroup

import (
	"strings"
	"testing"
)

func TestLimits_Empty(t *testing.T) {
	var l *Limits
	if !l.Empty() {
		t.Errorf("nil limits should be empty")
	}
	if !(&Limits{}).Empty() {
		t.Errorf("zero limits should be empty")
	}
	if (&Limits{Pids: 10}).Empty() {
		t.Errorf("pids limit should not be empty")
	}
}

func TestLimits_String(t *testing.T) {
	l := &Limits{CPUShares: 512, Memory: 64 << 20, Pids: 32}
	s := l.String()
	for _, want := range []string{"cpu-shares=512", "memory=64MiB", "pids=32"} {
		if !strings.Contains(s, want) {
			t.Errorf("limits string %q missing %q", s, want)
		}
	}
	if got := (&Limits{}).String(); got != "limits[]" {
		t.Errorf("empty limits string = %q", got)
	}
}

func TestV2ControlMessage(t *testing.T) {
	for _, tc := range []struct {
		available []string
		want      string
	}{
		{[]string{"cpuset", "cpu", "io", "memory", "hugetlb", "pids"}, "+cpu +memory +pids"},
		{[]string{"memory"}, "+memory"},
		{[]string{"io", "hugetlb"}, ""},
		{nil, ""},
	} {
		if got := string(v2ControlMessage(tc.available)); got != tc.want {
			t.Errorf("v2ControlMessage(%v) = %q, want %q", tc.available, got, tc.want)
		}
	}
}

func TestV2CPUWeight(t *testing.T) {
	for _, tc := range []struct {
		shares, want uint64
	}{
		{0, 0},
		{2, 1},
		{1024, 39},
		{262144, 10000},
		{1 << 30, 10000}, // clamped
	} {
		if got := v2CPUWeight(tc.shares); got != tc.want {
			t.Errorf("v2CPUWeight(%d) = %d, want %d", tc.shares, got, tc.want)
		}
	}
}
