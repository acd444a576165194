package namespace

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestSet_CloneFlags(t *testing.T) {
	s := Set{Mount, PID, UTS}
	want := uintptr(unix.CLONE_NEWNS | unix.CLONE_NEWPID | unix.CLONE_NEWUTS)
	if got := s.CloneFlags(); got != want {
		t.Errorf("clone flags = %x, want %x", got, want)
	}
}

func TestSet_CloneFlagsUser(t *testing.T) {
	s := Default().With(User)
	if s.CloneFlags()&unix.CLONE_NEWUSER == 0 {
		t.Errorf("expected CLONE_NEWUSER in %x", s.CloneFlags())
	}
}
