package container

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsKind(t *testing.T) {
	err := errKindf(NotFound, "get", "c1", "no such container")
	if !errors.Is(err, NotFound) {
		t.Errorf("errors.Is(err, NotFound) = false")
	}
	if errors.Is(err, Conflict) {
		t.Errorf("errors.Is(err, Conflict) = true")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, NotFound) {
		t.Errorf("wrapped error lost its kind")
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := errKind(MountFailed, "start", "c1", cause)
	want := "start c1: mount failed: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
}

func TestKindString(t *testing.T) {
	if SpecInvalid.String() != "spec invalid" {
		t.Errorf("SpecInvalid.String() = %q", SpecInvalid.String())
	}
	if Kind(0).String() != "invalid" {
		t.Errorf("Kind(0).String() = %q", Kind(0).String())
	}
}
