package namespace

import "testing"

func TestSet_Validate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default set invalid: %v", err)
	}
	if err := (Set{Mount, Kind("moon")}).Validate(); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if err := (Set{PID, PID}).Validate(); err == nil {
		t.Errorf("expected error for duplicated kind")
	}
}

func TestSet_Contains(t *testing.T) {
	s := Set{Mount, PID}
	if !s.Contains(PID) {
		t.Errorf("expected pid in set")
	}
	if s.Contains(Network) {
		t.Errorf("unexpected network in set")
	}
}

func TestSet_With(t *testing.T) {
	s := Set{PID}
	s2 := s.With(Mount)
	if len(s2) != 2 || !s2.Contains(Mount) {
		t.Errorf("unexpected set: %v", s2)
	}
	if got := s2.With(Mount); len(got) != 2 {
		t.Errorf("With should not duplicate: %v", got)
	}
}
