package container

import "testing"

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Created:   "created",
		Running:   "running",
		Paused:    "paused",
		Stopped:   "stopped",
		Destroyed: "destroyed",
		State(0):  "invalid",
		State(99): "invalid",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []State{Created, Running, Paused, Stopped, Destroyed} {
		got, ok := parseState(s.String())
		if !ok || got != s {
			t.Errorf("parseState(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := parseState("bogus"); ok {
		t.Errorf("parseState accepted bogus state")
	}
	if _, ok := parseState("invalid"); ok {
		t.Errorf("parseState accepted the invalid placeholder")
	}
}

func TestTransitions(t *testing.T) {
	allowed := []struct{ from, to State }{
		{Created, Running},
		{Created, Destroyed},
		{Running, Paused},
		{Running, Stopped},
		{Running, Destroyed},
		{Paused, Running},
		{Paused, Stopped},
		{Paused, Destroyed},
		{Stopped, Destroyed},
	}
	for _, c := range allowed {
		if !canTransition(c.from, c.to) {
			t.Errorf("canTransition(%v, %v) = false, want true", c.from, c.to)
		}
	}
	denied := []struct{ from, to State }{
		{Created, Paused},
		{Created, Stopped},
		{Stopped, Running},
		{Stopped, Paused},
		{Destroyed, Created},
		{Destroyed, Running},
		{Paused, Created},
	}
	for _, c := range denied {
		if canTransition(c.from, c.to) {
			t.Errorf("canTransition(%v, %v) = true, want false", c.from, c.to)
		}
	}
}
