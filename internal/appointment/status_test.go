package appointment

import "testing"

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		s        Status
		terminal bool
	}{
		{StatusScheduled, false},
		{StatusConfirmed, false},
		{StatusCancelled, true},
		{StatusCompleted, true},
		{StatusNoShow, true},
	}
	for _, c := range cases {
		if got := c.s.Terminal(); got != c.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", c.s, got, c.terminal)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusCompleted},
		{StatusScheduled, StatusNoShow},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusNoShow},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", c.from, c.to)
		}
	}
	// Nenhum status terminal transiciona.
	for _, from := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		for _, to := range []Status{StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow} {
			if CanTransition(from, to) {
				t.Errorf("CanTransition(%s, %s) = true, want false", from, to)
			}
		}
	}
	if CanTransition(StatusConfirmed, StatusConfirmed) {
		t.Error("re-confirm must not be a table transition (handled as no-op by the service)")
	}
	if CanTransition(StatusConfirmed, StatusScheduled) {
		t.Error("confirmed must not go back to scheduled")
	}
}

func TestAllowedFrom(t *testing.T) {
	got := AllowedFrom(StatusCancelled)
	want := []Status{StatusScheduled, StatusConfirmed}
	if len(got) != len(want) {
		t.Fatalf("AllowedFrom(CANCELLED) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedFrom(CANCELLED)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if got := AllowedFrom(StatusConfirmed); len(got) != 1 || got[0] != StatusScheduled {
		t.Errorf("AllowedFrom(CONFIRMADO) = %v, want [AGENDADO]", got)
	}
}
