package appointment

// Status of an appointment as persisted in appointments.status.
// Terminal statuses never transition again; the agenda only soft-cancels,
// rows are never deleted.
type Status string

const (
	StatusScheduled Status = "AGENDADO"
	StatusConfirmed Status = "CONFIRMADO"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// transitions is the single authority for status changes. Every write path
// (public confirmation link and staff agenda) goes through it.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the statuses that may transition into to, in a fixed
// order. Used to build the conditional-update guard (WHERE status IN ...).
func AllowedFrom(to Status) []Status {
	var froms []Status
	for _, from := range []Status{StatusScheduled, StatusConfirmed} {
		if CanTransition(from, to) {
			froms = append(froms, from)
		}
	}
	return froms
}
