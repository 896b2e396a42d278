package contest

// Status tracks a contest through its lifecycle.
type Status int32

const (
	StatusDraft Status = iota
	StatusUpcoming
	StatusRegistrationOpen
	StatusActive
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "DRAFT"
	case StatusUpcoming:
		return "UPCOMING"
	case StatusRegistrationOpen:
		return "REGISTRATION_OPEN"
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus converts the storage representation back to a Status.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "DRAFT":
		return StatusDraft, true
	case "UPCOMING":
		return StatusUpcoming, true
	case "REGISTRATION_OPEN":
		return StatusRegistrationOpen, true
	case "ACTIVE":
		return StatusActive, true
	case "COMPLETED":
		return StatusCompleted, true
	case "CANCELLED":
		return StatusCancelled, true
	}
	return StatusDraft, false
}

// CanTransitionTo validates status transitions. Transitions are monotonic
// except for the CANCELLED escape hatch, reachable from any pre-ACTIVE state.
func (s Status) CanTransitionTo(next Status) bool {
	validTransitions := map[Status][]Status{
		StatusDraft: {
			StatusUpcoming,
			StatusCancelled,
		},
		StatusUpcoming: {
			StatusRegistrationOpen,
			StatusActive, // registration window may be skipped entirely
			StatusCancelled,
		},
		StatusRegistrationOpen: {
			StatusActive,
			StatusCancelled,
		},
		StatusActive: {
			StatusCompleted,
		},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, allowedStatus := range allowed {
		if next == allowedStatus {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Joinable reports whether new participants may register.
func (s Status) Joinable() bool {
	return s == StatusRegistrationOpen
}
