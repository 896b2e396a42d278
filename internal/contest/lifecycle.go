package contest

import "time"

// NextStatusAt computes the time-driven target status for a contest at
// the given instant. Returns the current status (and false) when no
// transition is due, which makes scheduler re-evaluation an idempotent
// no-op rather than an error.
//
// Operator-driven transitions (DRAFT → UPCOMING, → CANCELLED) are never
// produced here; they go through explicit engine operations.
func NextStatusAt(c *Contest, now time.Time) (Status, bool) {
	switch c.Status {
	case StatusUpcoming:
		// Start time dominates: a contest whose start has passed goes
		// ACTIVE even if the registration window was never observed open.
		if !now.Before(c.Window.Start) {
			return StatusActive, true
		}
		if !now.Before(c.Window.RegistrationStart) {
			return StatusRegistrationOpen, true
		}
	case StatusRegistrationOpen:
		if !now.Before(c.Window.Start) {
			return StatusActive, true
		}
	case StatusActive:
		if !now.Before(c.Window.End) {
			return StatusCompleted, true
		}
	}
	return c.Status, false
}
