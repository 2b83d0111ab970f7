package domain

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingScheduled  BookingStatus = "SCHEDULED"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

// ActiveStatuses are the non-terminal statuses that count for conflict
// detection and capacity math.
var ActiveStatuses = []BookingStatus{BookingScheduled, BookingConfirmed, BookingInProgress}

// Booking is a time-bounded claim on a resource by a subject (an
// appointment, a reservation, a production order). The interval is
// half-open: [StartTime, EndTime).
type Booking struct {
	ID         string
	TenantID   string
	ResourceID string
	SubjectID  string
	StartTime  time.Time
	EndTime    time.Time
	Status     BookingStatus
	// Priority is an ordering hint for callers; the engine never preempts on it.
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether no further transition is permitted from s.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// Active reports whether the status counts against a resource's
// exclusivity or capacity.
func (s BookingStatus) Active() bool {
	switch s {
	case BookingScheduled, BookingConfirmed, BookingInProgress:
		return true
	}
	return false
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s BookingStatus) bool {
	return s.Active() || s.Terminal()
}

// transitions is the lifecycle state graph. CANCELLED and NO_SHOW are
// reachable from every non-terminal state; CONFIRMED is optional on the
// happy path.
var transitions = map[BookingStatus][]BookingStatus{
	BookingScheduled:  {BookingConfirmed, BookingInProgress, BookingCancelled, BookingNoShow},
	BookingConfirmed:  {BookingInProgress, BookingCancelled, BookingNoShow},
	BookingInProgress: {BookingCompleted, BookingCancelled, BookingNoShow},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// A transition to the current status is not legal.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Overlaps reports whether the booking's half-open interval intersects
// [start, end). Touching boundaries do not overlap, so back-to-back
// bookings are allowed.
func (b Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && b.StartTime.Before(end)
}

// ValidInterval reports whether [start, end) is a well-formed booking window.
func ValidInterval(start, end time.Time) bool {
	return start.Before(end)
}
