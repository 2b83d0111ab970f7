package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrResourceNotFound     = errors.New("resource not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidInterval      = errors.New("start must be before end")
	ErrInvalidID            = errors.New("invalid id")
	ErrNotThroughput        = errors.New("capacity is only defined for throughput resources")
	ErrResourceNameRequired = errors.New("resource name required")
	ErrInvalidKind          = errors.New("invalid resource kind")
	ErrInvalidCapacityModel = errors.New("invalid capacity model")
	ErrInvalidCapacityUnits = errors.New("daily capacity units must be positive")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrStatusNotSettable    = errors.New("status can only be set to an administrative state")
	ErrResourceOutOfService = errors.New("resource is out of service")
	ErrNoFeasibleResource   = errors.New("no resource with sufficient capacity")

	// ErrTxConflict marks a transient storage-level abort (serialization
	// failure, deadlock). Safe to retry once; never a business decision.
	ErrTxConflict = errors.New("transaction conflict")
)

// ConflictError is returned when a booking would overlap an active booking
// on an exclusive resource. Conflicts carries the colliding bookings so the
// caller can render an actionable message.
type ConflictError struct {
	ResourceID string
	Conflicts  []Booking
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("resource %s already booked in the requested window", e.ResourceID)
	}
	first := e.Conflicts[0]
	return fmt.Sprintf(
		"resource %s already booked %s-%s",
		e.ResourceID,
		first.StartTime.Format(time.RFC3339),
		first.EndTime.Format(time.RFC3339),
	)
}

// CapacityExceededError is returned when a throughput resource lacks the
// headroom for a requested load.
type CapacityExceededError struct {
	ResourceID     string
	RequiredHours  float64
	AvailableHours float64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf(
		"resource %s has %.2fh available, %.2fh required (short %.2fh)",
		e.ResourceID, e.AvailableHours, e.RequiredHours, e.Shortfall(),
	)
}

// Shortfall is the numeric deficit in hours.
func (e *CapacityExceededError) Shortfall() float64 {
	return e.RequiredHours - e.AvailableHours
}

// InvalidTransitionError is returned for an illegal lifecycle move,
// including a transition to the booking's current status.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}
