package app

import (
	"context"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

// ConflictStore is the read surface the detector needs.
type ConflictStore interface {
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	ListActiveBookingsOverlapping(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error)
}

// ConflictDetector answers whether a candidate window collides with active
// bookings on a resource. It is a pure read: for exclusive resources any
// non-empty result is a hard rejection, for throughput resources the
// result is diagnostic and legality is decided by capacity math.
type ConflictDetector struct {
	store ConflictStore
}

func NewConflictDetector(store ConflictStore) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// FindConflicts returns the active bookings on the resource whose
// half-open intervals intersect [start, end). A booking ending exactly at
// start (or starting exactly at end) does not conflict.
// excludeBookingID skips the booking being revalidated; pass "" otherwise.
func (d *ConflictDetector) FindConflicts(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error) {
	if !domain.ValidInterval(start, end) {
		return nil, domain.ErrInvalidInterval
	}
	if _, err := d.store.GetResource(ctx, tenantID, resourceID); err != nil {
		return nil, err
	}
	return d.store.ListActiveBookingsOverlapping(ctx, tenantID, resourceID, start, end, excludeBookingID)
}
