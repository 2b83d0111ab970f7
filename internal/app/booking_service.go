package app

import (
	"context"
	"errors"
	"time"

	"github.com/candelahq/booking-engine/internal/clock"
	"github.com/candelahq/booking-engine/internal/domain"
	"github.com/sirupsen/logrus"
)

// BookingRepository is the storage surface the lifecycle manager needs.
// WithTx runs fn inside one transaction; the other methods join that
// transaction when called under it.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetResourceForUpdate(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	ListActiveBookingsOverlapping(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error)
	HasActiveBookingCovering(ctx context.Context, tenantID, resourceID string, at time.Time, excludeBookingID string) (bool, error)
	GetBooking(ctx context.Context, tenantID, bookingID string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, tenantID, bookingID string) (domain.Booking, error)
	ListBookingsByResource(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, b domain.Booking, exclusiveClaim bool) error
	UpdateBookingStatus(ctx context.Context, tenantID, bookingID string, status domain.BookingStatus, updatedAt time.Time) error
	UpdateBookingInterval(ctx context.Context, tenantID, bookingID string, start, end, updatedAt time.Time) error
	UpdateResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) error
}

// EventPublisher receives lifecycle events after commit. Publishing is
// fire-and-forget; a failure never fails the booking request.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload any) error
}

// BookingService owns the booking lifecycle: creation after validation,
// legal transitions, reschedules, and the resource-status projection.
type BookingService struct {
	repo   BookingRepository
	clock  clock.Clock
	events EventPublisher
	logger logrus.FieldLogger
}

func NewBookingService(repo BookingRepository, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:   repo,
		clock:  clk,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithEventPublisher enables lifecycle event emission.
func WithEventPublisher(pub EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.events = pub
	}
}

// WithLogger overrides the default logrus logger.
func WithLogger(logger logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type CreateBookingInput struct {
	ResourceID string
	SubjectID  string
	Start      time.Time
	End        time.Time
	Priority   int
}

// CreateBooking validates the interval, serializes on the resource row,
// re-checks exclusivity or headroom under that lock, and inserts the
// booking as SCHEDULED. If it returns success, no other committed active
// booking overlaps the window on an exclusive resource, and throughput
// headroom was not exceeded at commit time.
func (s *BookingService) CreateBooking(ctx context.Context, tenantID string, in CreateBookingInput) (domain.Booking, error) {
	if !domain.ValidInterval(in.Start, in.End) {
		return domain.Booking{}, domain.ErrInvalidInterval
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.withRetry(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetResourceForUpdate(txCtx, tenantID, in.ResourceID)
		if err != nil {
			return err
		}

		if err := s.checkSchedulable(txCtx, res, in.Start, in.End, ""); err != nil {
			return err
		}

		booking := domain.Booking{
			ID:         newID(),
			TenantID:   tenantID,
			ResourceID: in.ResourceID,
			SubjectID:  in.SubjectID,
			StartTime:  in.Start,
			EndTime:    in.End,
			Status:     domain.BookingScheduled,
			Priority:   in.Priority,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := s.repo.InsertBooking(txCtx, booking, res.IsExclusive()); err != nil {
			return err
		}
		if err := s.recomputeResourceStatus(txCtx, res, ""); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, s.enrichConflict(ctx, err, tenantID, in.ResourceID, in.Start, in.End, "")
	}

	s.publish(ctx, "booking.created", result)
	return result, nil
}

// Transition moves a booking along the lifecycle graph and refreshes the
// resource's cached occupancy when a booking leaves the active set.
func (s *BookingService) Transition(ctx context.Context, tenantID, bookingID string, newStatus domain.BookingStatus) (domain.Booking, error) {
	if !domain.ValidBookingStatus(newStatus) {
		return domain.Booking{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.withRetry(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(booking.Status, newStatus) {
			return &domain.InvalidTransitionError{From: booking.Status, To: newStatus}
		}

		if err := s.repo.UpdateBookingStatus(txCtx, tenantID, bookingID, newStatus, now); err != nil {
			return err
		}

		res, err := s.repo.GetResourceForUpdate(txCtx, tenantID, booking.ResourceID)
		if err != nil {
			return err
		}
		// The booking row already carries the new status inside this
		// transaction, so the recompute sees it.
		if err := s.recomputeResourceStatus(txCtx, res, ""); err != nil {
			return err
		}

		booking.Status = newStatus
		booking.UpdatedAt = now
		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publish(ctx, "booking.transitioned", result)
	return result, nil
}

// Reschedule revalidates the new window with the booking itself excluded
// and applies the move atomically; a reschedule that would conflict leaves
// the original interval untouched.
func (s *BookingService) Reschedule(ctx context.Context, tenantID, bookingID string, newStart, newEnd time.Time) (domain.Booking, error) {
	if !domain.ValidInterval(newStart, newEnd) {
		return domain.Booking{}, domain.ErrInvalidInterval
	}

	now := s.clock.Now()
	var result domain.Booking
	var resourceID string

	err := s.withRetry(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if booking.Status.Terminal() {
			return &domain.InvalidTransitionError{From: booking.Status, To: booking.Status}
		}
		resourceID = booking.ResourceID

		res, err := s.repo.GetResourceForUpdate(txCtx, tenantID, booking.ResourceID)
		if err != nil {
			return err
		}
		if err := s.checkSchedulable(txCtx, res, newStart, newEnd, bookingID); err != nil {
			return err
		}

		if err := s.repo.UpdateBookingInterval(txCtx, tenantID, bookingID, newStart, newEnd, now); err != nil {
			return err
		}
		if err := s.recomputeResourceStatus(txCtx, res, ""); err != nil {
			return err
		}

		booking.StartTime = newStart
		booking.EndTime = newEnd
		booking.UpdatedAt = now
		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, s.enrichConflict(ctx, err, tenantID, resourceID, newStart, newEnd, bookingID)
	}

	s.publish(ctx, "booking.rescheduled", result)
	return result, nil
}

func (s *BookingService) GetBooking(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	return s.repo.GetBooking(ctx, tenantID, bookingID)
}

func (s *BookingService) ListBookings(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]domain.Booking, error) {
	if !domain.ValidInterval(from, to) {
		return nil, domain.ErrInvalidInterval
	}
	if _, err := s.repo.GetResource(ctx, tenantID, resourceID); err != nil {
		return nil, err
	}
	return s.repo.ListBookingsByResource(ctx, tenantID, resourceID, from, to)
}

// checkSchedulable enforces exclusivity or headroom for [start, end) on
// the locked resource. excludeBookingID carries the booking being
// rescheduled so it does not collide with itself.
func (s *BookingService) checkSchedulable(ctx context.Context, res domain.Resource, start, end time.Time, excludeBookingID string) error {
	if res.IsExclusive() {
		if res.OutOfRotation() {
			return domain.ErrResourceOutOfService
		}
		conflicts, err := s.repo.ListActiveBookingsOverlapping(ctx, res.TenantID, res.ID, start, end, excludeBookingID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &domain.ConflictError{ResourceID: res.ID, Conflicts: conflicts}
		}
		return nil
	}

	// Headroom is judged per calendar day: every day the booking touches
	// must fit the hours that fall in it, so a window crossing midnight
	// cannot overload the following day.
	days := dayWindows(start, end)
	spanStart := days[0]
	spanEnd := days[len(days)-1].Add(24 * time.Hour)
	bookings, err := s.repo.ListActiveBookingsOverlapping(ctx, res.TenantID, res.ID, spanStart, spanEnd, excludeBookingID)
	if err != nil {
		return err
	}
	for _, dayStart := range days {
		dayEnd := dayStart.Add(24 * time.Hour)
		report := buildCapacityReport(res, bookings, dayStart, dayEnd)
		required := clippedHours(start, end, dayStart, dayEnd)
		if report.Overallocated {
			s.logger.WithFields(logrus.Fields{
				"resource_id": res.ID,
				"utilization": report.UtilizationRatio,
			}).Warn("resource already over-allocated in requested window")
		}
		if required > report.AvailableUnits {
			return &domain.CapacityExceededError{
				ResourceID:     res.ID,
				RequiredHours:  required,
				AvailableHours: report.AvailableUnits,
			}
		}
	}
	return nil
}

// enrichConflict fills in a conflict error the storage backstop raised
// without detail. That only happens when a concurrent writer committed
// between the headroom check and the write; the transaction is already
// aborted, so the colliding bookings are fetched with a plain query.
func (s *BookingService) enrichConflict(ctx context.Context, err error, tenantID, resourceID string, start, end time.Time, excludeBookingID string) error {
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || len(conflict.Conflicts) > 0 {
		return err
	}
	conflict.ResourceID = resourceID
	if overlapping, listErr := s.repo.ListActiveBookingsOverlapping(ctx, tenantID, resourceID, start, end, excludeBookingID); listErr == nil {
		conflict.Conflicts = overlapping
	}
	return conflict
}

// recomputeResourceStatus refreshes the cached occupancy projection for
// exclusive resources from the bookings that actually cover now.
// Administrative states are left alone, and throughput resources keep a
// purely informational status.
func (s *BookingService) recomputeResourceStatus(ctx context.Context, res domain.Resource, excludeBookingID string) error {
	if !res.IsExclusive() || res.OutOfRotation() {
		return nil
	}

	covered, err := s.repo.HasActiveBookingCovering(ctx, res.TenantID, res.ID, s.clock.Now(), excludeBookingID)
	if err != nil {
		return err
	}

	status := domain.StatusAvailable
	if covered {
		status = domain.StatusOccupied
	}
	if status == res.Status {
		return nil
	}
	return s.repo.UpdateResourceStatus(ctx, res.TenantID, res.ID, status)
}

// withRetry retries exactly once on a transient transaction abort.
// Business rejections are never retried; a second transient failure is
// surfaced as-is.
func (s *BookingService) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.repo.WithTx(ctx, fn)
	if err != nil && errors.Is(err, domain.ErrTxConflict) {
		s.logger.WithField("error", err).Debug("retrying after transaction conflict")
		return s.repo.WithTx(ctx, fn)
	}
	return err
}

func (s *BookingService) publish(ctx context.Context, event string, b domain.Booking) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"event":       event,
		"booking_id":  b.ID,
		"tenant_id":   b.TenantID,
		"resource_id": b.ResourceID,
		"subject_id":  b.SubjectID,
		"start":       b.StartTime,
		"end":         b.EndTime,
		"status":      b.Status,
	}
	if err := s.events.PublishJSON(ctx, b.ResourceID, payload); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":      event,
			"booking_id": b.ID,
		}).WithError(err).Warn("failed to publish lifecycle event")
	}
}
