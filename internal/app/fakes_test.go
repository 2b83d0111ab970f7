package app

import (
	"context"
	"sync"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

// fakeRepo is an in-memory stand-in for the postgres repositories. It
// backs every engine service in unit tests.
type fakeRepo struct {
	mu        sync.Mutex
	resources map[string]domain.Resource
	bookings  []domain.Booking

	// failTxTimes makes the next N WithTx calls fail with ErrTxConflict
	// before running fn, to exercise the retry-once policy.
	failTxTimes int
	txCalls     int

	// winnerOnWrite simulates a concurrent writer beating the next
	// booking write to the window: the winner lands in the store and
	// the write fails with the storage backstop's bare conflict error.
	winnerOnWrite *domain.Booking
}

func newFakeRepo(resources []domain.Resource, bookings []domain.Booking) *fakeRepo {
	m := make(map[string]domain.Resource, len(resources))
	for _, res := range resources {
		m[res.ID] = res
	}
	return &fakeRepo{
		resources: m,
		bookings:  append([]domain.Booking{}, bookings...),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.txCalls++
	if f.failTxTimes > 0 {
		f.failTxTimes--
		f.mu.Unlock()
		return domain.ErrTxConflict
	}
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeRepo) GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resources[resourceID]
	if !ok || res.TenantID != tenantID {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (f *fakeRepo) GetResourceForUpdate(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	return f.GetResource(ctx, tenantID, resourceID)
}

func (f *fakeRepo) ListActiveBookingsOverlapping(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.TenantID != tenantID || b.ResourceID != resourceID {
			continue
		}
		if !b.Status.Active() || b.ID == excludeBookingID {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountActiveBookingsFrom(ctx context.Context, tenantID, resourceID string, from time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, b := range f.bookings {
		if b.TenantID == tenantID && b.ResourceID == resourceID && b.Status.Active() && b.EndTime.After(from) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) HasActiveBookingCovering(ctx context.Context, tenantID, resourceID string, at time.Time, excludeBookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.TenantID != tenantID || b.ResourceID != resourceID {
			continue
		}
		if !b.Status.Active() || b.ID == excludeBookingID {
			continue
		}
		if !b.StartTime.After(at) && b.EndTime.After(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == bookingID && b.TenantID == tenantID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeRepo) GetBookingForUpdate(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	return f.GetBooking(ctx, tenantID, bookingID)
}

func (f *fakeRepo) ListBookingsByResource(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.TenantID == tenantID && b.ResourceID == resourceID && b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertBooking(ctx context.Context, b domain.Booking, exclusiveClaim bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loseRaceLocked(b.ResourceID); err != nil {
		return err
	}
	f.bookings = append(f.bookings, b)
	return nil
}

// loseRaceLocked commits the pending winner and reports the conflict the
// way the exclusion constraint does, without the colliding rows.
func (f *fakeRepo) loseRaceLocked(resourceID string) error {
	if f.winnerOnWrite == nil {
		return nil
	}
	winner := *f.winnerOnWrite
	f.winnerOnWrite = nil
	f.bookings = append(f.bookings, winner)
	return &domain.ConflictError{ResourceID: resourceID}
}

func (f *fakeRepo) UpdateBookingStatus(ctx context.Context, tenantID, bookingID string, status domain.BookingStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bookings {
		if b.ID == bookingID && b.TenantID == tenantID {
			f.bookings[i].Status = status
			f.bookings[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (f *fakeRepo) UpdateBookingInterval(ctx context.Context, tenantID, bookingID string, start, end, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loseRaceLocked(""); err != nil {
		return err
	}
	for i, b := range f.bookings {
		if b.ID == bookingID && b.TenantID == tenantID {
			f.bookings[i].StartTime = start
			f.bookings[i].EndTime = end
			f.bookings[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (f *fakeRepo) UpdateResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resources[resourceID]
	if !ok || res.TenantID != tenantID {
		return domain.ErrResourceNotFound
	}
	res.Status = status
	f.resources[resourceID] = res
	return nil
}

func (f *fakeRepo) CreateResource(ctx context.Context, res domain.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[res.ID] = res
	return nil
}

func (f *fakeRepo) ListResources(ctx context.Context, tenantID string, kind domain.ResourceKind) ([]domain.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Resource
	for _, res := range f.resources {
		if res.TenantID != tenantID {
			continue
		}
		if kind != "" && res.Kind != kind {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (f *fakeRepo) resourceStatus(resourceID string) domain.ResourceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resources[resourceID].Status
}

func (f *fakeRepo) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

// fakePublisher records lifecycle events.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, _ := payload.(map[string]any)
	if name, ok := m["event"].(string); ok {
		p.events = append(p.events, name)
	}
	return nil
}
