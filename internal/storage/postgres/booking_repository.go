package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := withTx(ctx, r.pool, fn)
	if err != nil && isTxConflict(err) {
		return domain.ErrTxConflict
	}
	return err
}

// GetResourceForUpdate locks the resource row for the rest of the
// transaction. Every create/reschedule takes this lock first, so
// check-then-insert is serialized per resource.
func (r *BookingRepository) GetResourceForUpdate(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, kind, capacity_model, daily_capacity_units, status
FROM resources
WHERE id = $1 AND tenant_id = $2
FOR UPDATE`

	var res domain.Resource
	err := r.queryRow(ctx, query, resourceID, tenantID).Scan(
		&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.CapacityModel, &res.DailyCapacityUnits, &res.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource for update: %w", err)
	}
	return res, nil
}

func (r *BookingRepository) GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, kind, capacity_model, daily_capacity_units, status
FROM resources
WHERE id = $1 AND tenant_id = $2`

	var res domain.Resource
	err := r.queryRow(ctx, query, resourceID, tenantID).Scan(
		&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.CapacityModel, &res.DailyCapacityUnits, &res.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

const bookingColumns = `id, tenant_id, resource_id, subject_id, start_time, end_time, status, priority, created_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.TenantID, &b.ResourceID, &b.SubjectID,
		&b.StartTime, &b.EndTime, &b.Status, &b.Priority,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// ListActiveBookingsOverlapping returns non-terminal bookings on the
// resource whose half-open interval intersects [start, end), ordered by
// start time. excludeBookingID skips the booking being revalidated on a
// reschedule; pass "" otherwise.
func (r *BookingRepository) ListActiveBookingsOverlapping(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE tenant_id = $1
  AND resource_id = $2
  AND status = ANY($3)
  AND start_time < $4
  AND end_time > $5
  AND ($6::uuid IS NULL OR id <> $6)
ORDER BY start_time ASC`

	var exclude any
	if excludeBookingID != "" {
		exclude = excludeBookingID
	}

	rows, err := r.query(ctx, query, tenantID, resourceID, activeStatusStrings(), end, start, exclude)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return bookings, nil
}

// CountActiveBookingsFrom counts non-terminal bookings on the resource that
// end after the given instant. The selector uses this as the tie-break
// load signal for exclusive resources.
func (r *BookingRepository) CountActiveBookingsFrom(ctx context.Context, tenantID, resourceID string, from time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM bookings
WHERE tenant_id = $1 AND resource_id = $2 AND status = ANY($3) AND end_time > $4`

	var count int
	if err := r.queryRow(ctx, query, tenantID, resourceID, activeStatusStrings(), from).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

// HasActiveBookingCovering reports whether an active booking on the
// resource covers the given instant. The lifecycle manager recomputes the
// cached resource status from this, never from memory.
func (r *BookingRepository) HasActiveBookingCovering(ctx context.Context, tenantID, resourceID string, at time.Time, excludeBookingID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE tenant_id = $1
	  AND resource_id = $2
	  AND status = ANY($3)
	  AND start_time <= $4
	  AND end_time > $4
	  AND ($5::uuid IS NULL OR id <> $5)
)`

	var exclude any
	if excludeBookingID != "" {
		exclude = excludeBookingID
	}

	var covered bool
	if err := r.queryRow(ctx, query, tenantID, resourceID, activeStatusStrings(), at, exclude).Scan(&covered); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check covering booking: %w", err)
	}
	return covered, nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = $1 AND tenant_id = $2`

	b, err := scanBooking(r.queryRow(ctx, query, bookingID, tenantID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = $1 AND tenant_id = $2
FOR UPDATE`

	b, err := scanBooking(r.queryRow(ctx, query, bookingID, tenantID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking for update: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) ListBookingsByResource(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE tenant_id = $1
  AND resource_id = $2
  AND start_time < $3
  AND end_time > $4
ORDER BY start_time ASC`

	rows, err := r.query(ctx, query, tenantID, resourceID, to, from)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return bookings, nil
}

// InsertBooking writes a new booking. exclusiveClaim marks rows covered by
// the storage-level no-overlap exclusion constraint; it is set for
// bookings on exclusive resources only.
func (r *BookingRepository) InsertBooking(ctx context.Context, b domain.Booking, exclusiveClaim bool) error {
	const stmt = `
INSERT INTO bookings (id, tenant_id, resource_id, subject_id, start_time, end_time, status, priority, exclusive_claim, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		b.ID, b.TenantID, b.ResourceID, b.SubjectID,
		b.StartTime, b.EndTime, b.Status, b.Priority,
		exclusiveClaim, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return &domain.ConflictError{ResourceID: b.ResourceID}
		}
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, tenantID, bookingID string, status domain.BookingStatus, updatedAt time.Time) error {
	const stmt = `
UPDATE bookings SET status = $3, updated_at = $4
WHERE id = $1 AND tenant_id = $2`

	tag, err := r.exec(ctx, stmt, bookingID, tenantID, status, updatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) UpdateBookingInterval(ctx context.Context, tenantID, bookingID string, start, end, updatedAt time.Time) error {
	const stmt = `
UPDATE bookings SET start_time = $3, end_time = $4, updated_at = $5
WHERE id = $1 AND tenant_id = $2`

	tag, err := r.exec(ctx, stmt, bookingID, tenantID, start, end, updatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return &domain.ConflictError{}
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update booking interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// UpdateResourceStatus flips the cached occupancy projection. Only the
// lifecycle manager's recompute calls this.
func (r *BookingRepository) UpdateResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) error {
	const stmt = `UPDATE resources SET status = $3 WHERE id = $1 AND tenant_id = $2`

	tag, err := r.exec(ctx, stmt, resourceID, tenantID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update resource status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(domain.ActiveStatuses))
	for _, s := range domain.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
