package app

import (
	"context"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

// CapacityStore is the read surface the calculator needs.
type CapacityStore interface {
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	ListActiveBookingsOverlapping(ctx context.Context, tenantID, resourceID string, start, end time.Time, excludeBookingID string) ([]domain.Booking, error)
}

// CapacityReport describes a throughput resource's load over a window.
// Units are hours. UtilizationRatio may exceed 1 when the window is
// already over-allocated; it is reported, never clamped.
type CapacityReport struct {
	ScheduledUnits   float64
	AvailableUnits   float64
	UtilizationRatio float64
	Overallocated    bool
}

// CapacityCalculator computes scheduled load, headroom and utilization for
// throughput resources.
type CapacityCalculator struct {
	store CapacityStore
}

func NewCapacityCalculator(store CapacityStore) *CapacityCalculator {
	return &CapacityCalculator{store: store}
}

// ComputeCapacity sums the window-clipped durations of active bookings on
// the resource over [windowStart, windowEnd). Calling it for an exclusive
// resource is a programming error and is rejected.
func (c *CapacityCalculator) ComputeCapacity(ctx context.Context, tenantID, resourceID string, windowStart, windowEnd time.Time) (CapacityReport, error) {
	if !domain.ValidInterval(windowStart, windowEnd) {
		return CapacityReport{}, domain.ErrInvalidInterval
	}

	res, err := c.store.GetResource(ctx, tenantID, resourceID)
	if err != nil {
		return CapacityReport{}, err
	}
	if res.IsExclusive() {
		return CapacityReport{}, domain.ErrNotThroughput
	}

	bookings, err := c.store.ListActiveBookingsOverlapping(ctx, tenantID, resourceID, windowStart, windowEnd, "")
	if err != nil {
		return CapacityReport{}, err
	}

	return buildCapacityReport(res, bookings, windowStart, windowEnd), nil
}

// buildCapacityReport is the shared capacity math; the lifecycle manager
// reuses it under its transaction with bookings it fetched itself.
func buildCapacityReport(res domain.Resource, bookings []domain.Booking, windowStart, windowEnd time.Time) CapacityReport {
	scheduled := scheduledHours(bookings, windowStart, windowEnd)
	capacity := res.DailyCapacityUnits * windowEnd.Sub(windowStart).Hours() / 24

	report := CapacityReport{ScheduledUnits: scheduled}
	if capacity <= 0 {
		// Zero capacity means fully unavailable, not infinitely loaded.
		return report
	}

	report.AvailableUnits = capacity - scheduled
	if report.AvailableUnits < 0 {
		report.AvailableUnits = 0
	}
	report.UtilizationRatio = scheduled / capacity
	report.Overallocated = report.UtilizationRatio > 1
	return report
}

// scheduledHours accumulates each booking's interval clipped to the window.
func scheduledHours(bookings []domain.Booking, windowStart, windowEnd time.Time) float64 {
	var total float64
	for _, b := range bookings {
		total += clippedHours(b.StartTime, b.EndTime, windowStart, windowEnd)
	}
	return total
}

// clippedHours is the length of [start, end) restricted to
// [windowStart, windowEnd), in hours.
func clippedHours(start, end, windowStart, windowEnd time.Time) float64 {
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// dayWindows lists the start of every calendar day [start, end) touches,
// in the interval's location. The end bound is exclusive, so an interval
// ending exactly at midnight does not touch the following day.
func dayWindows(start, end time.Time) []time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	var days []time.Time
	for day.Before(end) {
		days = append(days, day)
		day = day.Add(24 * time.Hour)
	}
	return days
}
