package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

// BatchSubject is one pending item to schedule: an order, an appointment,
// a reservation.
type BatchSubject struct {
	ID             string
	RequiredHours  float64
	PreferredStart time.Time
}

// BatchResult is the per-subject outcome of a batch run. Either Assignment
// and BookingID are set, or Conflicts explains why nothing was booked.
type BatchResult struct {
	SubjectID  string
	Assignment *Assignment
	BookingID  string
	Conflicts  []string
	Warnings   []string
}

// BatchOptimizer applies best-fit selection across a list of subjects in
// the order the caller supplies; callers sort by priority beforehand if
// they care. Each successful selection is committed immediately, so later
// subjects in the same run see the load earlier ones added.
type BatchOptimizer struct {
	selector *Selector
	bookings *BookingService
	capacity *CapacityCalculator
}

func NewBatchOptimizer(selector *Selector, bookings *BookingService, capacity *CapacityCalculator) *BatchOptimizer {
	return &BatchOptimizer{selector: selector, bookings: bookings, capacity: capacity}
}

// OptimizeBatch never aborts on a per-subject failure; it always returns a
// result entry for every subject so a partial schedule is usable.
func (o *BatchOptimizer) OptimizeBatch(ctx context.Context, tenantID string, subjects []BatchSubject, candidateIDs []string) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(subjects))

	for _, subject := range subjects {
		result := BatchResult{SubjectID: subject.ID}

		assignment, err := o.selector.SelectBestResource(ctx, tenantID, candidateIDs, subject.RequiredHours, subject.PreferredStart)
		if err != nil {
			if errors.Is(err, domain.ErrNoFeasibleResource) {
				result.Conflicts = append(result.Conflicts, domain.ErrNoFeasibleResource.Error())
				result.Warnings = append(result.Warnings, o.overallocationWarnings(ctx, tenantID, candidateIDs, subject)...)
				results = append(results, result)
				continue
			}
			if errors.Is(err, domain.ErrInvalidInterval) {
				result.Conflicts = append(result.Conflicts, err.Error())
				results = append(results, result)
				continue
			}
			return results, err
		}

		booking, err := o.bookings.CreateBooking(ctx, tenantID, CreateBookingInput{
			ResourceID: assignment.ResourceID,
			SubjectID:  subject.ID,
			Start:      assignment.Start,
			End:        assignment.End,
		})
		if err != nil {
			// A concurrent writer can still win the window between
			// selection and commit; report it, don't fail the batch.
			result.Conflicts = append(result.Conflicts, err.Error())
			results = append(results, result)
			continue
		}

		a := assignment
		result.Assignment = &a
		result.BookingID = booking.ID
		results = append(results, result)
	}

	return results, nil
}

// overallocationWarnings surfaces candidates whose window is already
// loaded past capacity, so an infeasible item's diagnostics explain the
// fleet state.
func (o *BatchOptimizer) overallocationWarnings(ctx context.Context, tenantID string, candidateIDs []string, subject BatchSubject) []string {
	start := subject.PreferredStart
	end := start.Add(hoursToDuration(subject.RequiredHours))

	var warnings []string
	for _, id := range candidateIDs {
		for _, dayStart := range dayWindows(start, end) {
			report, err := o.capacity.ComputeCapacity(ctx, tenantID, id, dayStart, dayStart.Add(24*time.Hour))
			if err != nil {
				continue
			}
			if report.Overallocated {
				warnings = append(warnings, fmt.Sprintf("resource %s over-allocated (utilization %.2f)", id, report.UtilizationRatio))
				break
			}
		}
	}
	return warnings
}
