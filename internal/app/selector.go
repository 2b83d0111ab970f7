package app

import (
	"context"
	"errors"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

// SelectorStore is the read surface best-fit selection needs beyond the
// detector and calculator.
type SelectorStore interface {
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	CountActiveBookingsFrom(ctx context.Context, tenantID, resourceID string, from time.Time) (int, error)
}

// Assignment is a winning candidate: book this resource over this window.
type Assignment struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Score      float64
}

// Selector picks the best feasible resource from a candidate pool for a
// required duration. It is a greedy, single-pass heuristic evaluated
// per request, not a global optimizer.
type Selector struct {
	store     SelectorStore
	conflicts *ConflictDetector
	capacity  *CapacityCalculator
}

func NewSelector(store SelectorStore, conflicts *ConflictDetector, capacity *CapacityCalculator) *Selector {
	return &Selector{store: store, conflicts: conflicts, capacity: capacity}
}

// SelectBestResource scores every candidate and returns the feasible one
// with the highest score; ties break to the lowest resource id so runs are
// deterministic. Exclusive resources are feasible when the window is
// conflict-free and score by fewest remaining bookings; throughput
// resources are feasible when every touched day's headroom covers the
// hours falling in it, and score by the tightest day's
// availableUnits - utilizationRatio, which favors slack and spreads load
// away from already-hot resources. Returns ErrNoFeasibleResource when
// nothing in the pool fits.
func (s *Selector) SelectBestResource(ctx context.Context, tenantID string, candidateIDs []string, requiredHours float64, preferredStart time.Time) (Assignment, error) {
	if requiredHours <= 0 {
		return Assignment{}, domain.ErrInvalidInterval
	}

	start := preferredStart
	end := start.Add(hoursToDuration(requiredHours))

	best := Assignment{}
	found := false

	for _, id := range candidateIDs {
		res, err := s.store.GetResource(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, domain.ErrResourceNotFound) || errors.Is(err, domain.ErrInvalidID) {
				continue
			}
			return Assignment{}, err
		}

		score, feasible, err := s.scoreCandidate(ctx, res, start, end)
		if err != nil {
			return Assignment{}, err
		}
		if !feasible {
			continue
		}

		if !found || score > best.Score || (score == best.Score && id < best.ResourceID) {
			best = Assignment{ResourceID: id, Start: start, End: end, Score: score}
			found = true
		}
	}

	if !found {
		return Assignment{}, domain.ErrNoFeasibleResource
	}
	return best, nil
}

func (s *Selector) scoreCandidate(ctx context.Context, res domain.Resource, start, end time.Time) (float64, bool, error) {
	if res.IsExclusive() {
		if res.OutOfRotation() {
			return 0, false, nil
		}
		conflicts, err := s.conflicts.FindConflicts(ctx, res.TenantID, res.ID, start, end, "")
		if err != nil {
			return 0, false, err
		}
		if len(conflicts) > 0 {
			return 0, false, nil
		}
		// Occupancy is binary; rank by how lightly the resource is booked
		// going forward.
		count, err := s.store.CountActiveBookingsFrom(ctx, res.TenantID, res.ID, start)
		if err != nil {
			return 0, false, err
		}
		return -float64(count), true, nil
	}

	// Headroom is judged per calendar day, so an 8h/day machine with 4h
	// already scheduled has 4h left no matter how long this particular
	// job is, and a window crossing midnight must also fit the next day.
	// The score is the tightest day's slack.
	var score float64
	for i, dayStart := range dayWindows(start, end) {
		dayEnd := dayStart.Add(24 * time.Hour)
		report, err := s.capacity.ComputeCapacity(ctx, res.TenantID, res.ID, dayStart, dayEnd)
		if err != nil {
			return 0, false, err
		}
		if report.AvailableUnits < clippedHours(start, end, dayStart, dayEnd) {
			return 0, false, nil
		}
		if dayScore := report.AvailableUnits - report.UtilizationRatio; i == 0 || dayScore < score {
			score = dayScore
		}
	}
	return score, true, nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
