package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/candelahq/booking-engine/internal/app"
	"github.com/candelahq/booking-engine/internal/domain"
	"github.com/sirupsen/logrus"
)

type stubRegistry struct {
	resource  domain.Resource
	resources []domain.Resource
	err       error
}

func (s *stubRegistry) CreateResource(_ context.Context, _ string, _ app.CreateResourceInput) (domain.Resource, error) {
	return s.resource, s.err
}

func (s *stubRegistry) GetResource(_ context.Context, _, _ string) (domain.Resource, error) {
	return s.resource, s.err
}

func (s *stubRegistry) ListResources(_ context.Context, _ string, _ domain.ResourceKind) ([]domain.Resource, error) {
	return s.resources, s.err
}

func (s *stubRegistry) SetResourceStatus(_ context.Context, _, _ string, _ domain.ResourceStatus) (domain.Resource, error) {
	return s.resource, s.err
}

type stubCapacity struct {
	report app.CapacityReport
	err    error
}

func (s *stubCapacity) ComputeCapacity(_ context.Context, _, _ string, _, _ time.Time) (app.CapacityReport, error) {
	return s.report, s.err
}

type stubSelector struct {
	assignment app.Assignment
	err        error
}

func (s *stubSelector) SelectBestResource(_ context.Context, _ string, _ []string, _ float64, _ time.Time) (app.Assignment, error) {
	return s.assignment, s.err
}

type stubBatch struct {
	results []app.BatchResult
	err     error
}

func (s *stubBatch) OptimizeBatch(_ context.Context, _ string, _ []app.BatchSubject, _ []string) ([]app.BatchResult, error) {
	return s.results, s.err
}

func testRouter(svcs Services) http.Handler {
	if svcs.Registry == nil {
		svcs.Registry = &stubRegistry{}
	}
	if svcs.Capacity == nil {
		svcs.Capacity = &stubCapacity{}
	}
	if svcs.Bookings == nil {
		svcs.Bookings = &stubLifecycle{}
	}
	if svcs.Selector == nil {
		svcs.Selector = &stubSelector{}
	}
	if svcs.Batch == nil {
		svcs.Batch = &stubBatch{}
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svcs.Logger = logger
	return NewRouter(svcs)
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("health is public", func(t *testing.T) {
		router := testRouter(Services{})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("engine routes require a tenant", func(t *testing.T) {
		router := testRouter(Services{})
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("path params reach the handlers", func(t *testing.T) {
		router := testRouter(Services{
			Registry: &stubRegistry{resource: domain.Resource{
				ID: "res-1", Name: "Room A", Kind: domain.KindRoom,
				CapacityModel: domain.CapacityExclusive, Status: domain.StatusAvailable,
			}},
		})
		req := httptest.NewRequest(http.MethodGet, "/resources/res-1", nil)
		req.Header.Set(tenantHeader, "t1")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"id":"res-1"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("infeasible selection maps to conflict", func(t *testing.T) {
		router := testRouter(Services{
			Selector: &stubSelector{err: domain.ErrNoFeasibleResource},
		})
		body := `{"candidate_ids":["res-1"],"required_hours":2,"preferred_start":"2025-03-01T09:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/schedule/select", strings.NewReader(body))
		req.Header.Set(tenantHeader, "t1")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "no_feasible_resource") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("batch results pass through", func(t *testing.T) {
		start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		router := testRouter(Services{
			Batch: &stubBatch{results: []app.BatchResult{
				{
					SubjectID: "s1",
					BookingID: "booking-1",
					Assignment: &app.Assignment{
						ResourceID: "res-1", Start: start, End: start.Add(2 * time.Hour),
					},
				},
				{SubjectID: "s2", Conflicts: []string{"no feasible resource"}},
			}},
		})
		body := `{"subjects":[{"id":"s1","required_hours":2,"preferred_start":"2025-03-01T09:00:00Z"}],"candidate_ids":["res-1"]}`
		req := httptest.NewRequest(http.MethodPost, "/schedule/batch", strings.NewReader(body))
		req.Header.Set(tenantHeader, "t1")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := rec.Body.String()
		if !strings.Contains(got, `"booking_id":"booking-1"`) || !strings.Contains(got, `"subject_id":"s2"`) {
			t.Fatalf("unexpected body: %s", got)
		}
	})

	t.Run("unknown routes return a json 404", func(t *testing.T) {
		router := testRouter(Services{})
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "not_found") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("capacity endpoint validates the window", func(t *testing.T) {
		router := testRouter(Services{})
		req := httptest.NewRequest(http.MethodGet, "/resources/res-1/capacity?from=bad&to=worse", nil)
		req.Header.Set(tenantHeader, "t1")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
