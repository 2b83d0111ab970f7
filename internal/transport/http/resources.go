package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/candelahq/booking-engine/internal/app"
	"github.com/candelahq/booking-engine/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ResourceRegistry is the surface the resource handlers need.
type ResourceRegistry interface {
	CreateResource(ctx context.Context, tenantID string, in app.CreateResourceInput) (domain.Resource, error)
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	ListResources(ctx context.Context, tenantID string, kind domain.ResourceKind) ([]domain.Resource, error)
	SetResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) (domain.Resource, error)
}

// CapacityReader computes a throughput resource's load over a window.
type CapacityReader interface {
	ComputeCapacity(ctx context.Context, tenantID, resourceID string, windowStart, windowEnd time.Time) (app.CapacityReport, error)
}

type resourceResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Kind               string  `json:"kind"`
	CapacityModel      string  `json:"capacity_model"`
	DailyCapacityUnits float64 `json:"daily_capacity_units"`
	Status             string  `json:"status"`
}

func toResourceResponse(res domain.Resource) resourceResponse {
	return resourceResponse{
		ID:                 res.ID,
		Name:               res.Name,
		Kind:               string(res.Kind),
		CapacityModel:      string(res.CapacityModel),
		DailyCapacityUnits: res.DailyCapacityUnits,
		Status:             string(res.Status),
	}
}

// HandleCreateResource registers a new bookable resource.
func HandleCreateResource(svc ResourceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createResourceRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.CreateResource(r.Context(), TenantFromContext(r.Context()), app.CreateResourceInput{
			Name:               req.Name,
			Kind:               domain.ResourceKind(req.Kind),
			CapacityModel:      domain.CapacityModel(req.CapacityModel),
			DailyCapacityUnits: req.DailyCapacityUnits,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toResourceResponse(res))
	}
}

type createResourceRequest struct {
	Name               string  `json:"name"`
	Kind               string  `json:"kind"`
	CapacityModel      string  `json:"capacity_model"`
	DailyCapacityUnits float64 `json:"daily_capacity_units"`
}

// HandleListResources lists a tenant's resources, optionally by kind.
func HandleListResources(svc ResourceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := domain.ResourceKind(r.URL.Query().Get("kind"))

		resources, err := svc.ListResources(r.Context(), TenantFromContext(r.Context()), kind)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]resourceResponse, 0, len(resources))
		for _, res := range resources {
			out = append(out, toResourceResponse(res))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// HandleGetResource fetches one resource.
func HandleGetResource(svc ResourceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResource(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toResourceResponse(res))
	}
}

// HandleSetResourceStatus applies an administrative status override.
func HandleSetResourceStatus(svc ResourceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setStatusRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.SetResourceStatus(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"), domain.ResourceStatus(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toResourceResponse(res))
	}
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// HandleResourceCapacity reports scheduled load and headroom over a window.
func HandleResourceCapacity(svc CapacityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseWindow(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInterval, "from and to must be RFC3339 timestamps with from < to")
			return
		}

		report, err := svc.ComputeCapacity(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(capacityResponse{
			ScheduledUnits:   report.ScheduledUnits,
			AvailableUnits:   report.AvailableUnits,
			UtilizationRatio: report.UtilizationRatio,
			Overallocated:    report.Overallocated,
		})
	}
}

type capacityResponse struct {
	ScheduledUnits   float64 `json:"scheduled_units"`
	AvailableUnits   float64 `json:"available_units"`
	UtilizationRatio float64 `json:"utilization_ratio"`
	Overallocated    bool    `json:"overallocated"`
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !domain.ValidInterval(from, to) {
		return time.Time{}, time.Time{}, domain.ErrInvalidInterval
	}
	return from, to, nil
}
