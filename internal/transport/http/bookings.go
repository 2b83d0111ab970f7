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

// BookingLifecycle is the surface the booking handlers need.
type BookingLifecycle interface {
	CreateBooking(ctx context.Context, tenantID string, in app.CreateBookingInput) (domain.Booking, error)
	Transition(ctx context.Context, tenantID, bookingID string, newStatus domain.BookingStatus) (domain.Booking, error)
	Reschedule(ctx context.Context, tenantID, bookingID string, newStart, newEnd time.Time) (domain.Booking, error)
	GetBooking(ctx context.Context, tenantID, bookingID string) (domain.Booking, error)
	ListBookings(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]domain.Booking, error)
}

type bookingResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	SubjectID  string    `json:"subject_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	Priority   int       `json:"priority"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		ResourceID: b.ResourceID,
		SubjectID:  b.SubjectID,
		Start:      b.StartTime,
		End:        b.EndTime,
		Status:     string(b.Status),
		Priority:   b.Priority,
	}
}

// HandleCreateBooking creates a booking after conflict/capacity validation.
func HandleCreateBooking(svc BookingLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ResourceID == "" || req.SubjectID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "resource_id and subject_id are required")
			return
		}

		booking, err := svc.CreateBooking(r.Context(), TenantFromContext(r.Context()), app.CreateBookingInput{
			ResourceID: req.ResourceID,
			SubjectID:  req.SubjectID,
			Start:      req.Start,
			End:        req.End,
			Priority:   req.Priority,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

type createBookingRequest struct {
	ResourceID string    `json:"resource_id"`
	SubjectID  string    `json:"subject_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Priority   int       `json:"priority"`
}

// HandleGetBooking fetches one booking.
func HandleGetBooking(svc BookingLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, err := svc.GetBooking(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

// HandleListBookings lists a resource's bookings intersecting a window.
func HandleListBookings(svc BookingLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID := r.URL.Query().Get("resource_id")
		if resourceID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "resource_id is required")
			return
		}
		from, to, err := parseWindow(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInterval, "from and to must be RFC3339 timestamps with from < to")
			return
		}

		bookings, err := svc.ListBookings(r.Context(), TenantFromContext(r.Context()), resourceID, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]bookingResponse, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, toBookingResponse(b))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// HandleTransitionBooking moves a booking along the lifecycle graph.
func HandleTransitionBooking(svc BookingLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		booking, err := svc.Transition(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"), domain.BookingStatus(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

type transitionRequest struct {
	Status string `json:"status"`
}

// HandleRescheduleBooking atomically moves a booking to a new window.
func HandleRescheduleBooking(svc BookingLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rescheduleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		booking, err := svc.Reschedule(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"), req.Start, req.End)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
