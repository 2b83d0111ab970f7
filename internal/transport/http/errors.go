package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/candelahq/booking-engine/internal/domain"
)

const (
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidInterval    = "invalid_interval"
	codeInvalidID          = "invalid_id"
	codeNameRequired       = "resource_name_required"
	codeInvalidKind        = "invalid_kind"
	codeInvalidModel       = "invalid_capacity_model"
	codeInvalidUnits       = "invalid_capacity_units"
	codeInvalidStatus      = "invalid_status"
	codeStatusNotSettable  = "status_not_settable"
	codeResourceNotFound   = "resource_not_found"
	codeBookingNotFound    = "booking_not_found"
	codeBookingConflict    = "booking_conflict"
	codeCapacityExceeded   = "capacity_exceeded"
	codeInvalidTransition  = "invalid_transition"
	codeOutOfService       = "resource_out_of_service"
	codeNotThroughput      = "not_throughput_resource"
	codeNoFeasibleResource = "no_feasible_resource"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error     string           `json:"error"`
	Code      string           `json:"code"`
	Conflicts []conflictWindow `json:"conflicts,omitempty"`
	Shortfall *float64         `json:"shortfall_hours,omitempty"`
}

type conflictWindow struct {
	BookingID string    `json:"booking_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps engine errors to HTTP statuses. Conflict and
// capacity rejections carry enough detail for the caller to render an
// actionable message.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		resp := errorResponse{Error: conflictErr.Error(), Code: codeBookingConflict}
		for _, b := range conflictErr.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictWindow{
				BookingID: b.ID,
				Start:     b.StartTime,
				End:       b.EndTime,
			})
		}
		writeErrorResponse(w, http.StatusConflict, resp)
		return
	}

	var capacityErr *domain.CapacityExceededError
	if errors.As(err, &capacityErr) {
		shortfall := capacityErr.Shortfall()
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     capacityErr.Error(),
			Code:      codeCapacityExceeded,
			Shortfall: &shortfall,
		})
		return
	}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		writeError(w, http.StatusConflict, codeInvalidTransition, transitionErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, codeInvalidInterval, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrResourceNameRequired):
		writeError(w, http.StatusBadRequest, codeNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, codeInvalidKind, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacityModel):
		writeError(w, http.StatusBadRequest, codeInvalidModel, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacityUnits):
		writeError(w, http.StatusBadRequest, codeInvalidUnits, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrStatusNotSettable):
		writeError(w, http.StatusBadRequest, codeStatusNotSettable, err.Error())
	case errors.Is(err, domain.ErrNotThroughput):
		writeError(w, http.StatusBadRequest, codeNotThroughput, err.Error())
	case errors.Is(err, domain.ErrResourceOutOfService):
		writeError(w, http.StatusConflict, codeOutOfService, err.Error())
	case errors.Is(err, domain.ErrNoFeasibleResource):
		writeError(w, http.StatusConflict, codeNoFeasibleResource, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
