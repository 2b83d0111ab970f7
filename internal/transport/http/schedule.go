package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/candelahq/booking-engine/internal/app"
)

// ResourceSelector picks the best feasible resource for one request.
type ResourceSelector interface {
	SelectBestResource(ctx context.Context, tenantID string, candidateIDs []string, requiredHours float64, preferredStart time.Time) (app.Assignment, error)
}

// BatchScheduler runs best-fit selection over a list of subjects.
type BatchScheduler interface {
	OptimizeBatch(ctx context.Context, tenantID string, subjects []app.BatchSubject, candidateIDs []string) ([]app.BatchResult, error)
}

// HandleSelectResource returns a recommended assignment without booking it.
func HandleSelectResource(svc ResourceSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(req.CandidateIDs) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "candidate_ids is required")
			return
		}

		assignment, err := svc.SelectBestResource(r.Context(), TenantFromContext(r.Context()), req.CandidateIDs, req.RequiredHours, req.PreferredStart)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(assignmentResponse{
			ResourceID: assignment.ResourceID,
			Start:      assignment.Start,
			End:        assignment.End,
			Score:      assignment.Score,
		})
	}
}

type selectRequest struct {
	CandidateIDs   []string  `json:"candidate_ids"`
	RequiredHours  float64   `json:"required_hours"`
	PreferredStart time.Time `json:"preferred_start"`
}

type assignmentResponse struct {
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Score      float64   `json:"score"`
}

// HandleOptimizeBatch schedules a list of subjects in caller order and
// returns a per-subject outcome, booked or diagnosed.
func HandleOptimizeBatch(svc BatchScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(req.Subjects) == 0 || len(req.CandidateIDs) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "subjects and candidate_ids are required")
			return
		}

		subjects := make([]app.BatchSubject, 0, len(req.Subjects))
		for _, s := range req.Subjects {
			subjects = append(subjects, app.BatchSubject{
				ID:             s.ID,
				RequiredHours:  s.RequiredHours,
				PreferredStart: s.PreferredStart,
			})
		}

		results, err := svc.OptimizeBatch(r.Context(), TenantFromContext(r.Context()), subjects, req.CandidateIDs)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]batchResultResponse, 0, len(results))
		for _, res := range results {
			item := batchResultResponse{
				SubjectID: res.SubjectID,
				BookingID: res.BookingID,
				Conflicts: res.Conflicts,
				Warnings:  res.Warnings,
			}
			if res.Assignment != nil {
				item.Assignment = &assignmentResponse{
					ResourceID: res.Assignment.ResourceID,
					Start:      res.Assignment.Start,
					End:        res.Assignment.End,
					Score:      res.Assignment.Score,
				}
			}
			out = append(out, item)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

type batchRequest struct {
	Subjects     []batchSubjectRequest `json:"subjects"`
	CandidateIDs []string              `json:"candidate_ids"`
}

type batchSubjectRequest struct {
	ID             string    `json:"id"`
	RequiredHours  float64   `json:"required_hours"`
	PreferredStart time.Time `json:"preferred_start"`
}

type batchResultResponse struct {
	SubjectID  string              `json:"subject_id"`
	Assignment *assignmentResponse `json:"assignment,omitempty"`
	BookingID  string              `json:"booking_id,omitempty"`
	Conflicts  []string            `json:"conflicts,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
}
