package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/jobs"
)

// JobsHandler exposes recurrence job status for debugging and dashboards.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.OwnerID != ownerID {
		// job ids are not secrets, but job state is owner-scoped
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	filter := jobs.JobFilter{
		OwnerID: ownerID,
		Status:  jobs.JobStatus(r.URL.Query().Get("status")),
	}
	filter.Limit, filter.Offset = pagination(r)

	if s := r.URL.Query().Get("transaction_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction_id")
			return
		}
		filter.TransactionID = id
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
