package handlers

import (
	"net/http"
	"strings"
)

// HandleJobs lists all jobs.
func (h *Handler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.jobStore.GetAll())
}

// HandleJobDetail returns one job by ID, including its results once done.
func (h *Handler) HandleJobDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		h.writeError(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	job, exists := h.jobStore.Get(jobID)
	if !exists {
		h.writeError(w, "Job not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, job)
}
