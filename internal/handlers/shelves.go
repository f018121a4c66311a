package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"log/slog"
)

// HandleShelfUpload accepts a bookshelf photograph, registers an async
// match job, and starts processing in the background. The response holds
// the job ID to poll.
func (h *Handler) HandleShelfUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("files")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) >= maxUploadSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job := h.jobStore.Create()
	imagePath := filepath.Join("uploads", fmt.Sprintf("%s%s", job.ID, filepath.Ext(header.Filename)))
	if err := os.WriteFile(imagePath, fileData, 0644); err != nil {
		h.jobStore.SetFailed(job.ID, "failed to store upload")
		h.writeError(w, "Failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	go h.runShelfJob(job.ID, imagePath)

	w.WriteHeader(http.StatusAccepted)
	h.writeJSON(w, map[string]any{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Shelf image accepted for processing",
	})
}

// runShelfJob executes the pipeline for one uploaded image. The request
// context is gone by the time this runs, so the job carries its own
// deadline.
func (h *Handler) runShelfJob(jobID, imagePath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	h.jobStore.SetRunning(jobID)
	slog.Info("Shelf job started", "job_id", jobID, "image", imagePath)

	results, err := h.pipe.ProcessImage(ctx, imagePath)
	if err != nil {
		slog.Error("Shelf job failed", "job_id", jobID, "err", err)
		h.jobStore.SetFailed(jobID, err.Error())
		return
	}

	h.jobStore.SetDone(jobID, results)
	slog.Info("Shelf job finished", "job_id", jobID, "spines", len(results))
}
