package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/spinecat/spinecat/internal/pipeline"
	"github.com/spinecat/spinecat/internal/storage"
)

const maxUploadSize = 10 * 1024 * 1024

type Handler struct {
	jobStore *storage.JobStore
	pipe     *pipeline.Pipeline
}

func New(pipe *pipeline.Pipeline) *Handler {
	return &Handler{
		jobStore: storage.New(),
		pipe:     pipe,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	uploadsDir := "uploads"
	return os.MkdirAll(uploadsDir, 0755)
}
