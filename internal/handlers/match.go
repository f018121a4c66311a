package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spinecat/spinecat/internal/models"
)

// HandleMatch matches one piece of spine text synchronously. When the
// request carries its own candidate records they are used directly;
// otherwise candidates are retrieved from Open Library.
func (h *Handler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SpineID    string                 `json:"spine_id"`
		Text       string                 `json:"text"`
		Candidates []models.CatalogRecord `json:"candidates"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(request.Text) == "" {
		h.writeError(w, "text is required", http.StatusBadRequest)
		return
	}
	if request.SpineID == "" {
		request.SpineID = "spine_1"
	}

	var (
		result *models.PipelineResult
		err    error
	)
	if len(request.Candidates) > 0 {
		result, err = h.pipe.MatchAgainstCandidates(r.Context(), request.SpineID, request.Text, request.Candidates)
	} else {
		result, err = h.pipe.MatchText(r.Context(), request.SpineID, request.Text)
	}
	if err != nil {
		h.writeError(w, "Failed to match spine text: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result)
}
