package models

import "time"

// CatalogRecord is a candidate bibliographic entry retrieved from an
// external book search service. The matching engine only reads it.
type CatalogRecord struct {
	Title      string         `json:"title"`
	Authors    []string       `json:"authors,omitempty"`
	Publisher  string         `json:"publisher,omitempty"`
	ExternalID string         `json:"external_id"`
	RawFields  map[string]any `json:"raw_fields,omitempty"` // passthrough, never interpreted
}

// Match type tiers, derived from the final score.
const (
	MatchExact    = "exact"
	MatchStrong   = "strong"
	MatchModerate = "moderate"
	MatchWeak     = "weak"
	MatchPoor     = "poor"
)

// MatchScore is the scored outcome for one (query, candidate) pair.
// Confidence always equals Score; there is no separate confidence model.
type MatchScore struct {
	Score      float64            `json:"score"`
	MatchType  string             `json:"match_type"`
	Confidence float64            `json:"confidence"`
	Features   map[string]float64 `json:"features,omitempty"` // per-strategy diagnostics
}

// RankedResult pairs a catalog record with its match score.
type RankedResult struct {
	Record CatalogRecord `json:"record"`
	Score  MatchScore    `json:"match"`
}

// SpineText is the OCR output attributed to one detected book spine.
type SpineText struct {
	SpineID    string  `json:"spine_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// DenoisedText is the cleaned form of raw spine OCR text.
type DenoisedText struct {
	OriginalText string   `json:"original_text"`
	DenoisedText string   `json:"denoised_text"`
	Confidence   float64  `json:"confidence"`
	Steps        []string `json:"steps,omitempty"`
}

// PipelineResult is the complete outcome for a single spine: the text that
// went in, the candidates considered, and the ranked matches that came out.
type PipelineResult struct {
	SpineID        string         `json:"spine_id"`
	RawText        string         `json:"raw_text"`
	Denoised       *DenoisedText  `json:"denoised,omitempty"`
	CandidateCount int            `json:"candidate_count"`
	Matches        []RankedResult `json:"matches"`
	BestMatch      *RankedResult  `json:"best_match,omitempty"`
	ProcessingTime float64        `json:"processing_time_seconds"`
	Success        bool           `json:"success"`
	Errors         []string       `json:"errors,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// MatchJob tracks one spine-matching request submitted over HTTP.
type MatchJob struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"` // "pending", "running", "done", "failed"
	Results   []*PipelineResult `json:"results,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
