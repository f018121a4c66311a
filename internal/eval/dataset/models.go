package dataset

import "github.com/spinecat/spinecat/internal/models"

// SpineCase is one labeled evaluation case: a raw spine OCR reading, the
// catalog record it should resolve to, and the candidate pool to rank.
type SpineCase struct {
	// CaseID identifies the case in reports.
	CaseID string `json:"case_id" parquet:"case_id"`

	// SpineText is the raw OCR reading, noise included.
	SpineText string `json:"spine_text" parquet:"spine_text"`

	// Ground truth for the expected match.
	ExpectedKey string `json:"expected_key" parquet:"expected_key"`
	Title       string `json:"title" parquet:"title"`
	Author      string `json:"author" parquet:"author"`
	Publisher   string `json:"publisher" parquet:"publisher"`

	// Candidates is the distractor pool retrieved for this spine.
	Candidates []CaseCandidate `json:"candidates" parquet:"candidates,list"`
}

// CaseCandidate is one candidate record embedded in a dataset case.
type CaseCandidate struct {
	Key       string   `json:"key" parquet:"key"`
	Title     string   `json:"title" parquet:"title"`
	Authors   []string `json:"authors" parquet:"authors,list"`
	Publisher string   `json:"publisher" parquet:"publisher"`
}

// CandidateRecords builds the candidate pool for matching. The expected
// record is appended when the embedded pool does not already contain it,
// so every case has a findable answer.
func (c *SpineCase) CandidateRecords() []models.CatalogRecord {
	records := make([]models.CatalogRecord, 0, len(c.Candidates)+1)
	hasExpected := false
	for _, cand := range c.Candidates {
		if cand.Key == c.ExpectedKey {
			hasExpected = true
		}
		records = append(records, models.CatalogRecord{
			Title:      cand.Title,
			Authors:    cand.Authors,
			Publisher:  cand.Publisher,
			ExternalID: cand.Key,
		})
	}
	if !hasExpected && c.ExpectedKey != "" {
		rec := models.CatalogRecord{
			Title:      c.Title,
			Publisher:  c.Publisher,
			ExternalID: c.ExpectedKey,
		}
		if c.Author != "" {
			rec.Authors = []string{c.Author}
		}
		records = append(records, rec)
	}
	return records
}
