package match

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spinecat/spinecat/internal/models"
)

func testCatalog() []models.CatalogRecord {
	return []models.CatalogRecord{
		{
			Title:      "The Ballad of Songbirds and Snakes",
			Authors:    []string{"Suzanne Collins"},
			Publisher:  "Scholastic Press",
			ExternalID: "OL1",
		},
		{
			Title:      "The Ballad of Reading Gaol",
			Authors:    []string{"Oscar Wilde"},
			ExternalID: "OL2",
		},
		{
			Title:      "Songbirds of North America",
			Authors:    []string{"Fred J. Alsop"},
			ExternalID: "OL3",
		},
	}
}

func TestAdvancedEngine_NotFitted(t *testing.T) {
	eng := NewAdvancedEngine(true)
	_, err := eng.Match("anything", 5, 0.5)
	if !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestAdvancedEngine_NoisySpineQuery(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Spine OCR with a truncated author, shuffled fields, and publisher
	// noise. The Collins title must still win decisively.
	results, err := eng.Match("THE BALLAD OF OLLINS SONGBIRDS AND SNAKES SCHOLASTIC PRESS", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	top := results[0]
	if top.Record.ExternalID != "OL1" {
		t.Fatalf("expected OL1 on top, got %s (score %v)", top.Record.ExternalID, top.Score.Score)
	}
	if top.Score.Score < 0.65 {
		t.Errorf("top score too low: %v", top.Score.Score)
	}
	if top.Score.MatchType != models.MatchStrong && top.Score.MatchType != models.MatchExact {
		t.Errorf("top match should be at least strong, got %q (score %v)", top.Score.MatchType, top.Score.Score)
	}
	if top.Score.Score <= results[1].Score.Score {
		t.Errorf("winner should be clearly ahead: %v vs %v", top.Score.Score, results[1].Score.Score)
	}
}

func TestAdvancedEngine_ScoreContract(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	results, err := eng.Match("SONGBIRDS", 0, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	for i, r := range results {
		if r.Score.Score < 0 || r.Score.Score > 1 {
			t.Errorf("score out of bounds: %v", r.Score.Score)
		}
		if r.Score.Confidence != r.Score.Score {
			t.Errorf("confidence %v must equal score %v", r.Score.Confidence, r.Score.Score)
		}
		if got := matchTypeForScore(r.Score.Score); r.Score.MatchType != got {
			t.Errorf("match type %q inconsistent with score %v", r.Score.MatchType, r.Score.Score)
		}
		if i > 0 && r.Score.Score > results[i-1].Score.Score {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestAdvancedEngine_Deterministic(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	first, err := eng.Match("BALLAD SONGBIRDS COLLINS", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := eng.Match("BALLAD SONGBIRDS COLLINS", 5, 0.5)
		if err != nil {
			t.Fatalf("Match: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestAdvancedEngine_TopK(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tests := []struct {
		topK    int
		wantLen int
	}{
		{1, 1},
		{2, 2},
		{10, 3},
		{0, 3}, // no truncation
	}

	for _, tt := range tests {
		results, err := eng.Match("SONGBIRDS AND SNAKES", tt.topK, 0.5)
		if err != nil {
			t.Fatalf("Match(topK=%d): %v", tt.topK, err)
		}
		if len(results) != tt.wantLen {
			t.Errorf("topK=%d returned %d results, want %d", tt.topK, len(results), tt.wantLen)
		}
	}
}

func TestAdvancedEngine_EmptyInputs(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(nil); err != nil {
		t.Fatalf("Fit on empty catalog: %v", err)
	}
	results, err := eng.Match("ANY QUERY", 5, 0.5)
	if err != nil {
		t.Fatalf("Match against empty catalog: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty catalog should yield no results, got %d", len(results))
	}

	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	results, err = eng.Match("   !!!   ", 5, 0.5)
	if err != nil {
		t.Fatalf("Match on blank query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("blank query should yield no results, got %d", len(results))
	}
}

func TestAdvancedEngine_RefitReplacesCatalog(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if err := eng.Fit([]models.CatalogRecord{
		{Title: "Moby Dick", Authors: []string{"Herman Melville"}, ExternalID: "OL9"},
	}); err != nil {
		t.Fatalf("refit: %v", err)
	}

	results, err := eng.Match("MOBY DICK MELVILLE", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 1 || results[0].Record.ExternalID != "OL9" {
		t.Errorf("refit did not replace the fitted catalog: %+v", results)
	}
}

func TestAdvancedEngine_SingleRecordCatalog(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()[:1]); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	results, err := eng.Match("THE BALLAD OF SONGBIRDS AND SNAKES", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Score.Score < 0.55 {
		t.Errorf("near-exact query against its own record scored %v", results[0].Score.Score)
	}
}

func TestAdvancedEngine_ReorderedQueryStable(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	ordered, err := eng.Match("SONGBIRDS AND SNAKES COLLINS", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	shuffled, err := eng.Match("COLLINS SNAKES AND SONGBIRDS", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	if ordered[0].Record.ExternalID != shuffled[0].Record.ExternalID {
		t.Fatalf("token order changed the winner: %s vs %s",
			ordered[0].Record.ExternalID, shuffled[0].Record.ExternalID)
	}
	delta := ordered[0].Score.Score - shuffled[0].Score.Score
	if delta < 0 {
		delta = -delta
	}
	if delta > 0.15 {
		t.Errorf("token order moved the score by %v", delta)
	}
}

func TestAdvancedEngine_StopWordsDoNotCarryMatch(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Shares only filler words with every candidate.
	results, err := eng.Match("THE AND OF PRESS", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) > 0 && results[0].Score.Score >= 0.55 {
		t.Errorf("stop words alone should never reach moderate: %v", results[0].Score.Score)
	}
}

func TestAdvancedEngine_NoCharNgrams(t *testing.T) {
	eng := NewAdvancedEngine(false)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	results, err := eng.Match("THE BALLAD OF SONGBIRDS AND SNAKES SUZANNE COLLINS", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if results[0].Record.ExternalID != "OL1" {
		t.Errorf("expected OL1 on top, got %s", results[0].Record.ExternalID)
	}
	if f := results[0].Score.Features["char_ngram_cosine"]; f != 0 {
		t.Errorf("n-gram feature should be 0 when disabled, got %v", f)
	}
	if results[0].Score.Score < 0.8 {
		t.Errorf("full title and author query scored only %v", results[0].Score.Score)
	}
}

func TestAdvancedEngine_FeatureKeys(t *testing.T) {
	eng := NewAdvancedEngine(true)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	results, err := eng.Match("SONGBIRDS", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	for _, key := range []string{
		"char_ngram_cosine",
		"token_set_sim",
		"soft_tfidf_overlap",
		"author_lastname_sim",
		"distinctive_token_coverage",
	} {
		if _, ok := results[0].Score.Features[key]; !ok {
			t.Errorf("missing feature %q in %v", key, results[0].Score.Features)
		}
	}
}
