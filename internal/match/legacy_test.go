package match

import (
	"errors"
	"testing"

	"github.com/spinecat/spinecat/internal/models"
)

// stubEmbedder returns a fixed-dimension vector derived from token counts,
// deterministic and cheap.
type stubEmbedder struct {
	fail  bool
	calls int
}

func (s *stubEmbedder) Embed(texts []string) ([][]float64, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("embedding backend unavailable")
	}
	vecs := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, 26)
		for _, r := range t {
			if r >= 'A' && r <= 'Z' {
				vec[r-'A']++
			}
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func TestLegacyEngine_NotFitted(t *testing.T) {
	eng := NewLegacyEngine(nil)
	_, err := eng.Match("anything", 5, 0.5)
	if !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestLegacyEngine_ExactTitleShortCircuit(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Raw casing and punctuation normalize away before the comparison.
	results, err := eng.Match("The Ballad of Songbirds & Snakes", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	top := results[0]
	if top.Record.ExternalID != "OL1" {
		t.Fatalf("expected OL1 on top, got %s", top.Record.ExternalID)
	}
	if top.Score.Score != 1.0 {
		t.Errorf("exact title should score 1.0, got %v", top.Score.Score)
	}
	if top.Score.MatchType != models.MatchExact {
		t.Errorf("exact title should be typed %q, got %q", models.MatchExact, top.Score.MatchType)
	}
}

func TestLegacyEngine_VariantExactTitle(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit([]models.CatalogRecord{
		{Title: "The Hunger Games", Authors: []string{"Suzanne Collins"}, ExternalID: "OL1"},
		{Title: "Catching Fire", Authors: []string{"Suzanne Collins"}, ExternalID: "OL2"},
	}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// The full query is not the title, but its first-three-words variant is.
	results, err := eng.Match("THE HUNGER GAMES SCHOLASTIC PRESS PAPERBACK", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	top := results[0]
	if top.Record.ExternalID != "OL1" {
		t.Fatalf("expected OL1 on top, got %s", top.Record.ExternalID)
	}
	if top.Score.Score != 1.0 {
		t.Errorf("title hidden in a longer query should score 1.0, got %v", top.Score.Score)
	}
	if top.Score.MatchType != models.MatchExact {
		t.Errorf("expected %q, got %q", models.MatchExact, top.Score.MatchType)
	}
}

func TestLegacyEngine_NoisySpineQuery(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Same noisy spine reading the advanced engine is held to: truncated
	// author, publisher noise, no variant equal to any title.
	results, err := eng.Match("THE BALLAD OF OLLINS SONGBIRDS AND SNAKES SCHOLASTIC PRESS", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
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

func TestLegacyEngine_ScoreCap(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Near-perfect but not an exact title: title plus author.
	results, err := eng.Match("THE BALLAD OF SONGBIRDS AND SNAKES SUZANNE COLLINS", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	for _, r := range results {
		if r.Score.Score > legacyScoreCap {
			t.Errorf("non-exact score %v exceeds cap for %s", r.Score.Score, r.Record.ExternalID)
		}
	}
	if results[0].Record.ExternalID != "OL1" {
		t.Errorf("expected OL1 on top, got %s", results[0].Record.ExternalID)
	}
}

func TestLegacyEngine_RankingAndBounds(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	results, err := eng.Match("READING GAOL WILDE", 0, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Record.ExternalID != "OL2" {
		t.Errorf("expected OL2 on top, got %s", results[0].Record.ExternalID)
	}
	for i, r := range results {
		if r.Score.Score < 0 || r.Score.Score > 1 {
			t.Errorf("score out of bounds: %v", r.Score.Score)
		}
		if r.Score.Confidence != r.Score.Score {
			t.Errorf("confidence must equal score, got %v vs %v", r.Score.Confidence, r.Score.Score)
		}
		if i > 0 && r.Score.Score > results[i-1].Score.Score {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestLegacyEngine_EmptyInputs(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(nil); err != nil {
		t.Fatalf("Fit on empty catalog: %v", err)
	}
	results, err := eng.Match("ANY QUERY", 5, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty catalog should yield no results, got %d", len(results))
	}

	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	results, err = eng.Match("", 5, 0.5)
	if err != nil {
		t.Fatalf("Match on empty query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty query should yield no results, got %d", len(results))
	}
}

func TestLegacyEngine_WithEmbedder(t *testing.T) {
	emb := &stubEmbedder{}
	eng := NewLegacyEngine(emb)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("candidates should be embedded once at fit time, got %d calls", emb.calls)
	}

	results, err := eng.Match("SONGBIRDS AND SNAKES", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if _, ok := results[0].Score.Features["semantic_sim"]; !ok {
		t.Errorf("semantic feature missing with a working embedder: %v", results[0].Score.Features)
	}
}

func TestLegacyEngine_EmbedderFailureIsNonFatal(t *testing.T) {
	eng := NewLegacyEngine(&stubEmbedder{fail: true})
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit should tolerate embedding failure: %v", err)
	}

	results, err := eng.Match("SONGBIRDS AND SNAKES", 1, 0.5)
	if err != nil {
		t.Fatalf("Match should tolerate embedding failure: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a result despite embedding failure, got %d", len(results))
	}
	if _, ok := results[0].Score.Features["semantic_sim"]; ok {
		t.Error("semantic feature should be absent when embeddings are unavailable")
	}
}

func TestLegacyEngine_NoisyQueryPenalty(t *testing.T) {
	eng := NewLegacyEngine(nil)
	if err := eng.Fit(testCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	clean, err := eng.Match("SONGBIRDS OF NORTH AMERICA", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	noisy, err := eng.Match("SONGBIRDS OF NORTH AMERICA SHELF B3 ROW 9 LIBRARY STAMP COPY TWO DISCARD", 1, 0.5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	if clean[0].Record.ExternalID != "OL3" || noisy[0].Record.ExternalID != "OL3" {
		t.Fatalf("expected OL3 on top for both queries")
	}
	if noisy[0].Score.Score >= clean[0].Score.Score {
		t.Errorf("padded query %v should score below clean query %v",
			noisy[0].Score.Score, clean[0].Score.Score)
	}
}
