package match

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/textnorm"
)

// Legacy ensemble weights, applied as a raw weighted sum. A strategy
// that is unavailable contributes zero; the cap below bounds the total.
const (
	legacyWeightToken     = 0.40
	legacyWeightChar      = 0.25
	legacyWeightFuzzy     = 0.20
	legacyWeightWordOrder = 0.15
	legacyWeightSemantic  = 0.15
	legacyWeightTFIDF     = 0.10
	legacyWeightField     = 0.20
)

// legacyScoreCap keeps every combined score strictly below the exact tier;
// only the exact-title short-circuit can reach 1.0.
const legacyScoreCap = 0.95

// LegacyEngine ranks candidates with the original fuzzy-ratio ensemble:
// token overlap, character similarity, fuzzy ratios, word order, optional
// embedding similarity, word TF-IDF cosine, and field-weighted scoring.
// An exact normalized title match short-circuits to a perfect score.
// Safe for concurrent use; Fit and Match serialize on an internal mutex.
type LegacyEngine struct {
	mu       sync.Mutex
	embedder Embedder
	fitted   bool
	entries  []fittedEntry
	stats    *corpusStats
	// candVecs[i] is the embedding of entries[i].norm, nil when the
	// embedder is absent or failed at fit time.
	candVecs [][]float64
}

// NewLegacyEngine returns an unfitted legacy engine. embedder may be nil,
// in which case the semantic strategy is skipped.
func NewLegacyEngine(embedder Embedder) *LegacyEngine {
	return &LegacyEngine{embedder: embedder}
}

// Fit indexes the catalog, replacing any previously fitted state. Candidate
// embeddings are computed once here; an embedding failure disables the
// semantic strategy for this fit rather than failing the call.
func (e *LegacyEngine) Fit(catalog []models.CatalogRecord) error {
	entries := buildEntries(catalog)

	docs := make([][]string, len(entries))
	norms := make([]string, len(entries))
	for i, en := range entries {
		docs[i] = en.tokens
		norms[i] = en.norm
	}

	var candVecs [][]float64
	if e.embedder != nil && len(norms) > 0 {
		vecs, err := e.embedder.Embed(norms)
		if err != nil || len(vecs) != len(norms) {
			slog.Warn("candidate embedding failed, semantic scoring disabled", "error", err)
		} else {
			candVecs = vecs
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = entries
	e.stats = fitCorpus(docs, norms, false)
	e.candVecs = candVecs
	e.fitted = true

	slog.Debug("matcher fitted", "engine", "legacy", "candidates", len(entries), "embeddings", candVecs != nil)
	return nil
}

// Match scores every fitted candidate against query and returns at most
// topK results sorted by score descending, catalog order breaking ties.
// confidenceThreshold is advisory only.
func (e *LegacyEngine) Match(query string, topK int, confidenceThreshold float64) ([]models.RankedResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fitted {
		return nil, ErrNotFitted
	}

	normalized := textnorm.Normalize(query)
	if normalized == "" || len(e.entries) == 0 {
		return []models.RankedResult{}, nil
	}

	variants := queryVariants(normalized)
	queryWords := strings.Fields(normalized)

	variantVecs := e.embedVariants(variants)

	results := make([]models.RankedResult, 0, len(e.entries))
	for i := range e.entries {
		entry := &e.entries[i]
		score, features := scoreCandidate(func() (float64, map[string]float64) {
			return e.scoreEntry(variants, variantVecs, queryWords, entry, i)
		})
		results = append(results, models.RankedResult{
			Record: entry.record,
			Score: models.MatchScore{
				Score:      score,
				MatchType:  matchTypeForScore(score),
				Confidence: score,
				Features:   features,
			},
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score.Score > results[b].Score.Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	if len(results) > 0 && results[0].Score.Score < confidenceThreshold {
		slog.Debug("top match below confidence threshold",
			"query", query,
			"top_score", results[0].Score.Score,
			"threshold", confidenceThreshold,
		)
	}

	return results, nil
}

// embedVariants returns one embedding per variant, or nil when embeddings
// are unavailable for this fit or the call fails.
func (e *LegacyEngine) embedVariants(variants []string) [][]float64 {
	if e.embedder == nil || e.candVecs == nil {
		return nil
	}
	vecs, err := e.embedder.Embed(variants)
	if err != nil || len(vecs) != len(variants) {
		slog.Warn("query embedding failed, semantic scoring skipped", "error", err)
		return nil
	}
	return vecs
}

func (e *LegacyEngine) scoreEntry(variants []string, variantVecs [][]float64, queryWords []string, entry *fittedEntry, docIdx int) (float64, map[string]float64) {
	// An exact normalized title on any query reading is the one case
	// allowed to outrank every fuzzy combination.
	if entry.titleNorm != "" {
		for _, v := range variants {
			if v == entry.titleNorm {
				return 1.0, map[string]float64{"exact_title": 1}
			}
		}
	}

	entryWords := strings.Fields(entry.norm)

	var tokenScore, charScore, fuzzy, wordOrder, semantic, tfidf, field float64
	for _, v := range variants {
		vTokens := textnorm.Tokens(v)
		if s := tokenBasedScore(vTokens, entry.tokenSet); s > tokenScore {
			tokenScore = s
		}
		if s := charSimilarityScore(v, entry.norm); s > charScore {
			charScore = s
		}
		if s := fuzzyScore(v, entry.norm); s > fuzzy {
			fuzzy = s
		}
		if s := wordOrderScore(strings.Fields(v), entryWords); s > wordOrder {
			wordOrder = s
		}
		if s := wordTFIDFCosine(vTokens, entry.tokens, e.stats); s > tfidf {
			tfidf = s
		}
		if s := fieldWeightedScore(v, entry, entry.pubNorm); s > field {
			field = s
		}
	}

	semanticActive := false
	if variantVecs != nil && docIdx < len(e.candVecs) {
		semanticActive = true
		for _, qv := range variantVecs {
			if s := embeddingCosine(qv, e.candVecs[docIdx]); s > semantic {
				semantic = s
			}
		}
	}

	score := legacyWeightToken*tokenScore +
		legacyWeightChar*charScore +
		legacyWeightFuzzy*fuzzy +
		legacyWeightWordOrder*wordOrder +
		legacyWeightSemantic*semantic +
		legacyWeightTFIDF*tfidf +
		legacyWeightField*field

	// A query much longer than the title is mostly noise.
	titleWords := strings.Fields(entry.titleNorm)
	if len(titleWords) > 0 && len(queryWords) > 2*len(titleWords) {
		score *= 0.8
	}
	// Weak lexical and weak character signal together mean the other
	// strategies are probably matching on coincidence.
	if tokenScore < 0.3 && charScore < 0.3 {
		score *= 0.7
	}

	if score > legacyScoreCap {
		score = legacyScoreCap
	}
	if score < 0 {
		score = 0
	}

	features := map[string]float64{
		"token_overlap":   tokenScore,
		"char_similarity": charScore,
		"fuzzy_ratio":     fuzzy,
		"word_order":      wordOrder,
		"tfidf_cosine":    tfidf,
		"field_weighted":  field,
	}
	if semanticActive {
		features["semantic_sim"] = semantic
	}
	return score, features
}
