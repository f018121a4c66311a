package match

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/textnorm"
)

// Advanced ensemble weights. The character n-gram cosine carries the most
// signal on noisy OCR because it needs no intact word boundaries.
const (
	weightCharNgram   = 0.35
	weightTokenSet    = 0.25
	weightSoftTFIDF   = 0.20
	weightAuthorLast  = 0.15
	weightDistinctive = 0.05
)

// AdvancedEngine ranks candidates with a character n-gram TF-IDF cosine,
// token-set similarity, soft-TFIDF fuzzy token overlap, author last-name
// similarity, and distinctive-token coverage. Safe for concurrent use;
// Fit and Match serialize on an internal mutex.
type AdvancedEngine struct {
	mu            sync.Mutex
	useCharNgrams bool
	fitted        bool
	entries       []fittedEntry
	stats         *corpusStats
}

// NewAdvancedEngine returns an unfitted advanced engine.
func NewAdvancedEngine(useCharNgrams bool) *AdvancedEngine {
	return &AdvancedEngine{useCharNgrams: useCharNgrams}
}

// Fit indexes the catalog, replacing any previously fitted state. An empty
// catalog is legal and makes every subsequent Match return no results.
func (e *AdvancedEngine) Fit(catalog []models.CatalogRecord) error {
	entries := buildEntries(catalog)

	docs := make([][]string, len(entries))
	norms := make([]string, len(entries))
	for i, en := range entries {
		docs[i] = en.tokens
		norms[i] = en.norm
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = entries
	e.stats = fitCorpus(docs, norms, e.useCharNgrams)
	e.fitted = true

	slog.Debug("matcher fitted", "engine", "advanced", "candidates", len(entries), "char_ngrams", e.useCharNgrams)
	return nil
}

// Match scores every fitted candidate against query and returns at most
// topK results sorted by score descending, catalog order breaking ties.
// confidenceThreshold is advisory: a top result below it is logged, never
// dropped.
func (e *AdvancedEngine) Match(query string, topK int, confidenceThreshold float64) ([]models.RankedResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fitted {
		return nil, ErrNotFitted
	}

	normalized := textnorm.Normalize(query)
	if normalized == "" || len(e.entries) == 0 {
		return []models.RankedResult{}, nil
	}

	variants := e.buildVariants(normalized)

	results := make([]models.RankedResult, 0, len(e.entries))
	for i := range e.entries {
		entry := &e.entries[i]
		score, features := scoreCandidate(func() (float64, map[string]float64) {
			return e.scoreEntry(variants, entry, i)
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

// matchVariant is a precomputed form of one query reading.
type matchVariant struct {
	text     string
	tokens   []string
	ngramVec map[string]float64
}

// buildVariants expands the normalized query into word-subsequence and OCR
// confusion readings and precomputes per-variant state.
func (e *AdvancedEngine) buildVariants(normalized string) []matchVariant {
	seen := make(map[string]struct{})
	var texts []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		texts = append(texts, v)
	}

	for _, v := range queryVariants(normalized) {
		add(v)
	}
	for _, v := range textnorm.ConfusionVariants(normalized) {
		add(v)
	}

	variants := make([]matchVariant, 0, len(texts))
	for _, t := range texts {
		mv := matchVariant{text: t, tokens: textnorm.Tokens(t)}
		if e.stats.ngrams != nil {
			mv.ngramVec = e.stats.ngrams.queryVector(t)
		}
		variants = append(variants, mv)
	}
	return variants
}

// scoreEntry takes the best value of each strategy across all query
// variants, then combines them with the fixed ensemble weights.
func (e *AdvancedEngine) scoreEntry(variants []matchVariant, entry *fittedEntry, docIdx int) (float64, map[string]float64) {
	var charNgram, tokenSet, softTfidf, authorLast, distinctive float64

	for _, v := range variants {
		if e.stats.ngrams != nil {
			if s := e.stats.ngrams.cosineAgainstDoc(v.ngramVec, docIdx); s > charNgram {
				charNgram = s
			}
		}
		if s := tokenSetRatio(v.text, entry.norm); s > tokenSet {
			tokenSet = s
		}
		if s := softTFIDFOverlap(v.tokens, entry.tokens, e.stats); s > softTfidf {
			softTfidf = s
		}
		if s := authorLastNameSim(v.tokens, entry.authorLast); s > authorLast {
			authorLast = s
		}
		if s := distinctiveTokenCoverage(v.tokens, entry.tokens, e.stats); s > distinctive {
			distinctive = s
		}
	}

	score := weightCharNgram*charNgram +
		weightTokenSet*tokenSet +
		weightSoftTFIDF*softTfidf +
		weightAuthorLast*authorLast +
		weightDistinctive*distinctive

	// Without the n-gram model the remaining strategies are renormalized
	// so a perfect match can still reach 1.0.
	if e.stats.ngrams == nil {
		score /= 1 - weightCharNgram
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return score, map[string]float64{
		"char_ngram_cosine":          charNgram,
		"token_set_sim":              tokenSet,
		"soft_tfidf_overlap":         softTfidf,
		"author_lastname_sim":        authorLast,
		"distinctive_token_coverage": distinctive,
	}
}
