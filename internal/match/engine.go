package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/textnorm"
)

// ErrNotFitted is returned by Match when the engine has not been fitted
// to a catalog yet.
var ErrNotFitted = errors.New("matcher must be fitted before matching")

// Engine matches denoised spine text against a fitted candidate catalog.
//
// Fit replaces any previously fitted state wholesale. Match scores every
// fitted candidate and returns at most topK results sorted by score
// descending, ties broken by catalog order. confidenceThreshold is
// advisory only: it is logged so callers can judge the top result, but
// results are never filtered by it.
type Engine interface {
	Fit(catalog []models.CatalogRecord) error
	Match(query string, topK int, confidenceThreshold float64) ([]models.RankedResult, error)
}

// Embedder is an optional capability for the legacy engine's semantic
// similarity strategy. When absent or failing, the strategy contributes
// zero rather than aborting a match call.
type Embedder interface {
	Embed(texts []string) ([][]float64, error)
}

// Config selects and parameterizes an engine implementation.
type Config struct {
	// Kind is "advanced" (character n-gram ensemble) or "legacy"
	// (fuzzy-ratio ensemble with exact-title short-circuit).
	Kind string
	// UseCharNgrams toggles the character n-gram cosine strategy of the
	// advanced engine. Disabling it renormalizes the remaining weights,
	// so scores are not comparable between the two settings.
	UseCharNgrams bool
	// Embedder optionally enables the legacy engine's semantic strategy.
	Embedder Embedder
}

// NewEngine constructs the engine selected by cfg.Kind.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Kind {
	case "", "advanced":
		return NewAdvancedEngine(cfg.UseCharNgrams), nil
	case "legacy":
		return NewLegacyEngine(cfg.Embedder), nil
	default:
		return nil, fmt.Errorf("unknown matcher kind: %s", cfg.Kind)
	}
}

// commonWords are filler tokens stripped when generating the reduced
// query variant. Distinct from the IDF stop set: these are dropped from
// one variant, stop tokens are merely downweighted during fitting.
var commonWords = map[string]struct{}{
	"THE": {}, "A": {}, "AN": {}, "AND": {}, "OR": {}, "BUT": {},
	"IN": {}, "ON": {}, "AT": {}, "TO": {}, "FOR": {}, "OF": {},
	"WITH": {}, "BY": {},
}

// queryVariants derives word-subsequence forms of a normalized query so a
// partial or padded OCR reading can still line up with a candidate. The
// original text is always the first variant.
func queryVariants(normalized string) []string {
	variants := []string{normalized}
	seen := map[string]struct{}{normalized: {}}

	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	words := strings.Fields(normalized)

	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := commonWords[w]; !ok {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) > 0 {
		add(strings.Join(filtered, " "))
	}

	if len(words) > 3 {
		add(strings.Join(words[:3], " "))
		add(strings.Join(words[len(words)-3:], " "))
		if len(words) > 6 {
			mid := len(words)/2 - 1
			add(strings.Join(words[mid:mid+3], " "))
		}
	}

	return variants
}

// scoreCandidate runs fn and converts a panic on a pathological string
// into a zero score so one bad candidate never aborts the ranking.
func scoreCandidate(fn func() (float64, map[string]float64)) (score float64, features map[string]float64) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			features = nil
		}
	}()
	return fn()
}

// matchTypeForScore maps a final score onto its discrete confidence tier.
func matchTypeForScore(score float64) string {
	switch {
	case score >= 0.85:
		return models.MatchExact
	case score >= 0.70:
		return models.MatchStrong
	case score >= 0.55:
		return models.MatchModerate
	case score >= 0.40:
		return models.MatchWeak
	default:
		return models.MatchPoor
	}
}

// fittedEntry is the engine-owned derived form of one catalog record,
// built during Fit and discarded on refit.
type fittedEntry struct {
	record     models.CatalogRecord
	norm       string
	tokens     []string
	tokenSet   map[string]struct{}
	titleNorm  string
	authorNorm string
	authorLast string
	pubNorm    string
}

// buildEntries normalizes the catalog into fitted entries, one per record
// in input order. Missing optional fields degrade to empty strings.
func buildEntries(catalog []models.CatalogRecord) []fittedEntry {
	entries := make([]fittedEntry, 0, len(catalog))
	for _, rec := range catalog {
		author := strings.Join(rec.Authors, " ")
		norm := textnorm.Normalize(strings.TrimSpace(rec.Title + " " + author))

		tokens := textnorm.Tokens(norm)
		tokenSet := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			tokenSet[t] = struct{}{}
		}

		entries = append(entries, fittedEntry{
			record:     rec,
			norm:       norm,
			tokens:     tokens,
			tokenSet:   tokenSet,
			titleNorm:  textnorm.Normalize(rec.Title),
			authorNorm: textnorm.Normalize(author),
			authorLast: authorLastToken(textnorm.Normalize(author)),
			pubNorm:    textnorm.Normalize(rec.Publisher),
		})
	}
	return entries
}

// authorLastToken extracts the final token of a normalized author string,
// which for western name order is the surname shown on most spines.
func authorLastToken(authorNorm string) string {
	parts := strings.Fields(authorNorm)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
