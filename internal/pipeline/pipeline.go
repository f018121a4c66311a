// Package pipeline wires spine OCR, denoising, candidate retrieval, and
// matching into the end-to-end shelf identification flow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spinecat/spinecat/internal/config"
	"github.com/spinecat/spinecat/internal/denoise"
	"github.com/spinecat/spinecat/internal/match"
	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/ocr"
	"github.com/spinecat/spinecat/internal/ollama"
	"github.com/spinecat/spinecat/internal/openlibrary"
	"golang.org/x/time/rate"
)

// CandidateSearcher retrieves candidate records for a piece of spine text.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, text string) ([]models.CatalogRecord, error)
}

// SpineExtractor reads per-spine text from a shelf image.
type SpineExtractor interface {
	ExtractSpines(ctx context.Context, imagePath, provider, model string) ([]models.SpineText, error)
}

// Pipeline runs raw spine text through denoising, retrieval, and matching.
// A fresh engine is fitted per spine because each spine gets its own
// candidate set.
type Pipeline struct {
	searcher  CandidateSearcher
	extractor SpineExtractor
	engineCfg match.Config
	ocrCfg    config.OCRConfig
	topK      int
	threshold float64
}

// New builds a pipeline from configuration, wiring the Open Library
// client and, for the legacy matcher with embeddings enabled, an Ollama
// embedder.
func New(cfg config.Config) *Pipeline {
	var libOpts []openlibrary.Option
	if cfg.OpenLibrary.BaseURL != "" {
		libOpts = append(libOpts, openlibrary.WithBaseURL(cfg.OpenLibrary.BaseURL))
	}
	if cfg.OpenLibrary.RequestsPerSecond > 0 {
		libOpts = append(libOpts, openlibrary.WithRateLimit(rate.Limit(cfg.OpenLibrary.RequestsPerSecond), 3))
	}
	if cfg.OpenLibrary.PageSize > 0 {
		libOpts = append(libOpts, openlibrary.WithPageSize(cfg.OpenLibrary.PageSize))
	}

	engineCfg := match.Config{
		Kind:          cfg.Matcher.Kind,
		UseCharNgrams: cfg.Matcher.UseCharNgrams,
	}
	if cfg.Matcher.Kind == "legacy" && cfg.Matcher.UseEmbeddings {
		engineCfg.Embedder = ollama.NewEmbedder("")
	}

	return &Pipeline{
		searcher:  openlibrary.NewClient(libOpts...),
		extractor: ocr.NewService(),
		engineCfg: engineCfg,
		ocrCfg:    cfg.OCR,
		topK:      cfg.Matcher.TopK,
		threshold: cfg.Matcher.ConfidenceThreshold,
	}
}

// NewWithComponents builds a pipeline from explicit components, used by
// tests and by callers that already hold a candidate source.
func NewWithComponents(searcher CandidateSearcher, extractor SpineExtractor, engineCfg match.Config, topK int, threshold float64) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		extractor: extractor,
		engineCfg: engineCfg,
		topK:      topK,
		threshold: threshold,
	}
}

// MatchText runs one spine reading through the full text pipeline. Spine
// failures are reported inside the result, not as an error; the error
// return covers only setup problems such as a bad engine configuration.
func (p *Pipeline) MatchText(ctx context.Context, spineID, text string) (*models.PipelineResult, error) {
	start := time.Now()
	result := &models.PipelineResult{
		SpineID:   spineID,
		RawText:   text,
		Timestamp: start,
	}

	cleaned := denoise.Denoise(text)
	result.Denoised = &cleaned

	if cleaned.DenoisedText == "" {
		result.Errors = append(result.Errors, "spine text is empty after denoising")
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	candidates, err := p.searcher.SearchCandidates(ctx, cleaned.DenoisedText)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("candidate search failed: %v", err))
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}
	result.CandidateCount = len(candidates)

	if len(candidates) == 0 {
		result.Errors = append(result.Errors, "no candidates found")
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	engine, err := match.NewEngine(p.engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build matching engine: %w", err)
	}
	if err := engine.Fit(candidates); err != nil {
		return nil, fmt.Errorf("failed to fit matching engine: %w", err)
	}

	matches, err := engine.Match(cleaned.DenoisedText, p.topK, p.threshold)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("matching failed: %v", err))
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	result.Matches = matches
	if len(matches) > 0 {
		result.BestMatch = &matches[0]
	}
	result.Success = len(matches) > 0
	result.ProcessingTime = time.Since(start).Seconds()

	slog.Info("Spine matched",
		"spine_id", spineID,
		"candidates", result.CandidateCount,
		"matches", len(matches),
		"best_score", bestScore(result),
	)
	return result, nil
}

// MatchAgainstCandidates matches one spine reading against a caller
// supplied candidate set, skipping retrieval. Used when the caller
// already holds its own catalog slice.
func (p *Pipeline) MatchAgainstCandidates(ctx context.Context, spineID, text string, candidates []models.CatalogRecord) (*models.PipelineResult, error) {
	start := time.Now()
	result := &models.PipelineResult{
		SpineID:   spineID,
		RawText:   text,
		Timestamp: start,
	}

	cleaned := denoise.Denoise(text)
	result.Denoised = &cleaned

	if cleaned.DenoisedText == "" {
		result.Errors = append(result.Errors, "spine text is empty after denoising")
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}
	result.CandidateCount = len(candidates)
	if len(candidates) == 0 {
		result.Errors = append(result.Errors, "no candidates provided")
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	engine, err := match.NewEngine(p.engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build matching engine: %w", err)
	}
	if err := engine.Fit(candidates); err != nil {
		return nil, fmt.Errorf("failed to fit matching engine: %w", err)
	}

	matches, err := engine.Match(cleaned.DenoisedText, p.topK, p.threshold)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("matching failed: %v", err))
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	result.Matches = matches
	if len(matches) > 0 {
		result.BestMatch = &matches[0]
	}
	result.Success = len(matches) > 0
	result.ProcessingTime = time.Since(start).Seconds()
	return result, nil
}

// ProcessImage extracts spines from a shelf image and matches each one.
// Per-spine failures are carried inside their results; the error return
// covers OCR failure, where there is nothing to iterate.
func (p *Pipeline) ProcessImage(ctx context.Context, imagePath string) ([]*models.PipelineResult, error) {
	spines, err := p.extractor.ExtractSpines(ctx, imagePath, p.ocrCfg.Provider, p.ocrCfg.Model)
	if err != nil {
		return nil, fmt.Errorf("spine extraction failed: %w", err)
	}

	results := make([]*models.PipelineResult, 0, len(spines))
	for _, spine := range spines {
		result, err := p.MatchText(ctx, spine.SpineID, spine.Text)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	slog.Info("Shelf image processed", "image", imagePath, "spines", len(results))
	return results, nil
}

func bestScore(r *models.PipelineResult) float64 {
	if r.BestMatch == nil {
		return 0
	}
	return r.BestMatch.Score.Score
}
