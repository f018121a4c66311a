// Package eval runs labeled spine cases through a matching engine and
// measures ranking quality.
package eval

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spinecat/spinecat/internal/denoise"
	"github.com/spinecat/spinecat/internal/eval/dataset"
	"github.com/spinecat/spinecat/internal/eval/metrics"
	"github.com/spinecat/spinecat/internal/match"
)

// Run evaluates every case against a fresh engine fitted to the case's
// own candidate pool, mirroring how the pipeline matches live spines.
func Run(engineCfg match.Config, cases []dataset.SpineCase, topK int, threshold float64) ([]metrics.CaseResult, error) {
	results := make([]metrics.CaseResult, 0, len(cases))

	for _, c := range cases {
		result := metrics.CaseResult{
			CaseID:      c.CaseID,
			ExpectedKey: c.ExpectedKey,
		}
		start := time.Now()

		candidates := c.CandidateRecords()
		if len(candidates) == 0 {
			result.Error = "case has no candidates"
			result.ProcessingTime = time.Since(start)
			results = append(results, result)
			continue
		}

		engine, err := match.NewEngine(engineCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build matching engine: %w", err)
		}
		if err := engine.Fit(candidates); err != nil {
			return nil, fmt.Errorf("failed to fit matching engine: %w", err)
		}

		cleaned := denoise.Denoise(c.SpineText)
		ranked, err := engine.Match(cleaned.DenoisedText, topK, threshold)
		if err != nil {
			result.Error = err.Error()
			result.ProcessingTime = time.Since(start)
			results = append(results, result)
			continue
		}

		if len(ranked) > 0 {
			top := ranked[0]
			result.PredictedKey = top.Record.ExternalID
			result.PredictedTitle = top.Record.Title
			result.TopScore = top.Score.Score
			result.MatchType = top.Score.MatchType
		}
		for i, r := range ranked {
			if r.Record.ExternalID == c.ExpectedKey {
				result.Rank = i + 1
				break
			}
		}
		result.ProcessingTime = time.Since(start)

		slog.Debug("Evaluated case",
			"case_id", c.CaseID,
			"rank", result.Rank,
			"top_score", result.TopScore,
		)
		results = append(results, result)
	}

	return results, nil
}
