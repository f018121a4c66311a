// Package metrics aggregates ranking quality measurements for spine
// matching evaluation runs.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// CaseResult is the outcome of one evaluation case.
type CaseResult struct {
	CaseID      string
	ExpectedKey string

	// PredictedKey is the top-ranked candidate, empty when matching
	// produced no results.
	PredictedKey   string
	PredictedTitle string

	// Rank is the 1-based position of the expected record in the
	// returned ranking, 0 when it did not appear.
	Rank int

	// TopScore and MatchType describe the top-ranked result.
	TopScore  float64
	MatchType string

	ProcessingTime time.Duration
	Error          string // If the case failed to evaluate
}

// Correct reports whether the expected record was ranked first.
func (r CaseResult) Correct() bool {
	return r.Rank == 1
}

// Report is the aggregate view of an evaluation run.
type Report struct {
	TotalCases   int
	Evaluated    int
	FailureCount int

	// Ranking quality over evaluated cases.
	Top1Accuracy float64
	TopKAccuracy float64
	MRR          float64
	MeanTopScore float64

	// MatchTypeCounts tallies the tier of each top-ranked result.
	MatchTypeCounts map[string]int

	// Timing
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Detailed results
	Results []CaseResult

	// Metadata
	EvaluationDate time.Time
	Matcher        string
	TopK           int
}

// Aggregate folds per-case results into a report. k is the cutoff used
// for top-k accuracy and should match the topK the cases were run with.
func Aggregate(results []CaseResult, matcher string, k int) *Report {
	report := &Report{
		TotalCases:      len(results),
		Results:         results,
		MatchTypeCounts: make(map[string]int),
		EvaluationDate:  time.Now(),
		Matcher:         matcher,
		TopK:            k,
	}

	var top1, topK int
	var mrrSum, scoreSum float64
	var totalDuration, successDuration time.Duration

	for _, r := range results {
		totalDuration += r.ProcessingTime

		if r.Error != "" {
			report.FailureCount++
			continue
		}

		report.Evaluated++
		successDuration += r.ProcessingTime
		scoreSum += r.TopScore
		if r.MatchType != "" {
			report.MatchTypeCounts[r.MatchType]++
		}

		if r.Rank == 1 {
			top1++
		}
		if r.Rank >= 1 && (k <= 0 || r.Rank <= k) {
			topK++
		}
		if r.Rank >= 1 {
			mrrSum += 1.0 / float64(r.Rank)
		}
	}

	if report.Evaluated > 0 {
		n := float64(report.Evaluated)
		report.Top1Accuracy = float64(top1) / n
		report.TopKAccuracy = float64(topK) / n
		report.MRR = mrrSum / n
		report.MeanTopScore = scoreSum / n
		report.AverageProcessingTime = successDuration / time.Duration(report.Evaluated)
	}
	report.TotalProcessingTime = totalDuration

	return report
}

// PrintSummary prints a human-readable summary of the evaluation
func (r *Report) PrintSummary() {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("SPINE MATCHING EVALUATION SUMMARY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Evaluation Date: %s\n", r.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Printf("Matcher: %s\n", r.Matcher)
	fmt.Printf("Cases: %d (evaluated %d, failed %d)\n", r.TotalCases, r.Evaluated, r.FailureCount)
	fmt.Println()

	fmt.Println("RANKING QUALITY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Top-1 Accuracy: %.1f%%\n", r.Top1Accuracy*100)
	fmt.Printf("Top-%d Accuracy: %.1f%%\n", r.TopK, r.TopKAccuracy*100)
	fmt.Printf("MRR: %.3f\n", r.MRR)
	fmt.Printf("Mean Top Score: %.3f\n", r.MeanTopScore)
	fmt.Println()

	fmt.Println("TOP MATCH TIERS")
	fmt.Println(strings.Repeat("-", 70))
	for _, tier := range []string{"exact", "strong", "moderate", "weak", "poor"} {
		if count, ok := r.MatchTypeCounts[tier]; ok {
			fmt.Printf("  %-8s %d\n", tier, count)
		}
	}
	fmt.Println()

	fmt.Printf("Average Processing Time: %s\n", r.AverageProcessingTime)
	fmt.Printf("Total Processing Time: %s\n", r.TotalProcessingTime)
	fmt.Println(strings.Repeat("=", 70))
}

// SaveToJSON saves the report to a JSON file
func (r *Report) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}
