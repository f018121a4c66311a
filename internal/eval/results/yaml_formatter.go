package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spinecat/spinecat/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Matcher     string `yaml:"matcher"`
	TopK        int    `yaml:"topk"`
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Timestamp   string `yaml:"timestamp"`
}

// EvalResult represents a single evaluation case in the YAML report
type EvalResult struct {
	Identifier     string  `yaml:"identifier"`
	ExpectedKey    string  `yaml:"expectedkey"`
	PredictedKey   string  `yaml:"predictedkey,omitempty"`
	PredictedTitle string  `yaml:"predictedtitle,omitempty"`
	Rank           int     `yaml:"rank"`
	TopScore       float64 `yaml:"topscore"`
	MatchType      string  `yaml:"matchtype,omitempty"`
	Error          string  `yaml:"error,omitempty"`
}

// EvalSummary carries the aggregate metrics into the YAML report
type EvalSummary struct {
	Top1Accuracy float64 `yaml:"top1accuracy"`
	TopKAccuracy float64 `yaml:"topkaccuracy"`
	MRR          float64 `yaml:"mrr"`
	MeanTopScore float64 `yaml:"meantopscore"`
}

// EvalSpec represents the complete evaluation report
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

// SaveToYAML saves an evaluation report to a YAML file in the evals/
// directory and returns the path written.
func SaveToYAML(matcher, datasetPath string, report *metrics.Report) (string, error) {
	if err := os.MkdirAll("evals", 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	spec := EvalSpec{
		Config: EvalConfig{
			Matcher:     matcher,
			TopK:        report.TopK,
			DatasetPath: datasetPath,
			SampleSize:  report.TotalCases,
			Timestamp:   timestamp,
		},
		Summary: EvalSummary{
			Top1Accuracy: report.Top1Accuracy,
			TopKAccuracy: report.TopKAccuracy,
			MRR:          report.MRR,
			MeanTopScore: report.MeanTopScore,
		},
		Results: make([]EvalResult, 0, len(report.Results)),
	}

	for _, r := range report.Results {
		spec.Results = append(spec.Results, EvalResult{
			Identifier:     r.CaseID,
			ExpectedKey:    r.ExpectedKey,
			PredictedKey:   r.PredictedKey,
			PredictedTitle: r.PredictedTitle,
			Rank:           r.Rank,
			TopScore:       r.TopScore,
			MatchType:      r.MatchType,
			Error:          r.Error,
		})
	}

	filename := fmt.Sprintf("evals/%s-%s.yaml", matcher, timestamp)

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	return absPath, nil
}
