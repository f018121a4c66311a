package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spinecat/spinecat/internal/eval"
	"github.com/spinecat/spinecat/internal/eval/dataset"
	"github.com/spinecat/spinecat/internal/eval/metrics"
	"github.com/spinecat/spinecat/internal/eval/results"
	"github.com/spinecat/spinecat/internal/match"
)

func newEvalCmd() *cobra.Command {
	var (
		datasetPath   string
		repo          string
		filename      string
		sample        int
		matcher       string
		topK          int
		threshold     float64
		noCharNgrams  bool
		jsonOut       string
		forceDownload bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate matching accuracy on a labeled spine dataset",
		Long: `Runs labeled spine cases through a matching engine and reports
ranking quality: top-1 accuracy, top-k accuracy, and MRR.

Datasets are JSONL or Parquet files where each case carries its own
candidate pool. Pass a local file with --dataset, or a HuggingFace
dataset repo with --repo to download and cache it first.`,
		Example: `  # Evaluate the advanced matcher on a local dataset
  spinecat eval --dataset spines.jsonl

  # Evaluate the legacy matcher on 100 cases from HuggingFace
  spinecat eval --repo someuser/spine-cases --file spines.parquet --matcher legacy --sample 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var loader *dataset.Loader
			switch {
			case datasetPath != "":
				loader = dataset.NewLoader(datasetPath)
			case repo != "":
				var err error
				loader, err = dataset.LoadOrDownload(filename, dataset.DownloadConfig{
					Repo:          repo,
					ForceDownload: forceDownload,
					Token:         os.Getenv("HF_TOKEN"),
				})
				if err != nil {
					return err
				}
				datasetPath = fmt.Sprintf("hf://%s/%s", repo, filename)
			default:
				return fmt.Errorf("either --dataset or --repo is required")
			}

			cases, err := loader.LoadSample(sample)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("dataset contains no cases")
			}

			slog.Info("Starting evaluation", "matcher", matcher, "cases", len(cases), "top_k", topK)

			engineCfg := match.Config{
				Kind:          matcher,
				UseCharNgrams: !noCharNgrams,
			}
			caseResults, err := eval.Run(engineCfg, cases, topK, threshold)
			if err != nil {
				return err
			}

			report := metrics.Aggregate(caseResults, matcher, topK)
			report.PrintSummary()

			yamlPath, err := results.SaveToYAML(matcher, datasetPath, report)
			if err != nil {
				return err
			}
			fmt.Printf("\nResults saved to: %s\n", yamlPath)

			if jsonOut != "" {
				if err := report.SaveToJSON(jsonOut); err != nil {
					return err
				}
				fmt.Printf("JSON report saved to: %s\n", jsonOut)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to a local JSONL or Parquet dataset")
	cmd.Flags().StringVar(&repo, "repo", "", "HuggingFace dataset repo to download from")
	cmd.Flags().StringVar(&filename, "file", "spines.parquet", "Filename inside the HuggingFace repo")
	cmd.Flags().IntVarP(&sample, "sample", "s", 0, "Evaluate at most this many cases, 0 for all")
	cmd.Flags().StringVarP(&matcher, "matcher", "m", "advanced", "Matcher to evaluate: advanced or legacy")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Ranking cutoff for top-k accuracy")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.5, "Confidence threshold for low-confidence warnings")
	cmd.Flags().BoolVar(&noCharNgrams, "no-char-ngrams", false, "Disable the character n-gram strategy")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Also write the full report to this JSON file")
	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "Re-download the dataset even if cached")

	return cmd
}
