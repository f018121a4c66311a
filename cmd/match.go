package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spinecat/spinecat/internal/config"
	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/pipeline"
)

func newMatchCmd() *cobra.Command {
	var (
		spineID        string
		candidatesFile string
		matcher        string
		topK           int
		threshold      float64
	)

	cmd := &cobra.Command{
		Use:   "match [spine text]",
		Short: "Match spine text against Open Library records",
		Long: `Matches a single piece of spine text against catalog records.

By default candidates are retrieved from the Open Library search API.
Pass --candidates to match against your own catalog instead, given as a
JSON file holding an array of records with title, authors, publisher,
and external_id fields.`,
		Example: `  # Match noisy spine text against Open Library
  spinecat match "THE BALLAD OF SONGBIRDS AND SNAKES COLLINS"

  # Match against a local candidate file with the legacy matcher
  spinecat match --candidates shelf.json --matcher legacy "MOBY DICK MELVILLE"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if matcher != "" {
				cfg.Matcher.Kind = matcher
			}
			if cmd.Flags().Changed("top-k") {
				cfg.Matcher.TopK = topK
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Matcher.ConfidenceThreshold = threshold
			}

			text := strings.Join(args, " ")
			pipe := pipeline.New(cfg)

			var result *models.PipelineResult
			if candidatesFile != "" {
				candidates, err := loadCandidates(candidatesFile)
				if err != nil {
					return err
				}
				result, err = pipe.MatchAgainstCandidates(cmd.Context(), spineID, text, candidates)
				if err != nil {
					return err
				}
			} else {
				result, err = pipe.MatchText(cmd.Context(), spineID, text)
				if err != nil {
					return err
				}
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&spineID, "spine-id", "spine_1", "Identifier attached to the result")
	cmd.Flags().StringVar(&candidatesFile, "candidates", "", "JSON file with candidate records, skips Open Library retrieval")
	cmd.Flags().StringVarP(&matcher, "matcher", "m", "", "Matcher to use: advanced or legacy (overrides config)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum results to return, 0 for all")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.5, "Confidence threshold for low-confidence warnings")

	return cmd
}

func loadCandidates(path string) ([]models.CatalogRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates file: %w", err)
	}

	var candidates []models.CatalogRecord
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidates file: %w", err)
	}
	return candidates, nil
}
