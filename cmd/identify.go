package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spinecat/spinecat/internal/config"
	"github.com/spinecat/spinecat/internal/pipeline"
)

func newIdentifyCmd() *cobra.Command {
	var (
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "identify [image file]",
		Short: "Identify every book on a shelf photograph",
		Long: `Reads the spines in a bookshelf photograph with a vision-capable LLM,
then matches each spine against Open Library records.

Supported providers: ollama, openai, gemini.`,
		Example: `  # Identify books using the default provider
  spinecat identify shelf.jpg

  # Use OpenAI with a specific model
  spinecat identify --provider openai --model gpt-4o shelf.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]
			if _, err := os.Stat(imagePath); err != nil {
				return fmt.Errorf("cannot read image file: %w", err)
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.OCR.Provider = provider
			}
			if model != "" {
				cfg.OCR.Model = model
			}

			pipe := pipeline.New(cfg)
			results, err := pipe.ProcessImage(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(results)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Vision provider: ollama, openai, or gemini (overrides config)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use for spine extraction (overrides config)")

	return cmd
}
