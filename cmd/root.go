package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spinecat",
		Short: "Identify books on a shelf by matching spine text against Open Library",
		Long: `Spinecat reads the spines in bookshelf photographs with vision-capable
LLMs, cleans up the OCR noise, and matches each spine against Open Library
records using a fuzzy matching ensemble built for short, noisy spine text.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")

	// Add subcommands
	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newIdentifyCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
