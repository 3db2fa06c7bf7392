package main

import (
	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/api"
	"github.com/pagetext/pagetext/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pagetext",
	Short: "OCR text extraction from scanned images and PDFs",
	Long: `Pagetext extracts text from scanned images and PDF documents.

Uploaded files run through an image preprocessing pipeline (grayscale,
deskew, denoise, upscale, binarize) before Tesseract OCR, which
substantially improves recognition on real-world scans.

Use "pagetext extract" for one-shot local extraction, or
"pagetext serve" to run the HTTP API.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pagetext/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pagetext home directory (default: ~/.pagetext)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "output", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
