package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/batch"
	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/server"
)

var (
	extractFormat  string
	extractLangs   []string
	extractPSM     int
	extractOut     string
	extractWorkers int
	extractNoClean bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file> [file...]",
	Short: "Extract text from images or PDFs locally",
	Long: `Extract text from scanned images (PNG, JPEG) or PDF documents
without a running server. Tesseract must be installed.

Each PDF page and each image is preprocessed (grayscale, deskew,
denoise, upscale, binarize) and recognized independently; a failing
page is reported in place without aborting the rest.

Examples:
  pagetext extract scan.png                      # Print extracted text
  pagetext extract doc.pdf -o doc.txt            # Write combined text
  pagetext extract *.png --format zip -o out.zip # One text file per image
  pagetext extract scan.png --lang eng,hin       # Multiple languages`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		opts := batch.OptionsFromConfig(cfg)
		if len(extractLangs) > 0 {
			opts.OCR.Languages = extractLangs
		}
		if cmd.Flags().Changed("psm") {
			if !config.ValidPageSegMode(extractPSM) {
				return fmt.Errorf("unsupported page segmentation mode %d", extractPSM)
			}
			opts.OCR.PageSegMode = extractPSM
		}
		if extractWorkers > 0 {
			opts.MaxWorkers = extractWorkers
		}
		if extractNoClean {
			opts.Pipeline.Threshold = false
			opts.Pipeline.Deskew = false
			opts.Pipeline.Denoise = false
		}

		var uploads []batch.Upload
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			uploads = append(uploads, batch.Upload{Name: filepath.Base(path), Data: data})
		}

		eng := server.BuildEngine(cfg, logger)
		processor := batch.NewProcessor(eng, logger)

		result, err := processor.Process(cmd.Context(), uploads, opts)
		if err != nil {
			return err
		}

		for _, u := range result.Units {
			if u.Failed() {
				fmt.Fprintf(os.Stderr, "warning: %s: %s\n", u.Unit.Label(), u.ErrorNote)
			}
		}

		switch strings.ToLower(extractFormat) {
		case "zip":
			out := extractOut
			if out == "" {
				out = "extracted_texts.zip"
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}
			defer f.Close()
			if err := result.WriteArchive(f); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s (%d succeeded, %d failed)\n", out, result.Succeeded(), result.Failed())
			return nil
		default:
			if extractOut != "" {
				return os.WriteFile(extractOut, []byte(result.Combined()), 0o644)
			}
			fmt.Print(result.Combined())
			return nil
		}
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "text", "Output format: text or zip")
	extractCmd.Flags().StringSliceVar(&extractLangs, "lang", nil, "OCR languages (e.g. eng, hin)")
	extractCmd.Flags().IntVar(&extractPSM, "psm", 6, "Tesseract page segmentation mode (3, 4, 6, 11, 12)")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Write output to a file")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "Max concurrent page workers (0 = from config)")
	extractCmd.Flags().BoolVar(&extractNoClean, "no-preprocess", false, "Skip image cleanup stages before OCR")

	rootCmd.AddCommand(extractCmd)
}
