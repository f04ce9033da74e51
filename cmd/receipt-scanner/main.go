package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-scanner")
	var (
		sourceDir     = fs.StringLong("source-dir", "", "Directory to scan for receipts")
		apiKey        = fs.StringLong("api-key", "", "Extraction service API key (or set RECEIPT_SCANNER_API_KEY)")
		extractorType = fs.StringLong("extractor", "taggun", "Extractor type: 'taggun' or 'gemini'")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		threshold     = fs.Float64Long("threshold", 0.8, "Confidence threshold for reprocessing and renaming")
		rename        = fs.BoolLong("rename", "Rename files to {date}_{merchant}_{nonce}.{type}")
		write         = fs.BoolLong("write", "Write the merged ledger back to the source directory")
		historyPath   = fs.StringLong("history-db", "", "Optional path to a run-history database")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *sourceDir == "" {
		slog.Error("Source directory is required. Set --source-dir")
		os.Exit(1)
	}
	if *apiKey == "" {
		slog.Error("API key is required. Set --api-key flag or RECEIPT_SCANNER_API_KEY environment variable")
		os.Exit(1)
	}

	storage, err := receipt.NewSourceDir(*sourceDir)
	if err != nil {
		slog.Error("Failed to open source directory", "error", err)
		os.Exit(1)
	}

	// Initialize extractor based on type
	var extractor scanning.Extractor
	switch *extractorType {
	case "taggun":
		slog.Info("Initializing Taggun extractor...")
		extractor, err = scanning.NewTaggun(*apiKey)
		if err != nil {
			slog.Error("Failed to initialize Taggun", "error", err)
			os.Exit(1)
		}
	case "gemini":
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = scanning.NewGemini(*apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "taggun or gemini")
		os.Exit(1)
	}
	defer extractor.Close()

	scanner := receipt.NewScanner(*sourceDir, *threshold)
	service := receipt.NewService(scanner, storage, extractor, receipt.Options{
		Threshold: *threshold,
		Rename:    *rename,
		Write:     *write,
	})

	if *historyPath != "" {
		slog.Info("Opening run history...", "path", *historyPath)
		history, err := receipt.NewBoltHistory(*historyPath)
		if err != nil {
			slog.Error("Failed to open history database", "error", err)
			os.Exit(1)
		}
		defer history.Close()
		service.WithHistory(history)
	}

	slog.Info("Scanning source directory", "dir", *sourceDir, "threshold", *threshold)
	if _, err := service.Run(context.Background()); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
