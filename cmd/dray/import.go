package main

import (
	"io"
	"os"

	"dray/internal/importer"
	"dray/internal/logger"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Import share-links from a file or stdin",
	Long: `Reads one share-link per line and adds every server that is not already
stored. Lines that fail to parse are counted and skipped.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			logger.Log.Fatalf("Error reading input: %v", err)
		}

		lines := importer.Lines(string(data))
		if len(lines) == 0 {
			logger.Log.Warn("Nothing to import.")
			return
		}

		bar := newBar(len(lines), "[cyan]Importing...[reset]")
		im := importer.New(s, nil)
		im.OnLine = func() { bar.Add(1) }

		res, err := im.ImportLines(lines)
		bar.Finish()
		if err != nil {
			logger.Log.Fatalf("Import failed: %v", err)
		}
		logger.Log.Infof("✅ %d new, %d duplicates, %d errors.", res.New, res.Duplicates, res.Errors)
		im.Metrics().PrintReport(os.Stdout)
	},
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func init() {
	rootCmd.AddCommand(importCmd)
}
