package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docsheet/internal/ingest"
	"github.com/joseph-ayodele/docsheet/internal/llm/provider"
	"github.com/joseph-ayodele/docsheet/internal/sheets"
)

var (
	watch      bool
	debounce   time.Duration
	skipHidden bool
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Extract every image under a directory and append them all to one sheet",
		Long: `batch walks DIR for png, jpeg, webp and heic images, extracts each one and
appends its rows to the same sheet. Files with identical content are processed
once. With --watch it keeps running and handles images as they appear.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Target sheet title (required)")
	cmd.Flags().StringVar(&spreadsheet, "spreadsheet", "", "Spreadsheet id (default: SHEETS_SPREADSHEET_ID)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching DIR for new images")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before a new file is processed")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip dot files and directories")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()
	engine, cfg, err := syncTarget(logger)
	if err != nil {
		return err
	}
	extractor, err := provider.New(cfg.Vision, logger)
	if err != nil {
		return err
	}

	var reports []sheets.Report
	runner := ingest.NewRunner(func(ctx context.Context, path string, image []byte, mimeType string) error {
		data, err := extractImage(ctx, extractor, path, image, mimeType)
		if err != nil {
			return err
		}
		report, err := engine.Sync(ctx, sheets.Request{
			SpreadsheetID: spreadsheet,
			Token:         cfg.Sheets.AccessToken,
			SheetName:     sheetName,
			Data:          data,
		})
		if err != nil {
			return err
		}
		reports = append(reports, report)
		return nil
	}, skipHidden, logger)

	results, stats, err := runner.Directory(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"File", "Status"})
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != "":
			status = r.Err
		case r.Deduplicated:
			status = "duplicate"
		}
		tw.Append([]string{r.Path, status})
	}
	tw.Render()
	fmt.Fprintf(out, "scanned=%d matched=%d ok=%d duplicate=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
	if len(reports) > 0 {
		printReports(out, reports...)
	}

	if !watch {
		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Matched)
		}
		return nil
	}

	paths, err := ingest.Watch(ctx, ingest.WatchConfig{Roots: []string{args[0]}, Debounce: debounce}, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "watching", args[0])
	for p := range paths {
		reports = reports[:0]
		res := runner.File(ctx, p)
		switch {
		case res.Err != "":
			fmt.Fprintf(out, "%s: %s\n", p, res.Err)
		case res.Deduplicated:
			fmt.Fprintf(out, "%s: duplicate\n", p)
		default:
			printReports(out, reports...)
		}
	}
	return nil
}
