// Command docsheet extracts a document image once and prints, exports or
// syncs the result without running the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
	"github.com/joseph-ayodele/docsheet/internal/export"
	"github.com/joseph-ayodele/docsheet/internal/llm"
	"github.com/joseph-ayodele/docsheet/internal/llm/provider"
	"github.com/joseph-ayodele/docsheet/internal/sheets"
)

var (
	verbose     bool
	asJSON      bool
	format      string
	outputPath  string
	sheetName   string
	spreadsheet string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "docsheet",
		Short:         "Extract fields and tables from document images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	extractCmd := &cobra.Command{
		Use:   "extract IMAGE",
		Short: "Extract and print the fields and tables found in an image",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().BoolVar(&asJSON, "json", false, "Print the extraction as JSON")

	exportCmd := &cobra.Command{
		Use:   "export IMAGE",
		Short: "Extract an image and write it as CSV, text, XLSX or PDF",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "Output format: csv, text, xlsx, pdf")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")

	syncCmd := &cobra.Command{
		Use:   "sync IMAGE",
		Short: "Extract an image and append it to a spreadsheet sheet",
		Long: `sync extracts an image and appends the rows to the named sheet, creating
the sheet when missing and extending its header row with new columns.
The bearer token is read from SHEETS_ACCESS_TOKEN.`,
		Args: cobra.ExactArgs(1),
		RunE: runSync,
	}
	syncCmd.Flags().StringVar(&sheetName, "sheet", "", "Target sheet title (default: image file name)")
	syncCmd.Flags().StringVar(&spreadsheet, "spreadsheet", "", "Spreadsheet id (default: SHEETS_SPREADSHEET_ID)")

	rootCmd.AddCommand(extractCmd, exportCmd, syncCmd, newBatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if sheets.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "the access token was rejected; issue a new SHEETS_ACCESS_TOKEN")
		}
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// extractFile runs one vision extraction for path.
func extractFile(ctx context.Context, path string, logger *slog.Logger) (entity.ExtractedData, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return entity.ExtractedData{}, fmt.Errorf("read image: %w", err)
	}
	extractor, err := provider.New(common.LoadConfig().Vision, logger)
	if err != nil {
		return entity.ExtractedData{}, err
	}
	return extractImage(ctx, extractor, path, image, "")
}

func extractImage(ctx context.Context, extractor llm.Extractor, path string, image []byte, mimeType string) (entity.ExtractedData, error) {
	if mimeType == "" {
		mimeType = constants.MIMEForExt(filepath.Ext(path))
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	data, _, err := extractor.Extract(ctx, llm.ExtractRequest{
		Image:    image,
		MIMEType: mimeType,
		Filename: filepath.Base(path),
	})
	if err != nil {
		return entity.ExtractedData{}, fmt.Errorf("extraction failed: %w", err)
	}
	return data, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	data, err := extractFile(ctx, args[0], newLogger())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	printData(out, data)
	return nil
}

func printData(w io.Writer, d entity.ExtractedData) {
	fields := tablewriter.NewWriter(w)
	fields.SetHeader([]string{"Field", "Value"})
	fields.SetAutoWrapText(false)
	for _, f := range d.Fields {
		fields.Append([]string{f.Label, f.Value.String()})
	}
	fields.Render()

	for _, t := range d.Tables {
		fmt.Fprintf(w, "\n[%s]\n", t.Name)
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(t.Headers)
		tw.SetAutoWrapText(false)
		for _, r := range t.Rows {
			tw.Append(r.Padded(len(t.Headers)))
		}
		tw.Render()
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()
	data, err := extractFile(ctx, args[0], logger)
	if err != nil {
		return err
	}

	var body []byte
	switch strings.ToLower(format) {
	case "csv":
		body = []byte(export.CSV(data))
	case "text", "txt":
		body = []byte(export.ClipboardText(data))
	case "xlsx":
		if outputPath == "" {
			return fmt.Errorf("xlsx output needs --output")
		}
		if body, err = export.NewService(logger).XLSX(data); err != nil {
			return err
		}
	case "pdf":
		if outputPath == "" {
			return fmt.Errorf("pdf output needs --output")
		}
		title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		if body, err = export.NewService(logger).PDF(title, data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid format: %s (must be csv, text, xlsx or pdf)", format)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, body, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}

// syncTarget resolves the spreadsheet id and token and builds the engine.
func syncTarget(logger *slog.Logger) (*sheets.Engine, *common.Config, error) {
	cfg := common.LoadConfig()
	if spreadsheet == "" {
		spreadsheet = cfg.Sheets.SpreadsheetID
	}
	if spreadsheet == "" {
		return nil, nil, fmt.Errorf("spreadsheet id is required (--spreadsheet or SHEETS_SPREADSHEET_ID)")
	}
	if cfg.Sheets.AccessToken == "" {
		return nil, nil, fmt.Errorf("SHEETS_ACCESS_TOKEN is required")
	}
	client := sheets.NewClient(sheets.ClientConfig{
		BaseURL:   cfg.Sheets.BaseURL,
		RateLimit: cfg.Sheets.RateLimit,
	}, logger)
	return sheets.NewEngine(client, logger), cfg, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()
	engine, cfg, err := syncTarget(logger)
	if err != nil {
		return err
	}
	if sheetName == "" {
		base := filepath.Base(args[0])
		sheetName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	data, err := extractFile(ctx, args[0], logger)
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

	printReports(cmd.OutOrStdout(), report)
	return nil
}

func printReports(w io.Writer, reports ...sheets.Report) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Sheet", "Created", "Headers written", "Rows appended", "Range"})
	for _, report := range reports {
		tw.Append([]string{
			report.Sheet,
			fmt.Sprint(report.SheetCreated),
			fmt.Sprint(report.HeadersWritten),
			fmt.Sprint(report.RowsAppended),
			report.UpdatedRange,
		})
	}
	tw.Render()
}
