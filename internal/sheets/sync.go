package sheets

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// API is the remote surface the Engine drives. *Client implements it.
type API interface {
	SheetTitles(ctx context.Context, spreadsheetID, token string) ([]string, error)
	AddSheet(ctx context.Context, spreadsheetID, token, title string) error
	GetValues(ctx context.Context, spreadsheetID, token, a1 string) ([][]string, error)
	UpdateValues(ctx context.Context, spreadsheetID, token, a1 string, values [][]string) error
	AppendValues(ctx context.Context, spreadsheetID, token, a1 string, values [][]string) (AppendResult, error)
}

var _ API = (*Client)(nil)

// Request is one sync call.
type Request struct {
	SpreadsheetID string
	Token         string
	SheetName     string
	Data          entity.ExtractedData
}

// Report describes what a successful sync did.
type Report struct {
	Sheet          string   `json:"sheet"`
	SheetCreated   bool     `json:"sheet_created"`
	MasterHeaders  []string `json:"master_headers"`
	HeadersWritten bool     `json:"headers_written"`
	RowsAppended   int      `json:"rows_appended"`
	UpdatedRange   string   `json:"updated_range,omitempty"`
}

// Engine appends extracted rows to a named sheet, extending the remote header
// row with any new columns. The steps are separate remote calls with no
// transaction: a failure part-way leaves whatever the finished calls wrote.
// Concurrent syncs to the same sheet race on the header row; last write wins.
type Engine struct {
	api    API
	logger *slog.Logger
}

func NewEngine(api API, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{api: api, logger: logger}
}

// Sync runs the protocol: resolve sheet, flatten, read headers, reconcile,
// re-project, append.
func (e *Engine) Sync(ctx context.Context, req Request) (Report, error) {
	log := common.LoggerFromContext(ctx, e.logger).With("sheet", req.SheetName)
	start := time.Now()

	if err := validate(req); err != nil {
		return Report{}, err
	}

	finalHeaders, rows := req.Data.Normalize().Flatten()
	if len(finalHeaders) == 0 {
		return Report{}, common.InvalidInputf("nothing to export: no fields and no table columns")
	}

	log.Info("sheets.sync.start", "local_headers", len(finalHeaders), "rows", len(rows))
	report := Report{Sheet: req.SheetName}

	// 1. resolve target sheet
	created, err := e.ensureSheet(ctx, req)
	if err != nil {
		log.Error("sheets.sync.resolve_failed", "error", err)
		return Report{}, err
	}
	report.SheetCreated = created

	// 3. existing headers; a failed or empty read means a fresh sheet
	existing := e.readHeaders(ctx, req, log)

	// 4. union; write back only when it changed
	master := UnionHeaders(existing, finalHeaders)
	report.MasterHeaders = master
	if !sameHeaders(master, existing) {
		if err := e.api.UpdateValues(ctx, req.SpreadsheetID, req.Token, Range(req.SheetName, "A1"), [][]string{master}); err != nil {
			log.Error("sheets.sync.write_headers_failed", "error", err)
			return Report{}, err
		}
		report.HeadersWritten = true
		log.Info("sheets.sync.headers_written", "existing", len(existing), "master", len(master))
	}

	// 5. align rows to master order
	aligned := ReprojectAll(master, finalHeaders, rows)
	if len(aligned) == 0 {
		log.Info("sheets.sync.ok", "rows_appended", 0, "elapsed_ms", time.Since(start).Milliseconds())
		return report, nil
	}

	// 6. append below the header row
	res, err := e.api.AppendValues(ctx, req.SpreadsheetID, req.Token, Range(req.SheetName, "A2"), aligned)
	if err != nil {
		log.Error("sheets.sync.append_failed", "error", err)
		return Report{}, err
	}
	report.RowsAppended = len(aligned)
	report.UpdatedRange = res.UpdatedRange

	log.Info("sheets.sync.ok",
		"sheet_created", report.SheetCreated,
		"headers_written", report.HeadersWritten,
		"rows_appended", report.RowsAppended,
		"updated_range", res.UpdatedRange,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// ensureSheet matches the target title exactly. The service keeps titles
// unique ignoring case, so a tab differing only in case blocks creation and
// is reported without calling addSheet.
func (e *Engine) ensureSheet(ctx context.Context, req Request) (bool, error) {
	titles, err := e.api.SheetTitles(ctx, req.SpreadsheetID, req.Token)
	if err != nil {
		return false, err
	}
	caseVariant := false
	for _, t := range titles {
		if t == req.SheetName {
			return false, nil
		}
		if strings.EqualFold(t, req.SheetName) {
			caseVariant = true
		}
	}
	if caseVariant {
		return false, &SyncError{
			Op:         "add_sheet",
			StatusCode: http.StatusBadRequest,
			Status:     "INVALID_ARGUMENT",
			Message:    "a sheet with the same name in different letter case already exists; sheet names must match exactly",
		}
	}
	if err := e.api.AddSheet(ctx, req.SpreadsheetID, req.Token, req.SheetName); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) readHeaders(ctx context.Context, req Request, log *slog.Logger) []string {
	values, err := e.api.GetValues(ctx, req.SpreadsheetID, req.Token, Range(req.SheetName, constants.HeaderRange))
	if err != nil {
		log.Warn("sheets.sync.read_headers_failed", "error", err)
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func validate(req Request) error {
	v := common.NewValidator().
		Field("spreadsheet_id", req.SpreadsheetID, common.Required).
		Field("sheet_name", req.SheetName, common.Required, common.MaxLength(100), common.NoControlChars)
	if err := v.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(req.Token) == "" {
		return &SyncError{Op: "authorize", StatusCode: http.StatusUnauthorized, Message: "missing bearer token"}
	}
	return nil
}
