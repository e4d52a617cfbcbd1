// Package workspace ties the session store to extraction, editing, export
// and spreadsheet sync. One Service exists per running application.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/async"
	"github.com/joseph-ayodele/docsheet/internal/auth"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
	"github.com/joseph-ayodele/docsheet/internal/export"
	"github.com/joseph-ayodele/docsheet/internal/llm"
	"github.com/joseph-ayodele/docsheet/internal/session"
	"github.com/joseph-ayodele/docsheet/internal/sheets"
)

const maxNameLength = 100

// Deps are the collaborators a Service drives.
type Deps struct {
	Store     *session.Store
	Extractor llm.Extractor
	Engine    *sheets.Engine
	Tokens    *auth.TokenManager
	Flow      *auth.Flow
	Exporter  *export.Service
	Settings  SheetConfig
}

type Service struct {
	store     *session.Store
	extractor llm.Extractor
	engine    *sheets.Engine
	tokens    *auth.TokenManager
	flow      *auth.Flow
	exporter  *export.Service
	queue     async.Queue
	logger    *slog.Logger

	mu       sync.RWMutex
	settings SheetConfig
}

// NewService wires the collaborators and starts the extraction workers.
func NewService(deps Deps, logger *slog.Logger, queueOpts ...async.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(logger)
	}
	s := &Service{
		store:     deps.Store,
		extractor: deps.Extractor,
		engine:    deps.Engine,
		tokens:    deps.Tokens,
		flow:      deps.Flow,
		exporter:  deps.Exporter,
		logger:    logger,
		settings:  deps.Settings,
	}
	s.queue = async.NewExtractQueue(s.runExtraction, logger, queueOpts...)
	return s
}

// Shutdown drains in-flight extractions.
func (s *Service) Shutdown(ctx context.Context) {
	s.queue.Shutdown(ctx)
}

// Upload creates an Analyzing result and schedules its extraction. The id is
// returned immediately; the result turns Success or Error when the vision
// call resolves.
func (s *Service) Upload(ctx context.Context, image []byte, mimeType, filename string) (string, error) {
	req := llm.ExtractRequest{Image: image, MIMEType: mimeType, Filename: filename}
	if err := req.Validate(); err != nil {
		return "", err
	}

	id := s.store.CreateResult(image, mimeType)
	job := async.Job{
		ResultID:  id,
		Image:     image,
		MIMEType:  mimeType,
		Filename:  filename,
		RequestID: common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.fail(id, err)
		return id, common.WrapError(err, "schedule extraction")
	}
	return id, nil
}

func (s *Service) runExtraction(ctx context.Context, job async.Job) error {
	ctx = common.WithResultID(common.WithRequestID(ctx, job.RequestID), job.ResultID)
	log := common.LoggerFromContext(ctx, s.logger)

	if _, ok := s.store.Get(job.ResultID); !ok {
		log.Info("workspace.extract.skipped_closed")
		return nil
	}

	start := time.Now()
	data, _, err := s.extractor.Extract(ctx, llm.ExtractRequest{
		Image:    job.Image,
		MIMEType: job.MIMEType,
		Filename: job.Filename,
	})
	if err != nil {
		s.fail(job.ResultID, err)
		return err
	}

	applied := s.store.UpdateResult(job.ResultID, func(r *entity.Result) {
		r.Data = data
		r.Status = constants.StatusSuccess
		r.ErrorMessage = ""
	})
	log.Info("workspace.extract.ok",
		"applied", applied,
		"summary", data.Summary(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Service) fail(id string, err error) {
	s.store.UpdateResult(id, func(r *entity.Result) {
		r.Status = constants.StatusError
		r.ErrorMessage = err.Error()
	})
}

// Get returns a copy of the result.
func (s *Service) Get(id string) (entity.Result, error) {
	r, ok := s.store.Get(id)
	if !ok {
		return entity.Result{}, common.NotFoundf("result %s not found", id)
	}
	return r, nil
}

// List returns the results in creation order and the active id.
func (s *Service) List() ([]entity.Result, string) {
	return s.store.List()
}

func (s *Service) Select(id string) error {
	return s.store.SelectResult(id)
}

// Close discards the result. A pending extraction for it becomes a no-op.
func (s *Service) Close(id string) error {
	return s.store.CloseResult(id)
}

func (s *Service) Rename(id, name string) (entity.Result, error) {
	name = strings.TrimSpace(name)
	v := common.NewValidator().
		Field("name", name, common.Required, common.MaxLength(maxNameLength), common.NoControlChars)
	if err := v.Err(); err != nil {
		return entity.Result{}, err
	}
	if err := s.store.RenameResult(id, name); err != nil {
		return entity.Result{}, err
	}
	return s.Get(id)
}

// Edit applies fn to the result's data inside the store's critical section,
// so concurrent edits to one result never lose each other's changes.
func (s *Service) Edit(id string, fn func(entity.ExtractedData) (entity.ExtractedData, error)) (entity.Result, error) {
	var editErr error
	ok := s.store.UpdateResult(id, func(r *entity.Result) {
		next, err := fn(r.Data)
		if err != nil {
			editErr = err
			return
		}
		r.Data = next
	})
	if !ok {
		return entity.Result{}, common.NotFoundf("result %s not found", id)
	}
	if editErr != nil {
		return entity.Result{}, editErr
	}
	return s.Get(id)
}

// ReplaceData swaps the whole ExtractedData of a result.
func (s *Service) ReplaceData(id string, data entity.ExtractedData) (entity.Result, error) {
	return s.Edit(id, func(entity.ExtractedData) (entity.ExtractedData, error) {
		return data.Normalize(), nil
	})
}

// Export syncs the result's data to the configured spreadsheet. The result is
// marked Exporting for the duration and returned to its previous status
// afterwards whatever the outcome; its data is never touched. A rejected
// token is discarded so the caller can prompt for re-authentication.
func (s *Service) Export(ctx context.Context, id, sheetName string) (sheets.Report, error) {
	ctx = common.WithResultID(ctx, id)
	log := common.LoggerFromContext(ctx, s.logger)

	cfg := s.Settings()
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return sheets.Report{}, common.InvalidInputf("spreadsheet id is not configured")
	}
	token, err := s.tokens.Token()
	if err != nil {
		return sheets.Report{}, common.NewAppError("AUTH_REQUIRED", "re-authentication required", fmt.Errorf("%w: %w", common.ErrUnauthorized, err))
	}

	r, prev, err := s.claimForExport(id)
	if err != nil {
		return sheets.Report{}, err
	}
	if sheetName = strings.TrimSpace(sheetName); sheetName == "" {
		sheetName = r.Name
	}

	defer s.store.UpdateResult(id, func(r *entity.Result) {
		if r.Status == constants.StatusExporting {
			r.Status = prev
		}
	})

	report, err := s.engine.Sync(ctx, sheets.Request{
		SpreadsheetID: cfg.SpreadsheetID,
		Token:         token,
		SheetName:     sheetName,
		Data:          r.Data,
	})
	if err != nil {
		if sheets.IsAuthError(err) {
			s.tokens.Invalidate()
			log.Warn("workspace.export.reauth_required", "error", err)
			return sheets.Report{}, common.NewAppError("AUTH_REQUIRED", "re-authentication required", err)
		}
		log.Error("workspace.export.failed", "error", err)
		return sheets.Report{}, err
	}
	return report, nil
}

// claimForExport moves the result to Exporting in a single store update so
// two concurrent exports cannot both pass the status check. It returns the
// claimed snapshot and the status to restore.
func (s *Service) claimForExport(id string) (entity.Result, constants.ResultStatus, error) {
	var (
		claimed entity.Result
		prev    constants.ResultStatus
		reject  error
	)
	found, _ := s.store.UpdateResultIf(id, func(r *entity.Result) bool {
		switch r.Status {
		case constants.StatusAnalyzing:
			reject = common.InvalidInputf("result %s is still being analyzed", id)
			return false
		case constants.StatusExporting:
			reject = common.InvalidInputf("result %s is already exporting", id)
			return false
		}
		prev = r.Status
		r.Status = constants.StatusExporting
		claimed = r.Clone()
		return true
	})
	if !found {
		return entity.Result{}, "", common.NotFoundf("result %s not found", id)
	}
	if reject != nil {
		return entity.Result{}, "", reject
	}
	return claimed, prev, nil
}

func (s *Service) setStatus(id string, status constants.ResultStatus) {
	s.store.UpdateResult(id, func(r *entity.Result) { r.Status = status })
}

// CSV renders the result for download.
func (s *Service) CSV(id string) (string, error) {
	r, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return export.CSV(r.Data), nil
}

// ClipboardText renders the result as plain text.
func (s *Service) ClipboardText(id string) (string, error) {
	r, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return export.ClipboardText(r.Data), nil
}

// XLSX renders the result as a workbook.
func (s *Service) XLSX(id string) ([]byte, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.exporter.XLSX(r.Data)
}

// PDF renders the result as a printable report titled with its name.
func (s *Service) PDF(id string) ([]byte, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.exporter.PDF(r.Name, r.Data)
}

// ErrAuthRequired reports whether err means the caller must sign in again.
func ErrAuthRequired(err error) bool {
	return errors.Is(err, common.ErrUnauthorized) || errors.Is(err, auth.ErrNoToken)
}
