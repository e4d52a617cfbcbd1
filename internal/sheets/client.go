package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// ClientConfig configures the spreadsheet REST client.
type ClientConfig struct {
	// BaseURL is the spreadsheets collection, default https://sheets.googleapis.com/v4/spreadsheets.
	BaseURL string

	// RateLimit caps requests per second; <= 0 disables pacing.
	RateLimit float64

	// RateBurst is the limiter burst size (default 1).
	RateBurst int

	// HTTPClient overrides the transport (tests). No timeout is set by default.
	HTTPClient *http.Client
}

// Client speaks the subset of the Sheets v4 REST API the sync protocol needs.
// Each call carries the caller's bearer token; nothing is retried.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(limit, cfg.RateBurst),
		logger:  logger,
	}
}

// ValueRange is the body shape of values.update and values.append.
type ValueRange struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// AppendResult summarizes what values.append wrote.
type AppendResult struct {
	TableRange   string
	UpdatedRange string
	UpdatedRows  int
}

// SheetTitles lists the titles of all sheets (tabs) in the spreadsheet.
func (c *Client) SheetTitles(ctx context.Context, spreadsheetID, token string) ([]string, error) {
	u := c.spreadsheetURL(spreadsheetID) + "?fields=" + url.QueryEscape("sheets.properties")
	var out struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := c.do(ctx, "metadata", http.MethodGet, u, token, nil, &out); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(out.Sheets))
	for _, s := range out.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

// AddSheet creates a new sheet with the given title.
func (c *Client) AddSheet(ctx context.Context, spreadsheetID, token, title string) error {
	u := c.spreadsheetURL(spreadsheetID) + ":batchUpdate"
	body := map[string]any{
		"requests": []map[string]any{
			{"addSheet": map[string]any{"properties": map[string]any{"title": title}}},
		},
	}
	return c.do(ctx, "add_sheet", http.MethodPost, u, token, body, nil)
}

// GetValues reads a range. A range with no data yields an empty slice.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, token, a1 string) ([][]string, error) {
	u := c.valuesURL(spreadsheetID, a1)
	var out struct {
		Values [][]any `json:"values"`
	}
	if err := c.do(ctx, "read_values", http.MethodGet, u, token, nil, &out); err != nil {
		return nil, err
	}
	rows := make([][]string, len(out.Values))
	for i, r := range out.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			if v != nil {
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows, nil
}

// UpdateValues overwrites a range, letting the service interpret input types.
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, token, a1 string, values [][]string) error {
	u := c.valuesURL(spreadsheetID, a1) + "?valueInputOption=" + constants.ValueInputUserEntered
	body := ValueRange{Range: a1, MajorDimension: "ROWS", Values: values}
	return c.do(ctx, "write_values", http.MethodPut, u, token, body, nil)
}

// AppendValues appends rows after the last row of the table found at a1.
func (c *Client) AppendValues(ctx context.Context, spreadsheetID, token, a1 string, values [][]string) (AppendResult, error) {
	u := c.valuesURL(spreadsheetID, a1) + ":append?valueInputOption=" + constants.ValueInputUserEntered
	body := ValueRange{Range: a1, MajorDimension: "ROWS", Values: values}
	var out struct {
		TableRange string `json:"tableRange"`
		Updates    struct {
			UpdatedRange string `json:"updatedRange"`
			UpdatedRows  int    `json:"updatedRows"`
		} `json:"updates"`
	}
	if err := c.do(ctx, "append", http.MethodPost, u, token, body, &out); err != nil {
		return AppendResult{}, err
	}
	return AppendResult{
		TableRange:   out.TableRange,
		UpdatedRange: out.Updates.UpdatedRange,
		UpdatedRows:  out.Updates.UpdatedRows,
	}, nil
}

func (c *Client) spreadsheetURL(spreadsheetID string) string {
	return c.baseURL + "/" + url.PathEscape(spreadsheetID)
}

func (c *Client) valuesURL(spreadsheetID, a1 string) string {
	return c.spreadsheetURL(spreadsheetID) + "/values/" + url.PathEscape(a1)
}

func (c *Client) do(ctx context.Context, op, method, u, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &SyncError{Op: op, Message: "rate limiter", Cause: err}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return &SyncError{Op: op, Message: "encode request", Cause: err}
		}
		reader = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &SyncError{Op: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("sheets.http.send_error", "req_id", reqID, "op", op, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return &SyncError{Op: op, Message: "request failed", Cause: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("sheets.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &SyncError{Op: op, StatusCode: resp.StatusCode, Message: "read response", Cause: err}
	}

	c.logger.Debug("sheets.http.response",
		"req_id", reqID,
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return newAPIError(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &SyncError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Cause: err}
	}
	return nil
}
