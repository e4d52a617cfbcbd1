package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/auth"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
	"github.com/joseph-ayodele/docsheet/internal/llm"
	"github.com/joseph-ayodele/docsheet/internal/session"
	"github.com/joseph-ayodele/docsheet/internal/sheets"
	"github.com/joseph-ayodele/docsheet/internal/workspace"
)

type stubExtractor struct {
	data entity.ExtractedData
}

func (s stubExtractor) Extract(context.Context, llm.ExtractRequest) (entity.ExtractedData, []byte, error) {
	return s.data, nil, nil
}

type testEnv struct {
	handler http.Handler
	ws      *workspace.Service
	tokens  *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	data := entity.ExtractedData{
		Fields: []entity.Field{{Label: "Invoice", Value: "A1"}},
		Tables: []entity.Table{{Headers: []string{"Total"}, Rows: []entity.TableRow{{Values: []string{"9"}}}}},
	}
	tokens := auth.NewTokenManager(nil)
	ws := workspace.NewService(workspace.Deps{
		Store:     session.NewStore(nil),
		Extractor: stubExtractor{data: data},
		Engine:    sheets.NewEngine(sheets.NewClient(sheets.ClientConfig{BaseURL: "http://127.0.0.1:1"}, nil), nil),
		Tokens:    tokens,
		Flow:      auth.NewFlow(auth.FlowConfig{ClientID: "client"}, tokens, nil),
		Settings:  workspace.SheetConfig{SpreadsheetID: "sid"},
	}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ws.Shutdown(ctx)
	})

	srv := NewServer(common.ServerConfig{HTTPAddr: ":0", MaxUploadBytes: 1 << 20}, ws, nil)
	return &testEnv{handler: srv.Handler(), ws: ws, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/results", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// uploadReady uploads a PNG and waits for its extraction to finish.
func (e *testEnv) uploadReady(t *testing.T) string {
	t.Helper()
	w := e.upload(t, "invoice.png", []byte("\x89PNG\r\n\x1a\nbody"))
	require.Equal(t, http.StatusAccepted, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Eventually(t, func() bool {
		r, err := e.ws.Get(created.ID)
		return err == nil && r.Status == constants.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)
	return created.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()

	env.handler.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/results", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"missing image file"}`, w.Body.String())
}

func TestUpload_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)

	w := env.upload(t, "notes.txt", []byte("just some text"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestUpload_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)

	w := env.do(t, http.MethodGet, "/api/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Results  []entity.Result `json:"results"`
		ActiveID string          `json:"active_id"`
	}](t, w)
	require.Len(t, list.Results, 1)
	assert.Equal(t, id, list.ActiveID)
	assert.Equal(t, "Result 1", list.Results[0].Name)

	w = env.do(t, http.MethodGet, "/api/results/"+id+"/image", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestGetResult_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/results/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestEditRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)
	base := "/api/results/" + id

	w := env.do(t, http.MethodPost, base+"/fields", map[string]any{"label": "Tax", "value": 1.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decode[entity.Result](t, w)
	assert.Equal(t, entity.Field{Label: "Tax", Value: "1.5"}, r.Data.Fields[1])

	w = env.do(t, http.MethodPut, base+"/fields/0", map[string]any{"label": "Invoice", "value": "B2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.FieldValue("B2"), decode[entity.Result](t, w).Data.Fields[0].Value)

	w = env.do(t, http.MethodPost, base+"/tables/0/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[entity.Result](t, w).Data.Tables[0].Rows, 2)

	w = env.do(t, http.MethodPut, base+"/tables/0/rows/1/cells/0", map[string]any{"value": "11"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"11"}, decode[entity.Result](t, w).Data.Tables[0].Rows[1].Values)

	w = env.do(t, http.MethodDelete, base+"/tables/0/rows/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[entity.Result](t, w).Data.Tables[0].Rows, 1)

	w = env.do(t, http.MethodDelete, base+"/fields/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[entity.Result](t, w).Data.Fields, 1)

	w = env.do(t, http.MethodPatch, base, map[string]any{"name": "March"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "March", decode[entity.Result](t, w).Name)
}

func TestEditRoutes_BadIndexes(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)
	base := "/api/results/" + id

	cases := []struct {
		method, path string
	}{
		{http.MethodDelete, base + "/fields/abc"},
		{http.MethodDelete, base + "/fields/-1"},
		{http.MethodDelete, base + "/fields/9"},
		{http.MethodPost, base + "/tables/3/rows"},
		{http.MethodDelete, base + "/tables/0/rows/7"},
	}
	for _, tc := range cases {
		w := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.path)
	}

	r, err := env.ws.Get(id)
	require.NoError(t, err)
	assert.Len(t, r.Data.Fields, 1)
	assert.Len(t, r.Data.Tables[0].Rows, 1)
}

func TestReplaceData(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)

	w := env.do(t, http.MethodPut, "/api/results/"+id+"/data", map[string]any{
		"fields": []map[string]any{{"label": "Date", "value": "2024-01-02"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	r := decode[entity.Result](t, w)
	assert.Len(t, r.Data.Fields, 1)
	assert.NotNil(t, r.Data.Tables)
	assert.Empty(t, r.Data.Tables)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)

	w := env.do(t, http.MethodGet, "/api/results/"+id+"/export.csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Result_1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"Invoice\",\"Total\"\n\"A1\",\"9\"", w.Body.String())

	w = env.do(t, http.MethodGet, "/api/results/"+id+"/export.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invoice: A1")

	w = env.do(t, http.MethodGet, "/api/results/"+id+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Result_1.xlsx"`, w.Header().Get("Content-Disposition"))

	w = env.do(t, http.MethodGet, "/api/results/"+id+"/export.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestSync_WithoutTokenAsksForReauth(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadReady(t)

	w := env.do(t, http.MethodPost, "/api/results/"+id+"/sync", map[string]any{"sheetName": "Invoices"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["reauth"])
	assert.Equal(t, "AUTH_REQUIRED", body["code"])

	r, err := env.ws.Get(id)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSuccess, r.Status)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"spreadsheet_id":"sid","client_id":""}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/settings", map[string]any{"spreadsheet_id": " other ", "client_id": "cid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"spreadsheet_id":"other","client_id":"cid"}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/settings", map[string]any{"spreadsheet_id": "bad\x01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/auth/status", nil)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/auth/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	start := decode[map[string]string](t, w)
	u, err := url.Parse(start["url"])
	require.NoError(t, err)
	assert.Equal(t, "client", u.Query().Get("client_id"))

	w = env.do(t, http.MethodGet, "/api/auth/callback?state=forged&code=x", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "docsheet-auth")

	env.tokens.Set("tok")
	w = env.do(t, http.MethodGet, "/api/auth/status", nil)
	assert.JSONEq(t, `{"authenticated":true}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/auth", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, env.ws.Authenticated())
}

func TestSelectAndClose(t *testing.T) {
	env := newTestEnv(t)
	first := env.uploadReady(t)
	second := env.uploadReady(t)

	w := env.do(t, http.MethodPost, "/api/results/"+first+"/select", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	_, active := env.ws.List()
	assert.Equal(t, first, active)

	w = env.do(t, http.MethodDelete, "/api/results/"+first, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	_, active = env.ws.List()
	assert.Equal(t, second, active)

	w = env.do(t, http.MethodDelete, "/api/results/"+first, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusFor(auth.ErrNoToken))
	assert.Equal(t, http.StatusConflict, statusFor(auth.ErrFlowCancelled))
	assert.Equal(t, http.StatusBadGateway, statusFor(&llm.ExtractionError{Provider: "openai", Message: "down"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(common.InvalidInputf("x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
