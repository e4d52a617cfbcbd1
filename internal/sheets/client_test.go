package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docsheet/internal/common"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// sheetsServer emulates the handful of REST endpoints the client uses.
func sheetsServer(t *testing.T, handle func(w http.ResponseWriter, r recorded)) (*Client, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		handle(w, rec)
	}))
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL}, nil), &calls
}

func TestClient_SheetTitles(t *testing.T) {
	c, calls := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"Sheet1"}},{"properties":{"title":"My Sheet"}}]}`)
	})

	titles, err := c.SheetTitles(context.Background(), "sid", "tok")

	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "My Sheet"}, titles)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/sid", (*calls)[0].path)
	assert.Equal(t, "fields=sheets.properties", (*calls)[0].query)
	assert.Equal(t, "Bearer tok", (*calls)[0].auth)
}

func TestClient_AddSheet(t *testing.T) {
	c, calls := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, `{"replies":[{}]}`)
	})

	require.NoError(t, c.AddSheet(context.Background(), "sid", "tok", "New"))

	got := (*calls)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/sid:batchUpdate", got.path)
	reqs := got.body["requests"].([]any)
	props := reqs[0].(map[string]any)["addSheet"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "New", props["title"])
}

func TestClient_GetValuesStringifiesCells(t *testing.T) {
	c, calls := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, `{"range":"'My Sheet'!A1:Z1","values":[["Date",12,true]]}`)
	})

	rows, err := c.GetValues(context.Background(), "sid", "tok", "'My Sheet'!A1:Z1")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "12", "true"}}, rows)
	assert.Equal(t, "/sid/values/'My Sheet'!A1:Z1", (*calls)[0].path)
}

func TestClient_GetValuesEmptyRange(t *testing.T) {
	c, _ := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, `{"range":"Sheet1!A1:Z1","majorDimension":"ROWS"}`)
	})

	rows, err := c.GetValues(context.Background(), "sid", "tok", "Sheet1!A1:Z1")

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_UpdateAndAppendUseUserEntered(t *testing.T) {
	c, calls := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		if r.method == http.MethodPost {
			_, _ = io.WriteString(w, `{"tableRange":"Sheet1!A1:C1","updates":{"updatedRange":"Sheet1!A2:C3","updatedRows":2}}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})

	require.NoError(t, c.UpdateValues(context.Background(), "sid", "tok", "Sheet1!A1", [][]string{{"A", "B", "C"}}))
	res, err := c.AppendValues(context.Background(), "sid", "tok", "Sheet1!A2", [][]string{{"1", "2", "3"}, {"4", "5", "6"}})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	put, post := (*calls)[0], (*calls)[1]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/sid/values/Sheet1!A1", put.path)
	assert.Equal(t, "valueInputOption=USER_ENTERED", put.query)
	assert.Equal(t, "ROWS", put.body["majorDimension"])

	assert.Equal(t, http.MethodPost, post.method)
	assert.Equal(t, "/sid/values/Sheet1!A2:append", post.path)
	assert.Equal(t, "valueInputOption=USER_ENTERED", post.query)
	assert.Equal(t, AppendResult{TableRange: "Sheet1!A1:C1", UpdatedRange: "Sheet1!A2:C3", UpdatedRows: 2}, res)
}

func TestClient_UnauthorizedResponse(t *testing.T) {
	c, _ := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`)
	})

	_, err := c.SheetTitles(context.Background(), "sid", "expired")

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "metadata", se.Op)
	assert.Equal(t, "UNAUTHENTICATED", se.Status)
	assert.Equal(t, "Request had invalid authentication credentials.", se.Message)
	assert.True(t, IsAuthError(err))
}

func TestClient_NotFoundResponse(t *testing.T) {
	c, _ := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`)
	})

	_, err := c.SheetTitles(context.Background(), "missing", "tok")

	require.Error(t, err)
	assert.False(t, IsAuthError(err))
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Contains(t, err.Error(), "Requested entity was not found.")
}

func TestClient_MalformedResponse(t *testing.T) {
	c, _ := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	})

	_, err := c.SheetTitles(context.Background(), "sid", "tok")

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "malformed response", se.Message)
}

func TestEngineOverHTTP_AppendsToQuotedSheet(t *testing.T) {
	c, calls := sheetsServer(t, func(w http.ResponseWriter, r recorded) {
		switch {
		case r.method == http.MethodGet && r.path == "/sid":
			_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"Result 1"}}]}`)
		case r.method == http.MethodGet:
			_, _ = io.WriteString(w, `{"values":[["Date","Vendor"]]}`)
		case r.method == http.MethodPost:
			_, _ = io.WriteString(w, `{"updates":{"updatedRange":"'Result 1'!A2:C2","updatedRows":1}}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	})

	data := lineItems()
	data.Tables = nil
	data.Fields = append(data.Fields, data.Fields[0])
	data.Fields[1].Label = "Item"
	data.Fields[1].Value = "Pen"

	report, err := NewEngine(c, nil).Sync(context.Background(), request("Result 1", data))

	require.NoError(t, err)
	assert.Equal(t, "'Result 1'!A2:C2", report.UpdatedRange)
	paths := make([]string, 0, len(*calls))
	for _, call := range *calls {
		paths = append(paths, call.method+" "+call.path)
	}
	assert.Equal(t, []string{
		"GET /sid",
		"GET /sid/values/'Result 1'!A1:Z1",
		"PUT /sid/values/'Result 1'!A1",
		"POST /sid/values/'Result 1'!A2:append",
	}, paths)
	last := (*calls)[3].body["values"].([]any)
	assert.Equal(t, []any{"2024-01-01", "", "Pen"}, last[0])
}
