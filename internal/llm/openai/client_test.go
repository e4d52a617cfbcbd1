package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docsheet/internal/llm"
)

var jpeg = []byte("\xff\xd8\xff\xe0fake")

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
}

func completion(content, refusal string) string {
	msg := map[string]any{"content": content}
	if refusal != "" {
		msg["refusal"] = refusal
	}
	b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"message": msg}}})
	return string(b)
}

func TestExtract_PostsStrictSchemaAndDataURL(t *testing.T) {
	var body map[string]any
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = io.WriteString(w, completion(`{"fields":[],"tables":[{"name":"Items","headers":["Item"],"rows":[{"values":["Pen"]}]}]}`, ""))
	})

	data, _, err := c.Extract(context.Background(), llm.ExtractRequest{Image: jpeg, MIMEType: "image/jpeg"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	rf := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	assert.Equal(t, true, rf["json_schema"].(map[string]any)["strict"])

	msgs := body["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	img := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(img["url"].(string), "data:image/jpeg;base64,"))

	require.Len(t, data.Tables, 1)
	assert.Equal(t, []string{"Pen"}, data.Tables[0].Rows[0].Values)
	assert.NotNil(t, data.Fields)
}

func TestExtract_Refusal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completion("", "cannot help"))
	})

	_, _, err := c.Extract(context.Background(), llm.ExtractRequest{Image: jpeg, MIMEType: "image/jpeg"})

	var xErr *llm.ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Contains(t, xErr.Message, "cannot help")
}

func TestExtract_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	})

	_, _, err := c.Extract(context.Background(), llm.ExtractRequest{Image: jpeg, MIMEType: "image/jpeg"})

	var xErr *llm.ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, http.StatusUnauthorized, xErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", xErr.Message)
}

func TestExtract_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	_, _, err := c.Extract(context.Background(), llm.ExtractRequest{Image: jpeg, MIMEType: "image/jpeg"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
