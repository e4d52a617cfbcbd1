package gemini

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
	"github.com/joseph-ayodele/docsheet/internal/llm"
)

const provider = "gemini"

var _ llm.Extractor = (*Client)(nil)

type gmInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type gmPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *gmInlineData `json:"inline_data,omitempty"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMIMEType string         `json:"response_mime_type"`
	ResponseSchema   map[string]any `json:"response_schema"`
}

type gmReq struct {
	Contents         []gmContent        `json:"contents"`
	GenerationConfig gmGenerationConfig `json:"generationConfig"`
}

type gmResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Extract implements llm.Extractor against models/{model}:generateContent with
// the image sent as inline data and a response schema constraint.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedData, []byte, error) {
	if err := req.Validate(); err != nil {
		return entity.ExtractedData{}, nil, err
	}

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", provider,
		"model", c.cfg.Model,
		"mime_type", req.MIMEType,
		"image_bytes", len(req.Image),
	)

	body := gmReq{
		Contents: []gmContent{{
			Role: "user",
			Parts: []gmPart{
				{Text: llm.BuildUserPrompt(req.Filename)},
				{InlineData: &gmInlineData{MIMEType: req.MIMEType, Data: llm.Base64(req.Image)}},
			},
		}},
		GenerationConfig: gmGenerationConfig{
			Temperature:      c.cfg.Temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   ResponseSchema(),
		},
	}

	raw, status, httpErr := llm.SendJSON(ctx, c.httpClient, c.endpoint(), body, map[string]string{"x-goog-api-key": c.cfg.APIKey}, c.log)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if status != 0 {
			return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: llm.ErrorMessage(raw)}
		}
		return entity.ExtractedData{}, nil, &llm.ExtractionError{Provider: provider, Message: "request failed", Cause: httpErr}
	}

	var gr gmResp
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "decode response", Cause: err}
	}
	if gr.PromptFeedback.BlockReason != "" {
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "request blocked: " + gr.PromptFeedback.BlockReason}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.log.Error("llm.extract.no_candidates", "req_id", rid, "raw", string(raw))
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "no candidates in response"}
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	data, content, err := llm.ParseExtraction([]byte(text.String()), c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"finish_reason", gr.Candidates[0].FinishReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedData{}, content, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "unusable model output", Cause: err}
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"provider", provider,
		"summary", data.Summary(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, content, nil
}

// Name identifies the provider in logs and status responses.
func (c *Client) Name() string { return provider + ":" + c.cfg.Model }

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/v1beta/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"
}

// ResponseSchema is the extraction shape in Gemini's OpenAPI schema subset.
// Gemini has no union types, so field values are requested as strings.
func ResponseSchema() map[string]any {
	str := map[string]any{"type": "STRING"}
	strArray := map[string]any{"type": "ARRAY", "items": str}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"fields": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type":             "OBJECT",
					"properties":       map[string]any{"label": str, "value": str},
					"required":         []string{"label", "value"},
					"propertyOrdering": []string{"label", "value"},
				},
			},
			"tables": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"name":    str,
						"headers": strArray,
						"rows": map[string]any{
							"type": "ARRAY",
							"items": map[string]any{
								"type":       "OBJECT",
								"properties": map[string]any{"values": strArray},
								"required":   []string{"values"},
							},
						},
					},
					"required":         []string{"name", "headers", "rows"},
					"propertyOrdering": []string{"name", "headers", "rows"},
				},
			},
		},
		"required":         []string{"fields", "tables"},
		"propertyOrdering": []string{"fields", "tables"},
	}
}
