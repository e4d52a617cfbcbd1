package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
	"github.com/joseph-ayodele/docsheet/internal/llm"
)

const provider = "openai"

var _ llm.Extractor = (*Client)(nil)

// Extract implements llm.Extractor using chat/completions with the image
// attached as a data URL and a strict json_schema response format.
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
		"temp", c.cfg.Temperature,
		"mime_type", req.MIMEType,
		"image_bytes", len(req.Image),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "extracted_document",
				"strict": true,
				"schema": llm.BuildResponseJSONSchema(),
			},
		},
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": llm.BuildUserPrompt(req.Filename)},
					{"type": "image_url", "image_url": map[string]any{
						"url":    llm.DataURL(req.Image, req.MIMEType),
						"detail": c.cfg.Detail,
					}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, httpErr := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
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

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "decode response", Cause: err}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "no choices in response"}
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		return entity.ExtractedData{}, raw, &llm.ExtractionError{Provider: provider, StatusCode: status, Message: "model refused: " + msg.Refusal}
	}

	data, content, err := llm.ParseExtraction([]byte(msg.Content), c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err, "content", msg.Content,
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
