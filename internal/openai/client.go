package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiURL = "https://api.openai.com/v1/responses"

// Client calls the Responses API, optionally constraining output to a JSON schema.
type Client struct {
	apiKey      string
	model       string
	url         string
	temperature float64
	schemaName  string
	schema      map[string]any
	client      *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:      apiKey,
		model:       model,
		url:         apiURL,
		temperature: 0.3,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// WithSchema enables strict json_schema output under the given name.
func (c *Client) WithSchema(name string, schema map[string]any) *Client {
	c.schemaName = name
	c.schema = schema
	return c
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.url = url
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type textOptions struct {
	Format jsonSchemaFormat `json:"format"`
}

type request struct {
	Model       string         `json:"model"`
	Input       []inputMessage `json:"input"`
	Temperature float64        `json:"temperature"`
	Text        *textOptions   `json:"text,omitempty"`
}

type outputContent struct {
	Type    string `json:"type"`
	Text    any    `json:"text"`
	Content any    `json:"content"`
}

type response struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string          `json:"type"`
		Content []outputContent `json:"content"`
	} `json:"output"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-200 answer from the Responses API.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("openai error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openai error %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

// QuotaExhausted reports rate limiting or an exhausted billing quota.
func (e *APIError) QuotaExhausted() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch e.Code {
	case "insufficient_quota", "rate_limit_exceeded":
		return true
	}
	return e.Type == "insufficient_quota" || e.Type == "rate_limit_error"
}

// Generate sends one system and one user message and returns the output text.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	reqBody := request{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	}
	if c.schema != nil {
		reqBody.Text = &textOptions{Format: jsonSchemaFormat{
			Type:   "json_schema",
			Name:   c.schemaName,
			Strict: true,
			Schema: c.schema,
		}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Code = errResp.Error.Code
			apiErr.Message = errResp.Error.Message
		}
		return "", apiErr
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	text := outputText(apiResp)
	if text == "" {
		return "", fmt.Errorf("empty output text (output items: %d)", len(apiResp.Output))
	}
	return text, nil
}

// outputText prefers the aggregated output_text and falls back to joining
// the text parts of the output messages.
func outputText(r response) string {
	if s := strings.TrimSpace(r.OutputText); s != "" {
		return s
	}
	var sb strings.Builder
	for _, item := range r.Output {
		for _, part := range item.Content {
			if s, ok := part.Text.(string); ok {
				sb.WriteString(s)
			} else if s, ok := part.Content.(string); ok {
				sb.WriteString(s)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// StructuredOutput reports whether a response schema is configured.
func (c *Client) StructuredOutput() bool {
	return c.schema != nil
}
