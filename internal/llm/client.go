// Package llm talks to an OpenAI or Azure OpenAI compatible chat
// completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"reportgen/internal/logger"
	"reportgen/internal/settings"
)

const (
	DefaultModel   = "gpt-4-1106-preview"
	defaultBaseURL = "https://api.openai.com"
	completionPath = "/v1/chat/completions"
)

var (
	// ErrUpstream wraps transport failures and non-2xx answers.
	ErrUpstream = errors.New("llm upstream error")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("llm credentials not configured")
)

// CredentialSource yields the current endpoint and key. Values are read on
// every call so edits through the settings page apply without a restart.
type CredentialSource interface {
	OpenAI() (settings.OpenAI, error)
}

type Client struct {
	creds      CredentialSource
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(creds CredentialSource, timeout time.Duration, log *logger.Logger) *Client {
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		creds:      creds,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        log.With("service", "LLMClient"),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// ExtractFields asks the model for a JSON object holding the given fields.
// prompt, when set, is sent as the system message. A reply that is not a
// JSON object yields an empty map and no error.
func (c *Client) ExtractFields(ctx context.Context, text string, fields []string, prompt string) (map[string]string, error) {
	var msgs []message
	if strings.TrimSpace(prompt) != "" {
		msgs = append(msgs, message{Role: "system", Content: prompt})
	}
	msgs = append(msgs, message{
		Role:    "user",
		Content: "Please extract the following fields from the text and return JSON: " + strings.Join(fields, ", ") + "\nText:" + text,
	})

	content, err := c.complete(ctx, msgs)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil || raw == nil {
		c.log.Warn("Model reply is not a JSON object, nothing extracted", "content_length", len(content))
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[k] = stringify(v)
	}
	return out, nil
}

// Chat returns the model's reply to a single user message.
func (c *Client) Chat(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, []message{{Role: "user", Content: text}})
}

func (c *Client) complete(ctx context.Context, msgs []message) (string, error) {
	url, key, err := c.resolve()
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(completionRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("api-key", key)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("Chat completion failed", "status", resp.StatusCode, "elapsed", time.Since(start))
		return "", fmt.Errorf("%w: http %d: %s", ErrUpstream, resp.StatusCode, truncate(string(raw), 512))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrUpstream)
	}
	c.log.Debug("Chat completion done", "model", c.model, "elapsed", time.Since(start))
	return out.Choices[0].Message.Content, nil
}

// resolve picks the endpoint and key from the settings store, falling back
// to OPENAI_BASE_URL and OPENAI_API_KEY.
func (c *Client) resolve() (string, string, error) {
	var s settings.OpenAI
	if c.creds != nil {
		var err error
		if s, err = c.creds.OpenAI(); err != nil {
			return "", "", err
		}
	}
	key := strings.TrimSpace(s.Key)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if key == "" {
		return "", "", ErrNotConfigured
	}
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	}
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	return completionURL(endpoint), key, nil
}

// completionURL accepts either a base URL or a full deployment URL.
func completionURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.Contains(endpoint, "/chat/completions") {
		return endpoint
	}
	return endpoint + completionPath
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
