// Package ai is the generative model client. Every failure path yields a
// fallback result instead of an error so callers can always answer the user.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"google.golang.org/genai"
)

// FallbackMessage is shown to users whenever the model cannot answer.
const FallbackMessage = "متأسفانه در حال حاضر امکان پاسخگویی وجود ندارد. لطفاً چند لحظه دیگر دوباره تلاش کنید."

var errNotConfigured = errors.New("ai provider not configured")

// Settings configures the Gemini client.
type Settings struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	Temperature     float64
	TopK            float64
	TopP            float64
	MaxOutputTokens int
}

// InvokeOptions shape a single request.
type InvokeOptions struct {
	SystemInstruction string
	// Schema, when set, requests application/json output constrained to it.
	Schema *genai.Schema
}

// InvokeResult is the outcome of one model call.
type InvokeResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GeminiClient calls the generateContent endpoint once per Invoke.
type GeminiClient struct {
	client    *genai.Client
	transport *http.Transport
	settings  Settings
	logger    *logging.ChanneledLogger
}

// NewGeminiClient builds a client. A missing API key is not an error: the
// client then answers every call with the fallback without touching the network.
func NewGeminiClient(ctx context.Context, settings Settings, logger *logging.ChanneledLogger) (*GeminiClient, error) {
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Model == "" {
		settings.Model = "gemini-2.0-flash"
	}

	c := &GeminiClient{settings: settings, logger: logger}
	if strings.TrimSpace(settings.APIKey) == "" {
		logger.AI().Warn("Gemini API key missing, assistant will answer with fallback only")
		return c, nil
	}

	c.transport = http.DefaultTransport.(*http.Transport).Clone()
	cfg := &genai.ClientConfig{
		APIKey:     settings.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: c.transport},
	}
	if settings.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: settings.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = client
	logger.AI().Info("Gemini client initialized", "model", settings.Model)
	return c, nil
}

// Configured reports whether calls will reach the provider.
func (c *GeminiClient) Configured() bool {
	return c.client != nil
}

// Close releases idle connections.
func (c *GeminiClient) Close() {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

// Invoke sends prompt to the model. It never returns nil.
func (c *GeminiClient) Invoke(ctx context.Context, prompt string, opts InvokeOptions) *InvokeResult {
	if c.client == nil {
		return Fallback(errNotConfigured)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	cfg := c.generationConfig(opts)
	c.logger.AI().Debug("Invoking model", "model", c.settings.Model, "promptChars", len(prompt), "structured", opts.Schema != nil)

	resp, err := c.client.Models.GenerateContent(ctx, c.settings.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		c.logger.AI().Error("Model invocation failed", "error", err.Error(), "duration", time.Since(start))
		return Fallback(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.logger.AI().Warn("Model returned no text", "duration", time.Since(start))
		return Fallback(errors.New("empty response from model"))
	}

	c.logger.AI().Info("Model invocation completed", "duration", time.Since(start), "responseChars", len(text))
	return &InvokeResult{Success: true, Text: text, Data: ParseJSONText(text)}
}

func (c *GeminiClient) generationConfig(opts InvokeOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.settings.Temperature)),
		TopK:            genai.Ptr(float32(c.settings.TopK)),
		TopP:            genai.Ptr(float32(c.settings.TopP)),
		MaxOutputTokens: int32(c.settings.MaxOutputTokens),
	}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if opts.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = opts.Schema
	}
	return cfg
}

// Fallback builds the failure result. The cause stays in Error for logs;
// users only ever see the apology.
func Fallback(err error) *InvokeResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &InvokeResult{
		Success: false,
		Error:   msg,
		Data:    map[string]any{"message": FallbackMessage},
	}
}

// ParseJSONText decodes text that looks like a JSON document, tolerating a
// surrounding markdown code fence. Anything else yields nil.
func ParseJSONText(text string) any {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(strings.TrimSpace(t), "```")
		t = strings.TrimSpace(t)
	}
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return nil
	}
	var out any
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil
	}
	return out
}
