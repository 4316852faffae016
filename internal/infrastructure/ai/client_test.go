package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func candidateBody(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(context.Background(), Settings{
		APIKey:          "test-key",
		Model:           "gemini-test",
		BaseURL:         baseURL,
		Timeout:         timeout,
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 256,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestInvoke_MissingKeyNeverCallsNetwork(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), Settings{}, logging.NewNopLogger())
	require.NoError(t, err)

	res := c.Invoke(context.Background(), "hello", InvokeOptions{})

	assert.False(t, c.Configured())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, map[string]any{"message": FallbackMessage}, res.Data)
}

func TestInvoke_StructuredResponse(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, candidateBody(`{"thought":"t","response":"r","action":"none"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	res := c.Invoke(context.Background(), "prompt text", InvokeOptions{
		SystemInstruction: "be helpful",
		Schema:            DecisionSchema(),
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]any{"thought": "t", "response": "r", "action": "none"}, res.Data)

	gen, ok := captured["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request")
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.NotNil(t, gen["responseSchema"])
	assert.EqualValues(t, 256, gen["maxOutputTokens"])
	assert.NotNil(t, captured["systemInstruction"])
	assert.NotNil(t, captured["contents"])
}

func TestInvoke_PlainTextHasNilData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, candidateBody("سلام، خوش آمدید"))
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL, 5*time.Second).Invoke(context.Background(), "hi", InvokeOptions{})

	assert.True(t, res.Success)
	assert.Equal(t, "سلام، خوش آمدید", res.Text)
	assert.Nil(t, res.Data)
}

func TestInvoke_FailuresFallBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`)
		},
		"empty candidates": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"candidates":`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			res := newTestClient(t, srv.URL, 5*time.Second).Invoke(context.Background(), "hi", InvokeOptions{})

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, FallbackMessage, res.Data.(map[string]any)["message"])
		})
	}
}

func TestInvoke_SingleAttemptOnTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := newTestClient(t, srv.URL, 100*time.Millisecond).Invoke(context.Background(), "hi", InvokeOptions{})

	assert.False(t, res.Success)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoke_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestClient(t, srv.URL, 5*time.Second).Invoke(ctx, "hi", InvokeOptions{})
	assert.False(t, res.Success)
}

func TestParseJSONText(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1.0}, ParseJSONText("```json\n{\"a\":1}\n```"))
	assert.Equal(t, []any{"x"}, ParseJSONText(` ["x"] `))
	assert.Nil(t, ParseJSONText("{not json"))
	assert.Nil(t, ParseJSONText("plain"))
	assert.Nil(t, ParseJSONText(""))
}
