package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe_NotConfigured(t *testing.T) {
	tr := NewAssemblyAITranscriber("", "", time.Second, logging.NewNopLogger())

	_, err := tr.Transcribe(context.Background(), "https://example.com/a.mp3", "fa")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTranscribe_Completed(t *testing.T) {
	var submitted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v2/transcript"):
			_ = json.NewDecoder(r.Body).Decode(&submitted)
			_, _ = w.Write([]byte(`{"id":"tr_1","status":"queued"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/v2/transcript/tr_1"):
			_, _ = w.Write([]byte(`{"id":"tr_1","status":"completed","text":" قیمت کارت ویزیت چند است؟ "}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tr := NewAssemblyAITranscriber("aai-key", srv.URL, 10*time.Second, logging.NewNopLogger())
	text, err := tr.Transcribe(context.Background(), "https://example.com/q.mp3", "fa")

	require.NoError(t, err)
	assert.Equal(t, "قیمت کارت ویزیت چند است؟", text)
	assert.Equal(t, "https://example.com/q.mp3", submitted["audio_url"])
	assert.Equal(t, "fa", submitted["language_code"])
}
