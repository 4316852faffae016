package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/intentstack/internal/application/container"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

const adminPassword = "correct horse"

func geminiStub(t *testing.T, reply map[string]any) *httptest.Server {
	t.Helper()
	text, err := json.Marshal(reply)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": string(text)}}},
			"finishReason": "STOP",
		}},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setConfig(t *testing.T, geminiURL string) {
	t.Helper()
	hash, err := security.HashPassword(adminPassword)
	require.NoError(t, err)

	saved := struct {
		sqlite, turso, knowledge, key, base, redis, resend, hash, secret string
	}{config.SQLitePath, config.TursoDatabase, config.KnowledgeBasePath, config.GeminiAPIKey, config.GeminiBaseURL,
		config.RedisAddr, config.ResendAPIKey, config.AdminPasswordHash, config.JWTSecret}
	t.Cleanup(func() {
		config.SQLitePath, config.TursoDatabase, config.KnowledgeBasePath = saved.sqlite, saved.turso, saved.knowledge
		config.GeminiAPIKey, config.GeminiBaseURL, config.RedisAddr = saved.key, saved.base, saved.redis
		config.ResendAPIKey, config.AdminPasswordHash, config.JWTSecret = saved.resend, saved.hash, saved.secret
	})

	config.SQLitePath = filepath.Join(t.TempDir(), "intentstack.db")
	config.TursoDatabase = ""
	config.KnowledgeBasePath = filepath.Join(t.TempDir(), "missing.yaml")
	config.GeminiAPIKey = ""
	config.GeminiBaseURL = ""
	if geminiURL != "" {
		config.GeminiAPIKey = "test-key"
		config.GeminiBaseURL = geminiURL
	}
	config.RedisAddr = ""
	config.ResendAPIKey = ""
	config.AdminPasswordHash = hash
	config.JWTSecret = "test-secret"
}

func newTestRouter(t *testing.T, geminiURL string) (*gin.Engine, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	setConfig(t, geminiURL)

	c, err := container.NewContainer(context.Background(), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return SetupRoutes(c), c
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func adminToken(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]any{"password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestEventsFeedPersonaAndTrigger(t *testing.T) {
	r, _ := newTestRouter(t, "")

	for i := 0; i < 6; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/v1/events", map[string]any{
			"userIdentifier": "visitor-1",
			"eventType":      "click",
			"elementClass":   "et_pb_wc_add_to_cart",
			"elementData":    map[string]any{"product": "business card"},
		}, "")
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/persona/visitor-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	persona := decode(t, w)
	assert.Equal(t, "business", persona["type"])
	assert.EqualValues(t, 60, persona["score"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/trigger/visitor-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	trigger := decode(t, w)
	assert.Equal(t, true, trigger["trigger"])
	assert.Equal(t, "conditions_met", trigger["reason"])
}

func TestEventValidation(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/api/v1/events", map[string]any{"eventType": "click"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionFlowWithAdminAudit(t *testing.T) {
	stub := geminiStub(t, map[string]any{
		"thought":        "wants a quote",
		"response":       "قیمت کارت ویزیت از ۵۰۰ عدد شروع می شود.",
		"action":         "scroll_to",
		"target":         "#calculator",
		"persona_update": "business",
	})
	r, _ := newTestRouter(t, stub.URL)

	w := doJSON(t, r, http.MethodPost, "/api/v1/assistant/decision", map[string]any{
		"userIdentifier": "visitor-2",
		"message":        "قیمت کارت ویزیت؟",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, true, res["success"])
	reply := res["response"].(map[string]any)
	assert.Equal(t, "scroll_to", reply["action"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/persona/visitor-2", nil, "")
	assert.EqualValues(t, 20, decode(t, w)["score"])

	w = doJSON(t, r, http.MethodGet, "/api/admin/actions/visitor-2", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := adminToken(t, r)
	w = doJSON(t, r, http.MethodGet, "/api/admin/actions/visitor-2", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	actions := decode(t, w)["actions"].([]any)
	require.Len(t, actions, 1)
	assert.Equal(t, "#calculator", actions[0].(map[string]any)["target"])

	w = doJSON(t, r, http.MethodDelete, "/api/admin/persona/visitor-2", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/v1/persona/visitor-2", nil, "")
	assert.Equal(t, "general", decode(t, w)["type"])
}

func TestDecisionWithoutProviderFallsBack(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/api/v1/assistant/decision", map[string]any{
		"userIdentifier": "visitor-3",
		"message":        "hello",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)
	assert.Equal(t, false, res["success"])
	assert.NotEmpty(t, res["message"])
}

func TestBlockedVisitor(t *testing.T) {
	r, _ := newTestRouter(t, "")
	token := adminToken(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/admin/blocks", map[string]any{"userIdentifier": "visitor-4", "reason": "abuse"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/assistant/decision", map[string]any{"userIdentifier": "visitor-4", "message": "hi"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access_restricted", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/v1/events", map[string]any{
		"userIdentifier": "visitor-4", "eventType": "click", "elementClass": "pricing-table",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/assistant/proactive", map[string]any{"userIdentifier": "visitor-4"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/admin/blocks/visitor-4", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/assistant/decision", map[string]any{"userIdentifier": "visitor-4", "message": "hi"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLeads(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/api/v1/leads/score", map[string]any{
		"source": "referral", "quantity": 10000, "product_type": "gold_foil",
		"contact_info": "0912", "budget": "50M", "decision_hours": 1,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	scored := decode(t, w)
	assert.EqualValues(t, 95, scored["score"])
	assert.Equal(t, "hot", scored["status"])
	assert.Equal(t, true, scored["notify"])

	w = doJSON(t, r, http.MethodPost, "/api/v1/leads", map[string]any{
		"userIdentifier": "visitor-5",
		"name":           "Sara",
		"phone":          "09120000000",
		"params":         map[string]any{"source": "instagram", "product_type": "flyer", "quantity": 500},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.EqualValues(t, 18+8+6+8, created["score"])
	assert.Equal(t, false, created["notified"])

	w = doJSON(t, r, http.MethodPost, "/api/v1/leads", map[string]any{"name": "Nobody"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := adminToken(t, r)
	w = doJSON(t, r, http.MethodGet, "/api/admin/leads?status=medium", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["leads"], 1)

	w = doJSON(t, r, http.MethodGet, "/api/admin/leads?status=lukewarm", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]any{"password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/admin/stats", nil, "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
