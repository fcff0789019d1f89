package route

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/dao"
	"github.com/JuanCrzp/ClientCare/internal/waclient"
	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/service"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "default:\n  fallback_text: \"No entendí tu mensaje.\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	provider, err := rules.NewProvider(path)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	engine := service.NewEngine(provider,
		dao.NewMemoryStateStore(),
		dao.NewMemoryConversationStore(),
		dao.NewMemoryTicketStore(),
		nil, log)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, Deps{
		Engine:        engine,
		Rules:         provider,
		Bayes:         nil,
		WhatsApp:      waclient.NewClient("", "", log),
		WAVerifyToken: "secreto",
		Log:           log,
	})
	return r
}

func TestHealthRoute(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebchatRoute(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webchat",
		strings.NewReader(`{"text":"cualquier cosa","user_id":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No entendí tu mensaje.")
}

func TestWhatsAppWebhookRoute(t *testing.T) {
	r := testRouter(t)

	// Unconfigured sender: the webhook still processes and acknowledges.
	payload := `{"entry":[{"changes":[{"value":{"messages":[{"from":"5491100000000","type":"text","text":{"body":"hola"}}]}}]}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestNLUInfoRouteWithoutModel(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/nlu/info", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
