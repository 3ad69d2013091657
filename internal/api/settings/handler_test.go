package settings

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
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupSettings(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("STUDIO_NAME=\"Old Name\"\nDB_URL=\"postgres://x\"\n"), 0600))

	h := NewHandler(envPath)
	r := gin.New()
	r.GET("/settings", h.Get)
	r.PUT("/settings", h.Update)
	return r, envPath
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdate_RewritesExistingKey(t *testing.T) {
	r, envPath := setupSettings(t)

	w := doJSON(r, "PUT", "/settings", `{"STUDIO_NAME":"Atelier Danse"}`)
	require.Equal(t, http.StatusOK, w.Code)

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `STUDIO_NAME="Atelier Danse"`)
	assert.NotContains(t, string(data), "Old Name")
	assert.Contains(t, string(data), `DB_URL="postgres://x"`)

	assert.Equal(t, "Atelier Danse", os.Getenv("STUDIO_NAME"))
}

func TestUpdate_AppendsMissingKey(t *testing.T) {
	r, envPath := setupSettings(t)

	w := doJSON(r, "PUT", "/settings", `{"STUDIO_EMAIL":"hello@atelier.example"}`)
	require.Equal(t, http.StatusOK, w.Code)

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `STUDIO_EMAIL="hello@atelier.example"`)
}

func TestUpdate_RejectsUnknownKey(t *testing.T) {
	r, envPath := setupSettings(t)

	w := doJSON(r, "PUT", "/settings", `{"STRIPE_SECRET_KEY":"sk_live_steal_me"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk_live_steal_me")
}
