package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardhatapps/gatekeeper/internal/app/api/middleware"
	"github.com/hardhatapps/gatekeeper/internal/app/service/navigation"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

func identityStub(id types.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, id)
		c.Next()
	}
}

func sessionTestRouter(identity types.Identity) (*gin.Engine, *navigation.Service) {
	gin.SetMode(gin.TestMode)
	svc := navigation.NewService(zap.NewNop().Sugar())
	r := gin.New()
	g := r.Group("/api/v1")
	g.Use(identityStub(identity))
	RegisterSessionRoutes(g, svc)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterSessionRoutes_RegistersEndpoints(t *testing.T) {
	r, _ := sessionTestRouter(types.Identity{})

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/session"))
	require.True(t, contains("DELETE /api/v1/session/:id"))
	require.True(t, contains("GET /api/v1/session/:id/stack"))
	require.True(t, contains("POST /api/v1/session/:id/navigate"))
	require.True(t, contains("POST /api/v1/session/:id/navigate_module"))
	require.True(t, contains("POST /api/v1/session/:id/back"))
	require.True(t, contains("POST /api/v1/session/:id/home"))
	require.True(t, contains("POST /api/v1/session/:id/select_project"))
	require.True(t, contains("POST /api/v1/session/:id/deeplink"))
}

func TestSessionFlow_CreateNavigateBack(t *testing.T) {
	r, _ := sessionTestRouter(types.Identity{UserID: "u1", CompanyID: "c1", Role: types.RoleDeveloper})

	created := doJSON(t, r, http.MethodPost, "/api/v1/session", map[string]any{
		"projects": []map[string]any{{"id": "p1", "name": "Harbor Tower"}},
	})
	require.EqualValues(t, 0, created["code"])
	data := created["data"].(map[string]any)
	sessionID := data["session_id"].(string)
	require.NotEmpty(t, sessionID)
	require.Equal(t, "developer-dashboard", data["current"].(map[string]any)["screen"])

	nav := doJSON(t, r, http.MethodPost, "/api/v1/session/"+sessionID+"/navigate", map[string]any{
		"screen": "rfis", "params": map[string]any{"rfi_id": "rfi-7"}, "project_id": "p1",
	})
	navData := nav["data"].(map[string]any)
	require.Equal(t, "rfis", navData["current"].(map[string]any)["screen"])
	require.EqualValues(t, 2, navData["depth"])

	back := doJSON(t, r, http.MethodPost, "/api/v1/session/"+sessionID+"/back", nil)
	backData := back["data"].(map[string]any)
	require.Equal(t, "developer-dashboard", backData["current"].(map[string]any)["screen"])
	require.EqualValues(t, 1, backData["depth"])
}

func TestSessionRoutes_UnknownSession(t *testing.T) {
	r, _ := sessionTestRouter(types.Identity{UserID: "u1", CompanyID: "c1"})

	out := doJSON(t, r, http.MethodGet, "/api/v1/session/does-not-exist/stack", nil)
	require.EqualValues(t, 40400, out["code"])
}

func TestSessionRoutes_MissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := navigation.NewService(zap.NewNop().Sugar())
	r := gin.New()
	RegisterSessionRoutes(r.Group("/api/v1"), svc)

	out := doJSON(t, r, http.MethodPost, "/api/v1/session", map[string]any{})
	require.EqualValues(t, 40100, out["code"])
}

func TestSessionRoutes_DeepLink(t *testing.T) {
	r, _ := sessionTestRouter(types.Identity{UserID: "u1", CompanyID: "c1", Role: types.RoleSupervisor})

	created := doJSON(t, r, http.MethodPost, "/api/v1/session", map[string]any{
		"projects": []map[string]any{{"id": "p1", "name": "Harbor Tower"}},
	})
	sessionID := created["data"].(map[string]any)["session_id"].(string)

	out := doJSON(t, r, http.MethodPost, "/api/v1/session/"+sessionID+"/deeplink", map[string]any{
		"project_id": "p1", "screen": "punch-list", "params": map[string]any{"item": "42"},
	})
	data := out["data"].(map[string]any)
	require.EqualValues(t, 2, data["depth"])
	frames := data["frames"].([]any)
	require.Equal(t, "project-home", frames[0].(map[string]any)["screen"])
	require.Equal(t, "punch-list", frames[1].(map[string]any)["screen"])
}
