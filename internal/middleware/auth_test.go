package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/surgimedia/casesync/internal/models"
)

func tokenRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/sync/trigger", RequireToken(token), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRequireToken_MissingToken(t *testing.T) {
	router := tokenRouter("secret")

	req, _ := http.NewRequest("POST", "/v1/sync/trigger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("RequireToken() missing token status = %v, want %v", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireToken_InvalidToken(t *testing.T) {
	router := tokenRouter("secret")

	req, _ := http.NewRequest("POST", "/v1/sync/trigger", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("RequireToken() invalid token status = %v, want %v", w.Code, http.StatusForbidden)
	}
	if !strings.Contains(w.Body.String(), models.ErrSecurityCheckFailed.Error()) {
		t.Errorf("RequireToken() invalid token body = %v, want security check error", w.Body.String())
	}
}

func TestRequireToken_ValidBearer(t *testing.T) {
	router := tokenRouter("secret")

	req, _ := http.NewRequest("POST", "/v1/sync/trigger", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("RequireToken() valid token status = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestRequireToken_ValidHeaderToken(t *testing.T) {
	router := tokenRouter("secret")

	req, _ := http.NewRequest("POST", "/v1/sync/trigger", nil)
	req.Header.Set("X-Sync-Token", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("RequireToken() X-Sync-Token status = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestRequireToken_MalformedAuthorizationHeader(t *testing.T) {
	router := tokenRouter("secret")

	req, _ := http.NewRequest("POST", "/v1/sync/trigger", nil)
	req.Header.Set("Authorization", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("RequireToken() malformed header status = %v, want %v", w.Code, http.StatusUnauthorized)
	}
}
