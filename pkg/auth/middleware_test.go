package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func jwtGuardedEngine(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/guarded", JWTAuthMiddleware(secret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func doGuarded(engine *gin.Engine, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddlewareAcceptsValidToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateJWT("user-1", "0xabc", "member", secret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if w := doGuarded(jwtGuardedEngine(secret), token); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestJWTAuthMiddlewareEmptySecretRejectsTokens(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "")

	// HS256 will happily verify against a zero-length key, so an unset
	// secret must disable the JWT path rather than accept tokens signed
	// with the empty key.
	forged, err := GenerateJWT("intruder", "0xabc", "admin", []byte{})
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	engine := jwtGuardedEngine(nil)
	if w := doGuarded(engine, forged); w.Code != http.StatusUnauthorized {
		t.Errorf("empty-key token status = %d, want 401", w.Code)
	}

	token, err := GenerateJWT("user-1", "0xabc", "member", []byte("real-secret"))
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}
	if w := doGuarded(engine, token); w.Code != http.StatusUnauthorized {
		t.Errorf("signed token status = %d, want 401 without a configured secret", w.Code)
	}
}

func TestJWTAuthMiddlewareServiceTokenFallback(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "svc-token")

	engine := jwtGuardedEngine(nil)
	if w := doGuarded(engine, "svc-token"); w.Code != http.StatusOK {
		t.Errorf("service token status = %d, want 200", w.Code)
	}
	if w := doGuarded(engine, "wrong-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}
}
