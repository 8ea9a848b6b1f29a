package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	secret = "test-secret"
	userID = "6F9619FF-8B86-D011-B42D-00C04FC964FF"
)

func init() { gin.SetMode(gin.TestMode) }

func TestParseTokenNormalizesSubject(t *testing.T) {
	tok, err := GenerateToken(secret, userID, "Asha", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != strings.ToLower(userID) || claims.Name != "Asha" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	good, _ := GenerateToken(secret, userID, "", time.Minute)
	expired, _ := GenerateToken(secret, userID, "", -time.Minute)
	notUUID, _ := GenerateToken(secret, "alice", "", time.Minute)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: userID}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]struct{ secret, token string }{
		"wrong secret": {"other", good},
		"expired":      {secret, expired},
		"not a uuid":   {secret, notUUID},
		"alg none":     {secret, none},
		"garbage":      {secret, "abc.def.ghi"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(tt.secret, tt.token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(Middleware(secret))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+c.GetString(ContextUserName))
	})
	return r
}

func TestMiddleware(t *testing.T) {
	tok, _ := GenerateToken(secret, userID, "Ravi", time.Minute)
	want := strings.ToLower(userID) + "|Ravi"

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"header", "Bearer " + tok, "", http.StatusOK},
		{"lowercase scheme", "bearer " + tok, "", http.StatusOK},
		{"query", "", "?access_token=" + tok, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && w.Body.String() != want {
				t.Fatalf("body = %q, want %q", w.Body.String(), want)
			}
		})
	}
}
