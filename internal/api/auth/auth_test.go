package auth

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestRandomString(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		got, err := randomString(passwordLength)
		if err != nil {
			t.Fatalf("random string: %v", err)
		}
		if len(got) != passwordLength {
			t.Fatalf("expected length %d, got %d", passwordLength, len(got))
		}
		for _, r := range got {
			if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", r) {
				t.Fatalf("unexpected character %q in %q", r, got)
			}
		}
		if seen[got] {
			t.Fatalf("password %q generated twice", got)
		}
		seen[got] = true
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	h := &Handler{jwtSecret: []byte("test-secret")}

	token, err := h.issueToken(42, "seller@example.com", "seller")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims := &customClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("expected subject 42, got %q", claims.Subject)
	}
	if claims.Email != "seller@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
	if claims.Role != "seller" {
		t.Fatalf("expected role claim, got %q", claims.Role)
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	r := gin.New()
	r.POST("/register", h.Register)

	cases := []string{
		`{}`,
		`{"company":"Acme"}`,
		`{"company_email":"not-an-email","company":"Acme"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	r := gin.New()
	r.POST("/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{"email":"a@b.com"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
