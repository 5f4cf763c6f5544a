package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func runJWT(t *testing.T, authorization, query string) (echo.Context, int) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWT(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return c, rec.Code
}

func TestJWTValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":      "user-1",
		"account_type": "client",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
	c, code := runJWT(t, "Bearer "+token, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got := c.Get("user_id"); got != "user-1" {
		t.Errorf("user_id = %v, want user-1", got)
	}
	if got := c.Get("account_type"); got != "client" {
		t.Errorf("account_type = %v, want client", got)
	}
}

func TestJWTQueryParamToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":      "user-1",
		"account_type": "client",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
	_, code := runJWT(t, "", "?token="+token)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200 for query param token", code)
	}
}

func TestJWTRejectsBadTokens(t *testing.T) {
	expired := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing token", header: ""},
		{name: "garbage token", header: "Bearer not.a.token"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong signing key", header: "Bearer " + wrongKey},
		{name: "missing user id", header: "Bearer " + noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := runJWT(t, tt.header, "")
			if code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", code)
			}
		})
	}
}

func TestRequireAccountType(t *testing.T) {
	e := echo.New()

	run := func(accountType string, allowed ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if accountType != "" {
			c.Set("account_type", accountType)
		}
		handler := RequireAccountType(allowed...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := handler(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		return rec.Code
	}

	if code := run("client", "client"); code != http.StatusOK {
		t.Errorf("allowed type status = %d, want 200", code)
	}
	if code := run("service_provider", "client"); code != http.StatusForbidden {
		t.Errorf("wrong type status = %d, want 403", code)
	}
	if code := run("", "client"); code != http.StatusForbidden {
		t.Errorf("missing type status = %d, want 403", code)
	}
}
