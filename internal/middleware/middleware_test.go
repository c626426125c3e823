package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldops-server/internal/domain"
	"fieldops-server/pkg/jwt"

	"github.com/sirupsen/logrus"
)

type stubValidator map[string]*jwt.Claims

func (s stubValidator) ValidateToken(token string) (*jwt.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

var validator = stubValidator{
	"viewer-token": {UserID: "u-viewer", Role: string(domain.RoleViewer)},
	"editor-token": {UserID: "u-editor", Role: string(domain.RoleEditor)},
	"admin-token":  {UserID: "u-admin", Role: string(domain.RoleAdmin)},
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-User", GetUserID(r))
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(validator)(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		header string
		want   int
		user   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"malformed", "Token abc", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer editor-token", http.StatusOK, "u-editor"},
		{"lowercase scheme", "bearer viewer-token", http.StatusOK, "u-viewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("X-User"); got != tt.user {
				t.Errorf("user = %q, want %q", got, tt.user)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := AuthMiddleware(validator)(RequireRole(domain.RoleEditor)(http.HandlerFunc(okHandler)))

	tests := []struct {
		token string
		want  int
	}{
		{"viewer-token", http.StatusForbidden},
		{"editor-token", http.StatusOK},
		{"admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tt.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.token, rec.Code, tt.want)
		}
	}
}

func TestCronKeyMiddleware(t *testing.T) {
	h := CronKeyMiddleware("s3cret", validator, domain.RoleEditor)(http.HandlerFunc(okHandler))

	tests := []struct {
		name  string
		key   string
		token string
		want  int
	}{
		{"cron key", "s3cret", "", http.StatusOK},
		{"wrong key", "guess", "editor-token", http.StatusUnauthorized},
		{"editor token", "", "editor-token", http.StatusOK},
		{"viewer token", "", "viewer-token", http.StatusForbidden},
		{"nothing", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set(CronKeyHeader, tt.key)
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	disabled := CronKeyMiddleware("", validator, domain.RoleEditor)(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CronKeyHeader, "")
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty cron key config: status = %d", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("https://app.example.com, https://admin.example.com", "GET,POST", "Content-Type")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestLoggerMiddleware_RecordsUser(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := LoggerMiddleware(logger)(AuthMiddleware(validator)(http.HandlerFunc(okHandler)))
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/days", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"user":"u-admin"`) || !strings.Contains(out, `"status":200`) {
		t.Errorf("log line = %s", out)
	}
}
