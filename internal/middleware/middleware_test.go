package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/auth"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/httputil"
)

type stubJWT struct{}

func (stubJWT) VerifyToken(token string) (*models.TokenClaims, error) {
	if token != "good" {
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}
	claims := &models.TokenClaims{Role: "authenticated"}
	claims.Subject = "jwt-user"
	return claims, nil
}

func (stubJWT) Close() error { return nil }

func TestAuth(t *testing.T) {
	const botToken = "1:abc"
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("user", `{"id":77,"first_name":"T"}`)
	initData := auth.SignInitData(values, botToken)

	full := AuthConfig{InitData: auth.NewTelegramVerifier(botToken, time.Hour), JWT: stubJWT{}}

	tests := []struct {
		name       string
		cfg        AuthConfig
		header     string
		wantStatus int
		wantUser   string
		wantMethod string
	}{
		{name: "telegram", cfg: full, header: "tma " + initData, wantStatus: http.StatusOK, wantUser: "77", wantMethod: "tma"},
		{name: "telegram forged", cfg: full, header: "tma " + auth.SignInitData(values, "other"), wantStatus: http.StatusUnauthorized},
		{name: "bearer", cfg: full, header: "Bearer good", wantStatus: http.StatusOK, wantUser: "jwt-user", wantMethod: "jwt"},
		{name: "bearer bad", cfg: full, header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "missing header", cfg: full, wantStatus: http.StatusUnauthorized},
		{name: "dev fallback", cfg: AuthConfig{DevMode: true}, header: "tma ", wantStatus: http.StatusOK, wantUser: DevUserID, wantMethod: "dev"},
		{name: "dev still verifies configured scheme", cfg: AuthConfig{InitData: full.InitData, DevMode: true}, header: "tma junk", wantStatus: http.StatusUnauthorized},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got httputil.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = httputil.GetIdentity(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.cfg, logger)(next).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, false, body["ok"])
				return
			}
			assert.Equal(t, tt.wantUser, got.UserID)
			assert.Equal(t, tt.wantMethod, got.Method)
		})
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)
}

func TestRequestLogger_PassesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
