package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

const botToken = "123456:TEST-TOKEN"

func initData(authDate time.Time, user string) url.Values {
	v := url.Values{}
	v.Set("query_id", "AAH")
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	if user != "" {
		v.Set("user", user)
	}
	return v
}

func TestTelegramVerifier(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	const user = `{"id":42,"first_name":"Ann","username":"ann"}`

	tests := []struct {
		name    string
		data    func() string
		wantID  int64
		wantErr bool
	}{
		{
			name:   "valid",
			data:   func() string { return SignInitData(initData(now.Add(-time.Minute), user), botToken) },
			wantID: 42,
		},
		{
			name:    "wrong bot token",
			data:    func() string { return SignInitData(initData(now, user), "other") },
			wantErr: true,
		},
		{
			name: "tampered field",
			data: func() string {
				signed, _ := url.ParseQuery(SignInitData(initData(now, user), botToken))
				signed.Set("user", `{"id":7,"first_name":"Eve"}`)
				return signed.Encode()
			},
			wantErr: true,
		},
		{
			name:    "expired",
			data:    func() string { return SignInitData(initData(now.Add(-48*time.Hour), user), botToken) },
			wantErr: true,
		},
		{
			name:    "unsigned",
			data:    func() string { return initData(now, user).Encode() },
			wantErr: true,
		},
		{
			name:    "no user",
			data:    func() string { return SignInitData(initData(now, ""), botToken) },
			wantErr: true,
		},
		{
			name:    "garbage",
			data:    func() string { return "%zz" },
			wantErr: true,
		},
	}

	v := NewTelegramVerifier(botToken, 24*time.Hour)
	v.now = func() time.Time { return now }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.data())
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, "ann", got.Username)
		})
	}
}

func TestTelegramVerifier_NoMaxAge(t *testing.T) {
	v := NewTelegramVerifier(botToken, 0)
	data := SignInitData(initData(time.Unix(0, 0), `{"id":1,"first_name":"Old"}`), botToken)

	got, err := v.Verify(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestKeyfuncJWTVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := NewKeyfuncVerifier(func(*jwt.Token) (any, error) { return &key.PublicKey, nil }, logger)

	sign := func(claims models.TokenClaims, method jwt.SigningMethod, signKey any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(signKey)
		require.NoError(t, err)
		return s
	}
	claims := func(sub, role string, exp time.Time) models.TokenClaims {
		return models.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)},
			Role:             role,
		}
	}
	future := time.Now().Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		got, err := v.VerifyToken(sign(claims("user-1", "authenticated", future), jwt.SigningMethodRS256, key))
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.GetUserID())
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.VerifyToken(sign(claims("user-1", "authenticated", time.Now().Add(-time.Hour)), jwt.SigningMethodRS256, key))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := v.VerifyToken(sign(claims("user-1", "anon", future), jwt.SigningMethodRS256, key))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.VerifyToken(sign(claims("", "authenticated", future), jwt.SigningMethodRS256, key))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("hmac algorithm refused", func(t *testing.T) {
		_, err := v.VerifyToken(sign(claims("user-1", "authenticated", future), jwt.SigningMethodHS256, []byte("secret")))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	require.NoError(t, v.Close())
}
