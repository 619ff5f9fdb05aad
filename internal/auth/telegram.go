package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

// webAppDataKey is the constant HMAC key Telegram uses to derive the secret
// from the bot token.
const webAppDataKey = "WebAppData"

// TelegramVerifier checks init data signed by the Telegram client for one bot.
type TelegramVerifier struct {
	botToken string
	maxAge   time.Duration // zero disables the freshness check
	now      func() time.Time
}

// NewTelegramVerifier creates a verifier for botToken.
func NewTelegramVerifier(botToken string, maxAge time.Duration) *TelegramVerifier {
	return &TelegramVerifier{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// Verify validates the hash and auth_date of initData and returns its user.
func (v *TelegramVerifier) Verify(initData string) (*models.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, &domain.UnauthorizedError{Message: "malformed init data"}
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, &domain.UnauthorizedError{Message: "init data is not signed"}
	}

	expected := signature(values, v.botToken)
	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected)) {
		return nil, &domain.UnauthorizedError{Message: "init data signature mismatch"}
	}

	if v.maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, &domain.UnauthorizedError{Message: "init data has no auth_date"}
		}
		if v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
			return nil, &domain.UnauthorizedError{Message: "init data expired"}
		}
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, &domain.UnauthorizedError{Message: "init data has no user"}
	}
	var user models.TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == 0 {
		return nil, &domain.UnauthorizedError{Message: "init data user is invalid"}
	}

	return &user, nil
}

// SignInitData returns values encoded as init data with a valid hash for
// botToken. Used by tests and local tooling.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, vs := range values {
		if k != "hash" {
			signed[k] = vs
		}
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}

// signature computes hex(HMAC_SHA256(HMAC_SHA256("WebAppData", token), dataCheckString)).
func signature(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%s", k, values.Get(k)))
	}

	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
