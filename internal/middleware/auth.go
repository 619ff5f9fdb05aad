package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"knowledge/internal/auth"
	"knowledge/internal/domain"
	"knowledge/internal/httputil"
)

// DevUserID is the identity used in dev when no bot token is configured.
const DevUserID = "dev"

// AuthConfig selects the accepted credential schemes. A nil verifier
// disables its scheme.
type AuthConfig struct {
	InitData auth.InitDataVerifier // "tma <initData>"
	JWT      auth.JWTVerifier      // "Bearer <token>"
	DevMode  bool                  // resolve unverifiable requests to DevUserID
}

// Auth authenticates every request and stores the caller in the context.
func Auth(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(cfg, r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("request unauthorized",
					"path", r.URL.Path,
					"method", r.Method,
					"error", err,
				)
				message := "unauthorized"
				var unauthorized *domain.UnauthorizedError
				if errors.As(err, &unauthorized) {
					message = unauthorized.Message
				}
				httputil.RespondError(w, http.StatusUnauthorized, httputil.CodeFromStatus(http.StatusUnauthorized), message)
				return
			}

			next.ServeHTTP(w, httputil.WithIdentity(r, identity))
		})
	}
}

func authenticate(cfg AuthConfig, header string) (httputil.Identity, error) {
	scheme, credential, _ := strings.Cut(strings.TrimSpace(header), " ")
	credential = strings.TrimSpace(credential)

	switch strings.ToLower(scheme) {
	case "tma":
		if cfg.InitData == nil {
			break
		}
		user, err := cfg.InitData.Verify(credential)
		if err != nil {
			return httputil.Identity{}, err
		}
		return httputil.Identity{UserID: strconv.FormatInt(user.ID, 10), Method: "tma"}, nil

	case "bearer":
		if cfg.JWT == nil {
			break
		}
		claims, err := cfg.JWT.VerifyToken(credential)
		if err != nil {
			return httputil.Identity{}, err
		}
		return httputil.Identity{UserID: claims.GetUserID(), Method: "jwt"}, nil
	}

	if cfg.DevMode {
		return httputil.Identity{UserID: DevUserID, Method: "dev"}, nil
	}
	return httputil.Identity{}, &domain.UnauthorizedError{Message: "missing or unsupported authorization"}
}
