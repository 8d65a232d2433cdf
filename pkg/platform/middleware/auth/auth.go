package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/requestcontext"
)

// JWTValidator validates a wallet session token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*WalletClaims, error)
}

// WalletClaims is what the middleware needs from a validated token.
type WalletClaims struct {
	Wallet string
	JTI    string
}

const bearerPrefix = "Bearer "

// RequireWallet rejects requests without a valid wallet token and stores the
// wallet in the request context.
func RequireWallet(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithWallet(ctx, claims.Wallet)))
		})
	}
}

// OptionalWallet attaches the wallet when a valid token is present and lets
// anonymous or badly authenticated requests through unchanged. It runs ahead of
// admission control so that signed-in clients are keyed by wallet.
func OptionalWallet(validator JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if ok && token != "" {
				if claims, err := validator.ValidateToken(token); err == nil {
					r = r.WithContext(requestcontext.WithWallet(r.Context(), claims.Wallet))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
