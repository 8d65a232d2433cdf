package testutil

import (
	"errors"
	"net/http"
	"time"

	"shadow/pkg/platform/middleware/auth"
	"shadow/pkg/requestcontext"
)

// WithWallet adds a wallet to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithWallet(req *http.Request, wallet string) *http.Request {
	return req.WithContext(requestcontext.WithWallet(req.Context(), wallet))
}

// WithBearer sets the Authorization header for routes behind the auth middleware.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// StaticTokens is a JWT validator stand-in mapping opaque tokens to wallets.
type StaticTokens map[string]string

func (s StaticTokens) ValidateToken(token string) (*auth.WalletClaims, error) {
	wallet, ok := s[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &auth.WalletClaims{Wallet: wallet, JTI: token}, nil
}
