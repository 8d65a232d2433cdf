package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/middleware/auth"
)

// Claims are carried by wallet session tokens. The wallet-signature service
// issues a token once it has checked a signed challenge for Wallet.
type Claims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// JWTService signs and validates wallet session tokens with HMAC.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

func (s *JWTService) GenerateWalletToken(wallet string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Wallet == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no wallet")
	}
	return claims, nil
}

// WalletValidator adapts the service to the HTTP auth middleware.
type WalletValidator struct {
	service *JWTService
}

func NewWalletValidator(service *JWTService) *WalletValidator {
	return &WalletValidator{service: service}
}

func (v *WalletValidator) ValidateToken(tokenString string) (*auth.WalletClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.WalletClaims{
		Wallet: claims.Wallet,
		JTI:    claims.ID,
	}, nil
}
