package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired inspects a JWT access token's exp claim without verifying
// the signature (the gateway is not the issuer). Used to refresh
// proactively before proxying; tokens that do not parse or carry no exp
// are reported as not expired and left for the upstream 401 path.
func TokenExpired(token string, leeway time.Duration) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(leeway).After(claims.ExpiresAt.Time)
}
