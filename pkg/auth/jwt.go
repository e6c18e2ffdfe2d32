package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
)

// JWTSecretKey verifies tenant tokens. Validation fails closed while it is
// unset; the server refuses to boot without it.
var JWTSecretKey string

func init() {
	JWTSecretKey, _ = env.GetEnvString("JWT_SECRET_KEY")
}

// TenantTokenClaims represents the claims in a tenant JWT issued by the CRM's
// auth layer. The bridge only validates; it never issues tokens itself.
type TenantTokenClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateTenantToken creates a tenant JWT. Used by tests and local tooling;
// production tokens come from the CRM auth service sharing the same secret.
func GenerateTenantToken(tenantID string, role string, ttl time.Duration) (string, error) {
	if JWTSecretKey == "" {
		return "", errors.New("JWT_SECRET_KEY not configured")
	}

	now := time.Now()
	claims := TenantTokenClaims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecretKey))
}

// ValidateTenantToken validates a tenant JWT and returns the claims
func ValidateTenantToken(tokenString string) (*TenantTokenClaims, error) {
	if JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TenantTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TenantTokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
