package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "monthwise"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("unlock token required")
)

// UnlockTokens issues and validates short-lived tokens proving that a secured
// profile was unlocked with its password.
type UnlockTokens struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// UnlockClaims are the JWT claims of an unlock token. The subject is the
// profile id.
type UnlockClaims struct {
	ProfileID string `json:"profile_id"`
	jwt.RegisteredClaims
}

// NewUnlockTokens creates a token manager. secretKey should be at least 32
// random bytes; it is generated per installation and kept in settings.
func NewUnlockTokens(secretKey []byte, tokenDuration time.Duration) *UnlockTokens {
	return &UnlockTokens{
		secretKey:     append([]byte(nil), secretKey...),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Issue creates a token for profileID.
func (m *UnlockTokens) Issue(profileID string) (string, error) {
	now := m.now()
	claims := &UnlockClaims{
		ProfileID: profileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   profileID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate checks the signature, lifetime and profile binding of tokenString.
func (m *UnlockTokens) Validate(tokenString, profileID string) (*UnlockClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UnlockClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*UnlockClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ProfileID != profileID || claims.Subject != profileID {
		return nil, fmt.Errorf("%w: issued for another profile", ErrInvalidToken)
	}
	return claims, nil
}
