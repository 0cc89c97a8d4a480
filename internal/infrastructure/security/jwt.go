package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// PreviewCookieName holds the signed preview session.
const PreviewCookieName = "sb_preview"

var ErrInvalidSession = errors.New("invalid preview session")

// PreviewClaims are carried by a preview session token.
type PreviewClaims struct {
	SpaceID string `json:"spaceId"`
	jwt.RegisteredClaims
}

// IssuePreviewSession signs an HS256 session for an editor that passed the handshake.
func IssuePreviewSession(spaceID, jwtSecret string, ttl time.Duration) (string, error) {
	if jwtSecret == "" {
		return "", errors.New("empty jwt secret")
	}
	now := time.Now().UTC()
	claims := PreviewClaims{
		SpaceID: spaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateULID(),
			Subject:   "storyblok-preview",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign preview session: %w", err)
	}
	return signed, nil
}

// ValidatePreviewSession parses a session token and returns its claims.
func ValidatePreviewSession(tokenString, jwtSecret string) (*PreviewClaims, error) {
	claims := &PreviewClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
