package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Claims carries the session identity embedded in the bearer token.
type Claims struct {
	UserID         string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	DarkTheme      string `json:"dark_theme"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the local user from token. With a secret the token
// is verified as HS256; without one it is only decoded, since issuance and
// verification belong to the backend.
func ParseIdentity(token string, secret []byte) (core.User, error) {
	if token == "" {
		return core.User{}, fmt.Errorf("empty token")
	}

	claims := &Claims{}
	if len(secret) > 0 {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return core.User{}, fmt.Errorf("parse token: %w", err)
		}
		if !parsed.Valid {
			return core.User{}, fmt.Errorf("invalid token claims")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return core.User{}, fmt.Errorf("decode token: %w", err)
		}
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return core.User{}, fmt.Errorf("token carries no user id")
	}

	return core.User{
		ID:             id,
		Username:       claims.Username,
		Email:          claims.Email,
		ProfilePicture: claims.ProfilePicture,
		DarkTheme:      claims.DarkTheme == "true",
	}, nil
}
