package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims Claims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testClaims() Claims {
	return Claims{
		UserID:         "u1",
		Username:       "alice",
		Email:          "alice@example.com",
		ProfilePicture: "https://example.com/a.png",
		DarkTheme:      "true",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseIdentityVerified(t *testing.T) {
	secret := []byte("test-secret")
	user, err := ParseIdentity(signToken(t, testClaims(), secret), secret)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if user.ID != "u1" || user.Username != "alice" || user.Email != "alice@example.com" || !user.DarkTheme {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestParseIdentityUnverified(t *testing.T) {
	user, err := ParseIdentity(signToken(t, testClaims(), []byte("backend-only")), nil)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestParseIdentityRejectsWrongSecret(t *testing.T) {
	token := signToken(t, testClaims(), []byte("one"))
	if _, err := ParseIdentity(token, []byte("two")); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseIdentityFallsBackToSubject(t *testing.T) {
	claims := testClaims()
	claims.UserID = ""
	claims.Subject = "sub-7"
	user, err := ParseIdentity(signToken(t, claims, []byte("s")), nil)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if user.ID != "sub-7" {
		t.Fatalf("expected subject as id, got %q", user.ID)
	}
}

func TestParseIdentityRequiresID(t *testing.T) {
	claims := testClaims()
	claims.UserID = ""
	if _, err := ParseIdentity(signToken(t, claims, []byte("s")), nil); err == nil {
		t.Fatalf("expected error for token without id")
	}
	if _, err := ParseIdentity("", nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
