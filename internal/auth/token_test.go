package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	email := "someone@example.com"

	token, err := GenerateToken(userID, email, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	gotID, gotEmail, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if gotID != userID {
		t.Errorf("user id mismatch: got %s, want %s", gotID, userID)
	}
	if gotEmail != email {
		t.Errorf("email mismatch: got %s, want %s", gotEmail, email)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "a@b.co", testSecret)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if _, _, err := ParseToken(token, "other-secret"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, _, err := ParseToken("not.a.token", testSecret); err == nil {
		t.Error("expected error for malformed token")
	}
	if _, _, err := ParseToken("", testSecret); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestParseTokenExpired(t *testing.T) {
	claims := &Claims{
		UserID: uuid.New().String(),
		Email:  "a@b.co",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * TokenDuration)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-TokenDuration)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, _, err := ParseToken(token, testSecret); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseTokenRejectsUnexpectedAlg(t *testing.T) {
	// Unsigned tokens must never validate.
	claims := &Claims{UserID: uuid.New().String(), Email: "a@b.co"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, _, err := ParseToken(token, testSecret); err == nil {
		t.Error("expected error for alg=none token")
	}
}
