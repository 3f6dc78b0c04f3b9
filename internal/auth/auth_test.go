package auth

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/librariumapp/librarium-server/internal/domain"
)

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash format: %q", hash)
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil || !ok {
		t.Errorf("correct password rejected: ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword(hash, "wrong password")
	if err != nil || ok {
		t.Errorf("wrong password accepted: ok=%v err=%v", ok, err)
	}
}

func TestHashPassword_Validation(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("empty password accepted")
	}
	if _, err := HashPassword(strings.Repeat("x", 2000)); err == nil {
		t.Error("oversized password accepted")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not a hash", "password")
	if err != nil {
		t.Errorf("malformed hash should not error: %v", err)
	}
	if ok {
		t.Error("malformed hash verified as true")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical")
	}
}

func testTokenService(t *testing.T) *TokenService {
	t.Helper()
	keyHex := strings.Repeat("ab", 32)
	svc, err := NewTokenService(keyHex, 15*time.Minute, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func testTokenUser(role domain.Role) *domain.User {
	u := &domain.User{
		Email: "reader@example.com",
		Role:  role,
	}
	u.ID = "user-1"
	return u
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testTokenService(t)

	token, err := svc.GenerateAccessToken(testTokenUser(domain.RolePremium))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(token, "v4.local.") {
		t.Errorf("token format: %q", token[:20])
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "reader@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Role != domain.RolePremium {
		t.Errorf("role = %q, want premium", claims.Role)
	}
	if claims.IsAdmin() {
		t.Error("premium claims reported as admin")
	}
}

func TestAccessToken_AdminClaims(t *testing.T) {
	svc := testTokenService(t)

	token, err := svc.GenerateAccessToken(testTokenUser(domain.RoleAdmin))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !claims.IsAdmin() {
		t.Error("admin claims not recognized")
	}
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	svc := testTokenService(t)
	token, err := svc.GenerateAccessToken(testTokenUser(domain.RoleReader))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other, err := NewTokenService(strings.Repeat("cd", 32), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	if _, err := other.VerifyAccessToken(token); err == nil {
		t.Error("token verified with wrong key")
	}
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	keyHex := strings.Repeat("ab", 32)
	svc, err := NewTokenService(keyHex, -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	token, err := svc.GenerateAccessToken(testTokenUser(domain.RoleReader))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Error("expired token verified")
	}
}

func TestNewTokenService_BadKey(t *testing.T) {
	if _, err := NewTokenService("too short", time.Minute, time.Hour); err == nil {
		t.Error("short key accepted")
	}
	if _, err := NewTokenService(strings.Repeat("zz", 32), time.Minute, time.Hour); err == nil {
		t.Error("non-hex key accepted")
	}
}

func TestRefreshTokens(t *testing.T) {
	svc := testTokenService(t)

	tok1, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tok2, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if tok1 == tok2 {
		t.Error("refresh tokens are not unique")
	}

	hash := HashRefreshToken(tok1)
	if hash == tok1 {
		t.Error("hash equals the raw token")
	}
	if hash != HashRefreshToken(tok1) {
		t.Error("hash is not deterministic")
	}
	if _, err := hex.DecodeString(hash); err != nil {
		t.Errorf("hash is not hex: %v", err)
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := LoadOrGenerateKey(dir)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if len(key) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(key))
	}

	// A second load returns the same key.
	again, err := LoadOrGenerateKey(dir)
	if err != nil {
		t.Fatalf("reload key: %v", err)
	}
	if key != again {
		t.Error("reloaded key differs")
	}

	// The stored key works with the token service.
	if _, err := NewTokenService(key, time.Minute, time.Hour); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}
