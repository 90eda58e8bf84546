package api

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"cvforge/internal/auth"
	"cvforge/internal/database"
)

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	svc, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func newAuthTestHandler(t *testing.T) (*AuthHandler, *database.User) {
	t.Helper()
	db := newTestDB(t)
	svc := newTestAuthService(t)
	h := NewAuthHandler(db, svc, nil, slog.Default(), 10, 10, 15*time.Minute, "")

	hashed, err := svc.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{
		Email:            "jane@example.com",
		PasswordHash:     hashed,
		FullName:         "Jane Smith",
		SubscriptionPlan: "free",
		Credits:          3,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return h, &user
}

func TestRegisterCreatesUser(t *testing.T) {
	h, _ := newAuthTestHandler(t)

	w := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", 0, map[string]any{
		"email":     "New.Person@Example.com",
		"password":  "longenoughpassword",
		"full_name": "New Person",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var created database.User
	if err := h.db.Where("email = ?", "new.person@example.com").First(&created).Error; err != nil {
		t.Fatalf("created user not found: %v", err)
	}
	if created.SubscriptionPlan != "free" {
		t.Fatalf("plan = %q", created.SubscriptionPlan)
	}
	if created.PasswordHash == "longenoughpassword" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterConflictOnExistingEmail(t *testing.T) {
	h, _ := newAuthTestHandler(t)

	w := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", 0, map[string]any{
		"email":    "jane@example.com",
		"password": "longenoughpassword",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h, _ := newAuthTestHandler(t)

	w := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", 0, map[string]any{
		"email":    "a@example.com",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestProfileReturnsAccountInfo(t *testing.T) {
	h, user := newAuthTestHandler(t)

	w := doJSON(t, h.Profile, http.MethodGet, "/v1/auth/profile", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Email != "jane@example.com" || resp.FullName != "Jane Smith" {
		t.Fatalf("unexpected profile: %+v", resp)
	}
	if resp.Credits != 3 || resp.SubscriptionPlan != "free" {
		t.Fatalf("unexpected entitlements: %+v", resp)
	}
}

func TestTokenClaimsCarryEmail(t *testing.T) {
	svc := newTestAuthService(t)

	pair, err := svc.GenerateTokenPair(42, "jane@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "jane@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Fatalf("token type = %q", claims.TokenType)
	}
}
