package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthTest(t *testing.T) (*gorm.DB, *UserAuthService) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key"
	cfg.JWT.ExpireHours = 24
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
	return db, NewUserAuthService(cfg, repository.NewUserRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	_, svc := setupUserAuthTest(t)

	user, token, expiresAt, err := svc.Register("Alice@Example.com", "Passw0rd1", "Alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email want normalized got %s", user.Email)
	}
	if user.Role != models.UserRoleUser {
		t.Fatalf("role want user got %s", user.Role)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected usable token")
	}

	if _, _, _, err := svc.Register("alice@example.com", "Passw0rd1", ""); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email: want ErrEmailExists got %v", err)
	}

	logged, token, _, err := svc.Login("ALICE@example.com", "Passw0rd1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Fatalf("login mismatch")
	}

	if _, _, _, err := svc.Login("alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: want ErrInvalidCredentials got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	_, svc := setupUserAuthTest(t)
	if _, _, _, err := svc.Register("bob@example.com", "short", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("want ErrWeakPassword got %v", err)
	}
	if _, _, _, err := svc.Register("bob@example.com", "alllowercase1", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("missing upper: want ErrWeakPassword got %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	db, svc := setupUserAuthTest(t)
	user, _, _, err := svc.Register("carol@example.com", "Passw0rd1", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("status", "disabled")

	if _, _, _, err := svc.Login("carol@example.com", "Passw0rd1"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("want ErrUserDisabled got %v", err)
	}
}

func TestChangePasswordInvalidatesOldTokens(t *testing.T) {
	db, svc := setupUserAuthTest(t)
	user, _, _, err := svc.Register("dave@example.com", "Passw0rd1", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrong", "NewPassw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old password: want ErrInvalidCredentials got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Passw0rd1", "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password: want ErrWeakPassword got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Passw0rd1", "NewPassw0rd1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("token version want %d got %d", user.TokenVersion+1, stored.TokenVersion)
	}
	if stored.TokenInvalidBefore == nil {
		t.Fatalf("token invalid before must be set")
	}

	if _, _, _, err := svc.Login("dave@example.com", "NewPassw0rd1"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestParseUserJWTRoundTrip(t *testing.T) {
	_, svc := setupUserAuthTest(t)
	user, token, _, err := svc.Register("erin@example.com", "Passw0rd1", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	if _, err := svc.ParseUserJWT("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid got %v", err)
	}
}
