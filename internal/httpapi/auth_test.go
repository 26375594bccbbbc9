package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store/memory"
)

func TestLoginIssuesTokenWithStoreClaims(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "seller",
		Password: "seller123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleSeller || resp.StoreID != 1 {
		t.Fatalf("response = %+v, want seller role with store 1", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "seller" || actor.Role != domain.RoleSeller || actor.StoreID != 1 || actor.UserID != 2 {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	other := NewAuthManager("a-different-secret", time.Hour, repo)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("token signed with another secret must not parse")
	}
}

func TestLoginUpgradesLegacyPlainPassword(t *testing.T) {
	repo := memory.NewSeeded()
	if _, err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "legacy",
		Password: "plaintext1",
		Role:     domain.RoleSeller,
		StoreID:  1,
		Active:   true,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	if _, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "legacy",
		Password: "plaintext1",
	}); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	stored, err := repo.GetUserByUsername(context.Background(), "legacy")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !isPasswordHash(stored.Password) {
		t.Fatalf("password not upgraded to a hash: %q", stored.Password)
	}
	// The upgraded hash still verifies.
	if _, err := auth.Login(context.Background(), domain.LoginRequest{
		Username: "legacy",
		Password: "plaintext1",
	}); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestCreateSellerValidation(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	ctx := context.Background()

	cases := []domain.SellerCreateRequest{
		{Username: "abc", Password: "secret6", StoreID: 1},
		{Username: "valid name", Password: "secret6", StoreID: 1},
		{Username: "validname", Password: "short", StoreID: 1},
		{Username: "validname", Password: "secret6"},
	}
	for _, req := range cases {
		if _, err := auth.CreateSeller(ctx, req); err == nil {
			t.Fatalf("CreateSeller(%+v) must fail", req)
		}
	}

	created, err := auth.CreateSeller(ctx, domain.SellerCreateRequest{
		Username: "Validname", Password: "secret6", StoreID: 2,
	})
	if err != nil {
		t.Fatalf("create seller: %v", err)
	}
	if created.Username != "validname" || created.StoreID != 2 {
		t.Fatalf("created = %+v", created)
	}

	stored, err := repo.GetUserByUsername(ctx, "validname")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("stored password is not a bcrypt hash")
	}

	if _, err := auth.CreateSeller(ctx, domain.SellerCreateRequest{
		Username: "validname", Password: "secret6", StoreID: 2,
	}); err == nil {
		t.Fatalf("duplicate username must fail")
	}
}
