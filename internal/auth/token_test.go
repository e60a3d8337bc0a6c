package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"crucible/api/internal/rbac"
)

func TestIssueAndParseToken(t *testing.T) {
	signer := NewSigner("secret")
	issued, err := signer.Issue(Claims{
		Sub:   "user-1",
		Email: "avery@example.com",
		Role:  "editor",
		JTI:   "ses-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := signer.Parse(issued)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "avery@example.com" || claims.Role != "editor" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueNormalizesRoleAndRequiresSession(t *testing.T) {
	signer := NewSigner("secret")
	issued, err := signer.Issue(Claims{Sub: "user-1", Role: "superuser", JTI: "ses-1", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := signer.Parse(issued)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Role != string(rbac.RoleViewer) {
		t.Fatalf("unknown role should be stored as viewer, got %q", claims.Role)
	}
	if _, err := signer.Issue(Claims{Sub: "user-1", Exp: time.Now().Add(time.Hour).Unix()}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without a session id, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	signer := NewSigner("secret")
	issued, err := signer.Issue(Claims{
		Sub: "user-1",
		JTI: "ses-1",
		Exp: time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := signer.Parse(issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseRejectsForeignOrMangledTokens(t *testing.T) {
	issued, err := NewSigner("one").Issue(Claims{Sub: "user-1", JTI: "ses-1", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	for _, token := range []string{issued, issued + ".extra", "", "no-dot", "." + issued} {
		if _, err := NewSigner("two").Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatal("expected no identity on a bare context")
	}
	identity := Claims{Sub: "user-1", Role: "nonsense", JTI: "ses-1"}.Identity()
	if identity.Role != rbac.RoleViewer {
		t.Fatalf("unknown roles should normalize to viewer, got %q", identity.Role)
	}
	ctx := WithIdentity(context.Background(), identity)
	got, ok := IdentityFrom(ctx)
	if !ok || got.UserID != "user-1" || got.SessionID != "ses-1" {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if !got.Owns("user-1") || got.Owns("user-2") {
		t.Fatal("owner check failed")
	}
	admin := Identity{UserID: "root", Role: rbac.RoleAdmin}
	if !admin.Owns("user-2") {
		t.Fatal("admins own every job")
	}
}
