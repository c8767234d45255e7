package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("user-42", RoleJudge, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	principal, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if principal.ID != "user-42" {
		t.Fatalf("unexpected subject: %s", principal.ID)
	}
	if principal.Role != RoleJudge {
		t.Fatalf("unexpected role: %s", principal.Role)
	}
}

func TestGenerateTokenRejectsBadInput(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	if _, err := GenerateToken("", RoleHost, time.Minute); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := GenerateToken("user-1", Role("WIZARD"), time.Minute); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := GenerateToken("user-1", RoleHost, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestParseAndValidateRejectsExpired(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("user-9", RoleParticipant, time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" participant ")
	if err != nil || role != RoleParticipant {
		t.Fatalf("unexpected: %v %v", role, err)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("expected no principal on empty context")
	}
	ctx = ContextWithPrincipal(ctx, Principal{ID: "user-7", Role: RoleHost})
	principal, ok := PrincipalFromContext(ctx)
	if !ok || principal.ID != "user-7" || principal.Role != RoleHost {
		t.Fatalf("unexpected principal: %+v ok=%v", principal, ok)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
