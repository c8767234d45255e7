package user

import (
	"context"
	"errors"
	"testing"

	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

func newService() (*Service, *wallet.InMemory) {
	wallets := wallet.NewInMemory()
	return NewService(NewInMemory(), workflow.NewGuard(nil, nil), wallets), wallets
}

func validUser() workflow.UserPayload {
	return workflow.UserPayload{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "s3cret-pass",
		Role:     "PARTICIPANT",
	}
}

func TestCreateProvisionsWallet(t *testing.T) {
	svc, wallets := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" || u.PasswordHash == "" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in plaintext")
	}

	w, err := wallets.Balance(ctx, u.ID)
	if err != nil {
		t.Fatalf("wallet not provisioned: %v", err)
	}
	if w.Gems != 0 {
		t.Fatalf("new wallet not empty: %d", w.Gems)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	svc, _ := newService()
	cases := []workflow.UserPayload{
		{Name: "NoEmail", Password: "long-enough", Role: "HOST"},
		{Name: "BadEmail", Email: "not-an-email", Password: "long-enough", Role: "HOST"},
		{Name: "ShortPw", Email: "a@b.com", Password: "short", Role: "HOST"},
		{Name: "BadRole", Email: "a@b.com", Password: "long-enough", Role: "WIZARD"},
	}
	for _, payload := range cases {
		_, err := svc.Create(context.Background(), payload)
		var verr *workflow.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("payload %+v: expected ValidationError, got %v", payload, err)
		}
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, validUser()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := validUser()
	second.Name = "Other"
	second.Email = "DANA@example.com"
	if _, err := svc.Create(ctx, second); !errors.Is(err, workflow.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	u, err := svc.Authenticate(ctx, "dana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("authenticated wrong user: %s", u.ID)
	}

	if _, err := svc.Authenticate(ctx, "dana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateProfileAndRole(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	u, err := svc.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, u.ID, "Dana Q", "dana.q@example.com", "Engineering", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Dana Q" || updated.Department != "Engineering" {
		t.Fatalf("unexpected user: %+v", updated)
	}
	if updated.Email != "dana.q@example.com" {
		t.Fatalf("email not updated: %s", updated.Email)
	}
	if _, err := svc.Authenticate(ctx, "dana.q@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("authenticate with new email: %v", err)
	}
	if updated.Role != "PARTICIPANT" {
		t.Fatalf("profile update changed role: %s", updated.Role)
	}

	// A later partial update must not blank the fields it omits.
	renamed, err := svc.UpdateProfile(ctx, u.ID, "Dana Quill", "", "", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if renamed.Name != "Dana Quill" {
		t.Fatalf("name not updated: %s", renamed.Name)
	}
	if renamed.Department != "Engineering" || renamed.Email != "dana.q@example.com" {
		t.Fatalf("omitted fields were cleared: %+v", renamed)
	}

	promoted, err := svc.SetRole(ctx, u.ID, "JUDGE")
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if promoted.Role != "JUDGE" {
		t.Fatalf("unexpected role: %s", promoted.Role)
	}
	if _, err := svc.SetRole(ctx, u.ID, "WIZARD"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	u, err := svc.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Email is free again after deletion.
	if _, err := svc.Create(ctx, validUser()); err != nil {
		t.Fatalf("re-Create: %v", err)
	}
}
