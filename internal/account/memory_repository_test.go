package account

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepositoryCreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	acct := Account{
		ID:           "3f5a9a1e-6a68-4f8a-9f52-0c9a3a3a1d21",
		Email:        "a@x.com",
		PasswordHash: []byte("digest"),
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.Create(ctx, acct); err != nil {
		t.Fatalf("create: %v", err)
	}

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != acct.ID {
		t.Fatalf("expected id %s, got %s", acct.ID, byEmail.ID)
	}

	byID, err := repo.FindByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != acct.Email {
		t.Fatalf("expected email %s, got %s", acct.Email, byID.Email)
	}
}

func TestMemoryRepositoryDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := Account{ID: "id-1", Email: "a@x.com"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := Account{ID: "id-2", Email: "a@x.com"}
	if err := repo.Create(ctx, second); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("duplicate create must not replace the original record")
	}
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.FindByEmail(ctx, "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
