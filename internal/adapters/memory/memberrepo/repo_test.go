package memberrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
)

func TestRepo_UpdateKeepsNumberAndRegisteredAt(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	reg := time.Unix(100, 0).UTC()
	m := memberrepo.Member{ID: "m1", Number: "ALU-2024-0001", LastName: "Diallo", Status: domain.StatusPending, RegisteredAt: reg}
	if err := r.Create(context.Background(), m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	m.Number = "ALU-2024-0099"
	m.RegisteredAt = time.Unix(999, 0).UTC()
	m.LastName = "Ndiaye"
	if err := r.Update(context.Background(), m); err != nil {
		t.Fatalf("Update() err=%v", err)
	}

	got, err := r.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if got.Number != "ALU-2024-0001" || !got.RegisteredAt.Equal(reg) {
		t.Fatalf("GetByID() number=%q registeredAt=%v, want immutable", got.Number, got.RegisteredAt)
	}
	if got.LastName != "Ndiaye" {
		t.Fatalf("GetByID().LastName=%q, want %q", got.LastName, "Ndiaye")
	}
	if _, err := r.GetByNumber(context.Background(), "ALU-2024-0099"); err != memberrepo.ErrNotFound {
		t.Fatalf("GetByNumber(new number) err=%v, want %v", err, memberrepo.ErrNotFound)
	}
}

func TestRepo_ReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	card := "cards/card_ALU-2024-0001.png"
	m := memberrepo.Member{ID: "m1", Number: "ALU-2024-0001", Status: domain.StatusApproved, CardRef: &card}
	if err := r.Create(context.Background(), m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	got, err := r.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	*got.CardRef = "mutated"

	again, err := r.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if *again.CardRef != card {
		t.Fatalf("CardRef=%q, want %q", *again.CardRef, card)
	}
}
