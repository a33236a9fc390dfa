package memberrepo

import (
	"context"
	"time"

	"github.com/alubilles/membership-api/internal/domain"
)

// Member is the persistence shape used by the member repository.
// It mirrors the members table one column per field; it is not an HTTP DTO.
type Member struct {
	ID     domain.MemberID
	Number domain.MemberNumber

	LastName  string
	FirstName string
	BirthDate string
	Cohort    string
	Program   string
	Email     string
	Phone     string
	Address   string

	PhotoRef *string
	CardRef  *string

	Status           domain.Status
	RejectionReason  *string
	SuspensionReason *string

	IsActive bool

	RegisteredAt time.Time
	DecidedAt    *time.Time
}

// Repository provides access to persisted members.
//
// Result ordering expectations:
//   - ListByStatus(pending) orders by RegisteredAt ascending (oldest first).
//   - ListByStatus(approved|rejected|suspended) orders by DecidedAt descending.
//   - List orders by RegisteredAt descending.
//   - Search orders by lower(LastName), lower(FirstName), ID.
type Repository interface {
	// Create inserts a new member. A duplicate Number yields ErrMemberNumberTaken.
	Create(ctx context.Context, m Member) error
	// Update replaces the stored record with m. Number and RegisteredAt are immutable.
	Update(ctx context.Context, m Member) error
	Delete(ctx context.Context, id domain.MemberID) error

	GetByID(ctx context.Context, id domain.MemberID) (Member, error)
	GetByNumber(ctx context.Context, n domain.MemberNumber) (Member, error)

	List(ctx context.Context) ([]Member, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]Member, error)

	// Search performs a case-insensitive substring match on LastName, FirstName and Number.
	// A nil status spans all statuses.
	Search(ctx context.Context, query string, status *domain.Status) ([]Member, error)

	// Stats returns total, active and per-status counts.
	Stats(ctx context.Context) (domain.Stats, error)
}
