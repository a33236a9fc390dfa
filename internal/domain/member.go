package domain

import "time"

// Status is the membership lifecycle stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Statuses lists every lifecycle stage in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusSuspended}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// ParseStatus parses a status token (case-insensitive, surrounding whitespace ignored).
func ParseStatus(raw string) (Status, bool) {
	s := Status(NormalizeToken(raw))
	return s, s.Valid()
}

// Identity holds the free-form identity fields captured at registration.
type Identity struct {
	LastName  string
	FirstName string
	BirthDate string
	Cohort    string
	Program   string
	Email     string
	Phone     string
	Address   string
}

// FullName returns "First Last" with empty parts dropped.
func (i Identity) FullName() string {
	return NormalizeHumanName(i.FirstName + " " + i.LastName)
}

// Member is the domain representation of an association member.
type Member struct {
	ID     MemberID
	Number MemberNumber

	Identity

	// PhotoRef is the blob key of the uploaded photo; nil means no photo.
	PhotoRef *string
	// CardRef is the blob key of the last rendered card; nil means no card.
	CardRef *string

	Status           Status
	RejectionReason  *string
	SuspensionReason *string

	IsActive bool

	RegisteredAt time.Time
	DecidedAt    *time.Time
}

// CardAvailable reports whether the member's card may be offered for download.
// A card kept across a suspension is stale and is not offered.
func (m Member) CardAvailable() bool {
	return m.Status == StatusApproved && m.CardRef != nil && *m.CardRef != ""
}

// Stats summarizes member counts.
type Stats struct {
	Total    int
	Active   int
	ByStatus map[Status]int
}
