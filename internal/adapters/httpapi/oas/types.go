// Package oas holds the wire types of the membership HTTP API and binds request
// parameters onto a ServerInterface.
package oas

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// MemberStatus is the lifecycle stage of a member.
type MemberStatus string

const (
	MemberStatusPending   MemberStatus = "pending"
	MemberStatusApproved  MemberStatus = "approved"
	MemberStatusRejected  MemberStatus = "rejected"
	MemberStatusSuspended MemberStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusPending, MemberStatusApproved, MemberStatusRejected, MemberStatusSuspended:
		return true
	}
	return false
}

// Error is the body of every error response.
type Error struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}

// RegistrationRequest is the JSON form of a registration. Multipart requests carry
// the same field names plus an optional "photo" file part.
type RegistrationRequest struct {
	LastName  string              `json:"lastName"`
	FirstName string              `json:"firstName"`
	BirthDate *openapi_types.Date `json:"birthDate,omitempty"`
	Cohort    string              `json:"cohort,omitempty"`
	Program   string              `json:"program,omitempty"`
	Email     string              `json:"email,omitempty"`
	Phone     string              `json:"phone,omitempty"`
	Address   string              `json:"address,omitempty"`
}

type RegistrationResponse struct {
	Id           string       `json:"id"`
	MemberNumber string       `json:"memberNumber"`
	Status       MemberStatus `json:"status"`
}

type MemberStatusResponse struct {
	MemberNumber  string       `json:"memberNumber"`
	Status        MemberStatus `json:"status"`
	CardAvailable bool         `json:"cardAvailable"`
}

type Member struct {
	Id           string       `json:"id"`
	MemberNumber string       `json:"memberNumber"`
	LastName     string       `json:"lastName"`
	FirstName    string       `json:"firstName"`
	BirthDate    string       `json:"birthDate"`
	Cohort       string       `json:"cohort"`
	Program      string       `json:"program"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	Status       MemberStatus `json:"status"`
	IsActive     bool         `json:"isActive"`

	HasPhoto      bool `json:"hasPhoto"`
	CardAvailable bool `json:"cardAvailable"`

	RejectionReason  nullable.Nullable[string]    `json:"rejectionReason"`
	SuspensionReason nullable.Nullable[string]    `json:"suspensionReason"`
	RegisteredAt     time.Time                    `json:"registeredAt"`
	DecidedAt        nullable.Nullable[time.Time] `json:"decidedAt"`
}

type MemberResponse struct {
	Member Member `json:"member"`
}

type MemberListResponse struct {
	Members []Member `json:"members"`
}

// ReasonRequest is the optional body of reject and suspend.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

type StatsResponse struct {
	Total    int                  `json:"total"`
	Active   int                  `json:"active"`
	ByStatus map[MemberStatus]int `json:"byStatus"`
}

// RegisterParams are the header parameters of POST /registrations.
type RegisterParams struct {
	IdempotencyKey *string
}

// AdminListMembersParams are the query parameters of GET /admin/members.
type AdminListMembersParams struct {
	Status *MemberStatus
	Q      *string
}
