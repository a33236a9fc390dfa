package domain

// MemberID is an internal identifier for a member record.
// It is an opaque UUID string assigned at registration and never reused.
type MemberID string

// AdminID is the authenticated administrator principal (basic-auth username or dev header).
type AdminID string
