package notifier

import "context"

// Kind identifies which lifecycle message is being sent.
type Kind string

const (
	KindRegistration         Kind = "registration"
	KindApproval             Kind = "approval"
	KindRejection            Kind = "rejection"
	KindSuspension           Kind = "suspension"
	KindAdminNewRegistration Kind = "admin_new_registration"
)

// Substitution field names understood by every transport.
const (
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldMemberNumber = "member_number"
	FieldReason       = "reason"
)

// Notification is one message addressed to one recipient.
type Notification struct {
	To     string
	Kind   Kind
	Fields map[string]string
}

// Notifier delivers lifecycle notifications. Callers treat errors as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
