package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is an administrative action that drives the membership lifecycle.
type Event string

const (
	EventApprove    Event = "approve"
	EventReject     Event = "reject"
	EventSuspend    Event = "suspend"
	EventReactivate Event = "reactivate"
)

// ErrInvalidTransition is returned when an event has no outgoing edge from the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a refused (status, event) pair. It matches ErrInvalidTransition.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a member in status %q", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Rejected has no outgoing edge. Suspended only returns to approved.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
	},
	StatusApproved: {
		EventSuspend: StatusSuspended,
	},
	StatusSuspended: {
		EventReactivate: StatusApproved,
	},
}

// NextStatus returns the status reached by applying ev in from.
func NextStatus(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, &TransitionError{From: from, Event: ev}
}

// CanApply reports whether ev has an outgoing edge from from.
func CanApply(from Status, ev Event) bool {
	_, err := NextStatus(from, ev)
	return err == nil
}

// ApplyTransition returns a copy of m with ev applied at now.
//
// decidedAt is overwritten on every transition. reject sets rejectionReason, suspend sets
// suspensionReason (nil when
// reason is blank), approve/reactivate clear both. CardRef is never touched here.
func ApplyTransition(m Member, ev Event, reason string, now time.Time) (Member, error) {
	to, err := NextStatus(m.Status, ev)
	if err != nil {
		return m, err
	}
	out := m
	out.Status = to
	decided := now
	out.DecidedAt = &decided

	switch ev {
	case EventApprove, EventReactivate:
		out.RejectionReason = nil
		out.SuspensionReason = nil
	case EventReject:
		out.RejectionReason = optionalReason(reason)
	case EventSuspend:
		out.SuspensionReason = optionalReason(reason)
	}
	return out, nil
}

// optionalReason maps a blank reason to nil.
func optionalReason(reason string) *string {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	return &reason
}
