package members

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

// Approve moves a pending member to approved and issues the card.
//
// When the card cannot be rendered the member stays approved and the returned
// error has code CARD_RENDER_FAILED alongside the updated member; RegenerateCard
// retries the render.
func (s *Service) Approve(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	return s.transition(ctx, id, domain.EventApprove, "")
}

// Reject moves a pending member to rejected with reason.
func (s *Service) Reject(ctx context.Context, id domain.MemberID, reason string) (domain.Member, error) {
	return s.transition(ctx, id, domain.EventReject, reason)
}

// Suspend moves an approved member to suspended with reason. The card is kept but
// is not downloadable until reactivation.
func (s *Service) Suspend(ctx context.Context, id domain.MemberID, reason string) (domain.Member, error) {
	return s.transition(ctx, id, domain.EventSuspend, reason)
}

// Reactivate returns a suspended member to approved.
func (s *Service) Reactivate(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	return s.transition(ctx, id, domain.EventReactivate, "")
}

func (s *Service) transition(ctx context.Context, id domain.MemberID, ev domain.Event, reason string) (out domain.Member, err error) {
	ctx, span := s.tracer.Start(ctx, "members."+string(ev), trace.WithAttributes(
		attribute.String("member.id", string(id)),
		attribute.String("member.event", string(ev)),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = errorOutcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		s.metrics.Transitions.WithLabelValues(string(ev), outcome).Inc()
		span.End()
	}()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	next, err := domain.ApplyTransition(cur, ev, strings.TrimSpace(reason), s.clk.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return cur, invalidTransition(err, cur.Status, ev)
		}
		return domain.Member{}, err
	}
	if err := s.repo.Update(ctx, toRecord(next)); err != nil {
		return domain.Member{}, err
	}
	s.log.Info("member status changed",
		zap.String("member_id", string(id)),
		zap.String("member_number", string(next.Number)),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(next.Status)))

	var renderErr error
	if ev == domain.EventApprove {
		next, renderErr = s.issueCard(ctx, next)
	}

	switch ev {
	case domain.EventApprove, domain.EventReactivate:
		s.send(ctx, next.Email, notifier.KindApproval, next, "")
	case domain.EventReject:
		s.send(ctx, next.Email, notifier.KindRejection, next, deref(next.RejectionReason))
	case domain.EventSuspend:
		s.send(ctx, next.Email, notifier.KindSuspension, next, deref(next.SuspensionReason))
	}

	if renderErr != nil {
		return next, renderErr
	}
	return next, nil
}

// RegenerateCard re-renders the card of an approved member and overwrites the
// stored artifact. Status and decidedAt are not touched.
func (s *Service) RegenerateCard(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	ctx, span := s.tracer.Start(ctx, "members.RegenerateCard", trace.WithAttributes(attribute.String("member.id", string(id))))
	defer span.End()

	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if m.Status != domain.StatusApproved {
		return m, &Error{
			Status:  409,
			Code:    CodeInvalidTransition,
			Message: "cards are only issued to approved members",
			Details: map[string]any{"status": string(m.Status)},
		}
	}
	out, err := s.issueCard(ctx, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "card render failed")
	}
	return out, err
}

// issueCard renders m's card and records the artifact key on the member.
func (s *Service) issueCard(ctx context.Context, m domain.Member) (domain.Member, error) {
	ref, err := s.cards.Issue(ctx, m)
	if err != nil {
		s.log.Error("card render failed", zap.String("member_number", string(m.Number)), zap.Error(err))
		return m, cardRenderFailed(err, m)
	}
	m.CardRef = &ref
	if err := s.repo.Update(ctx, toRecord(m)); err != nil {
		return m, err
	}
	return m, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
