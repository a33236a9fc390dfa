package members

import (
	"time"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
)

func toDomain(m memberrepo.Member) domain.Member {
	return domain.Member{
		ID:     m.ID,
		Number: m.Number,
		Identity: domain.Identity{
			LastName:  m.LastName,
			FirstName: m.FirstName,
			BirthDate: m.BirthDate,
			Cohort:    m.Cohort,
			Program:   m.Program,
			Email:     m.Email,
			Phone:     m.Phone,
			Address:   m.Address,
		},
		PhotoRef:         cloneStringPtr(m.PhotoRef),
		CardRef:          cloneStringPtr(m.CardRef),
		Status:           m.Status,
		RejectionReason:  cloneStringPtr(m.RejectionReason),
		SuspensionReason: cloneStringPtr(m.SuspensionReason),
		IsActive:         m.IsActive,
		RegisteredAt:     m.RegisteredAt,
		DecidedAt:        cloneTimePtr(m.DecidedAt),
	}
}

func toRecord(m domain.Member) memberrepo.Member {
	return memberrepo.Member{
		ID:               m.ID,
		Number:           m.Number,
		LastName:         m.LastName,
		FirstName:        m.FirstName,
		BirthDate:        m.BirthDate,
		Cohort:           m.Cohort,
		Program:          m.Program,
		Email:            m.Email,
		Phone:            m.Phone,
		Address:          m.Address,
		PhotoRef:         cloneStringPtr(m.PhotoRef),
		CardRef:          cloneStringPtr(m.CardRef),
		Status:           m.Status,
		RejectionReason:  cloneStringPtr(m.RejectionReason),
		SuspensionReason: cloneStringPtr(m.SuspensionReason),
		IsActive:         m.IsActive,
		RegisteredAt:     m.RegisteredAt,
		DecidedAt:        cloneTimePtr(m.DecidedAt),
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
