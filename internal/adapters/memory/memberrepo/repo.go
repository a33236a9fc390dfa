package memberrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.MemberID]memberrepo.Member
	idByNumb map[domain.MemberNumber]domain.MemberID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.MemberID]memberrepo.Member),
		idByNumb: make(map[domain.MemberNumber]domain.MemberID),
	}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	if _, ok := r.idByNumb[m.Number]; ok {
		return memberrepo.ErrMemberNumberTaken
	}

	r.byID[m.ID] = cloneMember(m)
	r.idByNumb[m.Number] = m.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	// Number and registration time never change after creation.
	m.Number = existing.Number
	m.RegisteredAt = existing.RegisteredAt

	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return memberrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByNumb, existing.Number)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) GetByNumber(ctx context.Context, n domain.MemberNumber) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByNumb[n]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(r.byID[id]), nil
}

func (r *Repo) List(ctx context.Context) ([]memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]memberrepo.Member, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, cloneMember(m))
	}
	sortByRegisteredDesc(out)
	return out, nil
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]memberrepo.Member, 0)
	for _, m := range r.byID {
		if m.Status == status {
			out = append(out, cloneMember(m))
		}
	}
	if status == domain.StatusPending {
		sortByRegisteredAsc(out)
	} else {
		sortByDecidedDesc(out)
	}
	return out, nil
}

func (r *Repo) Search(ctx context.Context, query string, status *domain.Status) ([]memberrepo.Member, error) {
	_ = ctx
	q := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]memberrepo.Member, 0)
	for _, m := range r.byID {
		if status != nil && m.Status != *status {
			continue
		}
		if q != "" && !matches(m, q) {
			continue
		}
		out = append(out, cloneMember(m))
	}
	sortByName(out)
	return out, nil
}

func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := domain.Stats{ByStatus: make(map[domain.Status]int, len(domain.Statuses))}
	for _, s := range domain.Statuses {
		st.ByStatus[s] = 0
	}
	for _, m := range r.byID {
		st.Total++
		st.ByStatus[m.Status]++
		if m.IsActive {
			st.Active++
		}
	}
	return st, nil
}

func matches(m memberrepo.Member, q string) bool {
	return strings.Contains(strings.ToLower(m.LastName), q) ||
		strings.Contains(strings.ToLower(m.FirstName), q) ||
		strings.Contains(strings.ToLower(string(m.Number)), q)
}

func cloneMember(m memberrepo.Member) memberrepo.Member {
	out := m
	out.PhotoRef = cloneStringPtr(m.PhotoRef)
	out.CardRef = cloneStringPtr(m.CardRef)
	out.RejectionReason = cloneStringPtr(m.RejectionReason)
	out.SuspensionReason = cloneStringPtr(m.SuspensionReason)
	if m.DecidedAt != nil {
		v := *m.DecidedAt
		out.DecidedAt = &v
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortByRegisteredAsc(ms []memberrepo.Member) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].RegisteredAt.Equal(ms[j].RegisteredAt) {
			return ms[i].RegisteredAt.Before(ms[j].RegisteredAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func sortByRegisteredDesc(ms []memberrepo.Member) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].RegisteredAt.Equal(ms[j].RegisteredAt) {
			return ms[i].RegisteredAt.After(ms[j].RegisteredAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func sortByDecidedDesc(ms []memberrepo.Member) {
	decided := func(m memberrepo.Member) time.Time {
		if m.DecidedAt == nil {
			return time.Time{}
		}
		return *m.DecidedAt
	}
	sort.Slice(ms, func(i, j int) bool {
		di, dj := decided(ms[i]), decided(ms[j])
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return ms[i].ID < ms[j].ID
	})
}

func sortByName(ms []memberrepo.Member) {
	sort.Slice(ms, func(i, j int) bool {
		li, lj := strings.ToLower(ms[i].LastName), strings.ToLower(ms[j].LastName)
		if li != lj {
			return li < lj
		}
		fi, fj := strings.ToLower(ms[i].FirstName), strings.ToLower(ms[j].FirstName)
		if fi != fj {
			return fi < fj
		}
		return ms[i].ID < ms[j].ID
	})
}
