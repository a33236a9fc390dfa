package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/alubilles/membership-api/internal/adapters/postgres"
	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
)

const selectColumns = `
	SELECT
		m.external_id,
		m.member_number,
		m.last_name,
		m.first_name,
		m.birth_date,
		m.cohort,
		m.program,
		m.email,
		m.phone,
		m.address,
		m.photo_ref,
		m.card_ref,
		m.status,
		m.rejection_reason,
		m.suspension_reason,
		m.is_active,
		m.registered_at,
		m.decided_at
	FROM members m
`

// Repo is a Postgres implementation of memberrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}
	status := m.Status
	if status == "" {
		status = domain.StatusPending
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (
			external_id,
			member_number,
			last_name,
			first_name,
			birth_date,
			cohort,
			program,
			email,
			phone,
			address,
			photo_ref,
			card_ref,
			status,
			rejection_reason,
			suspension_reason,
			is_active,
			registered_at,
			decided_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		id,
		string(m.Number),
		m.LastName,
		m.FirstName,
		m.BirthDate,
		m.Cohort,
		m.Program,
		m.Email,
		m.Phone,
		m.Address,
		m.PhotoRef,
		m.CardRef,
		string(status),
		m.RejectionReason,
		m.SuspensionReason,
		m.IsActive,
		m.RegisteredAt.UTC(),
		utcPtr(m.DecidedAt),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "members_member_number_unique":
				return memberrepo.ErrMemberNumberTaken
			case "members_external_id_unique":
				return memberrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

// Update rewrites every mutable column. member_number and registered_at are left alone.
func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE members
		SET last_name = $2,
		    first_name = $3,
		    birth_date = $4,
		    cohort = $5,
		    program = $6,
		    email = $7,
		    phone = $8,
		    address = $9,
		    photo_ref = $10,
		    card_ref = $11,
		    status = $12,
		    rejection_reason = $13,
		    suspension_reason = $14,
		    is_active = $15,
		    decided_at = $16
		WHERE external_id = $1
	`,
		id,
		m.LastName,
		m.FirstName,
		m.BirthDate,
		m.Cohort,
		m.Program,
		m.Email,
		m.Phone,
		m.Address,
		m.PhotoRef,
		m.CardRef,
		string(m.Status),
		m.RejectionReason,
		m.SuspensionReason,
		m.IsActive,
		utcPtr(m.DecidedAt),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM members WHERE external_id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.pool.QueryRow(ctx, selectColumns+` WHERE m.external_id = $1`, uid))
}

func (r *Repo) GetByNumber(ctx context.Context, n domain.MemberNumber) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	return scanMember(r.pool.QueryRow(ctx, selectColumns+` WHERE m.member_number = $1`, string(n)))
}

func (r *Repo) List(ctx context.Context) ([]memberrepo.Member, error) {
	return r.query(ctx, selectColumns+` ORDER BY m.registered_at DESC, m.external_id ASC`)
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]memberrepo.Member, error) {
	order := ` ORDER BY m.decided_at DESC NULLS LAST, m.external_id ASC`
	if status == domain.StatusPending {
		order = ` ORDER BY m.registered_at ASC, m.external_id ASC`
	}
	return r.query(ctx, selectColumns+` WHERE m.status = $1`+order, string(status))
}

func (r *Repo) Search(ctx context.Context, query string, status *domain.Status) ([]memberrepo.Member, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(selectColumns)
	sb.WriteString(` WHERE true`)
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		sb.WriteString(fmt.Sprintf(` AND (lower(m.last_name) LIKE $%[1]d ESCAPE '\'
			OR lower(m.first_name) LIKE $%[1]d ESCAPE '\'
			OR lower(m.member_number) LIKE $%[1]d ESCAPE '\')`, len(args)))
	}
	if status != nil {
		args = append(args, string(*status))
		sb.WriteString(fmt.Sprintf(` AND m.status = $%d`, len(args)))
	}
	sb.WriteString(` ORDER BY lower(m.last_name) ASC, lower(m.first_name) ASC, m.external_id ASC`)
	return r.query(ctx, sb.String(), args...)
}

func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	if r.pool == nil {
		return domain.Stats{}, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*), count(*) FILTER (WHERE is_active)
		FROM members
		GROUP BY status
	`)
	if err != nil {
		return domain.Stats{}, err
	}
	defer rows.Close()

	st := domain.Stats{ByStatus: make(map[domain.Status]int, len(domain.Statuses))}
	for _, s := range domain.Statuses {
		st.ByStatus[s] = 0
	}
	for rows.Next() {
		var (
			status        string
			total, active int
		)
		if err := rows.Scan(&status, &total, &active); err != nil {
			return domain.Stats{}, err
		}
		st.ByStatus[domain.Status(status)] = total
		st.Total += total
		st.Active += active
	}
	return st, rows.Err()
}

// --- helpers ---

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]memberrepo.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]memberrepo.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func scanMember(row pgx.Row) (memberrepo.Member, error) {
	var (
		externalID uuid.UUID
		m          memberrepo.Member
		number     string
		status     string
		decidedAt  *time.Time
	)
	if err := row.Scan(
		&externalID,
		&number,
		&m.LastName,
		&m.FirstName,
		&m.BirthDate,
		&m.Cohort,
		&m.Program,
		&m.Email,
		&m.Phone,
		&m.Address,
		&m.PhotoRef,
		&m.CardRef,
		&status,
		&m.RejectionReason,
		&m.SuspensionReason,
		&m.IsActive,
		&m.RegisteredAt,
		&decidedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	m.ID = domain.MemberID(externalID.String())
	m.Number = domain.MemberNumber(number)
	m.Status = domain.Status(status)
	m.RegisteredAt = m.RegisteredAt.UTC()
	m.DecidedAt = utcPtr(decidedAt)
	return m, nil
}
