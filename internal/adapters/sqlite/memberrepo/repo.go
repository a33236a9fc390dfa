package memberrepo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/alubilles/membership-api/internal/adapters/sqlite"
	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
)

const selectColumns = `
	SELECT
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
	FROM members
`

// Repo is a SQLite implementation of memberrepo.Repository.
// Timestamps are stored as Unix nanoseconds so ordering is numeric.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.db == nil {
		return errors.New("nil sqlite db")
	}
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists
	}
	status := m.Status
	if status == "" {
		status = domain.StatusPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (
			external_id, member_number, last_name, first_name, birth_date, cohort, program,
			email, phone, address, photo_ref, card_ref, status, rejection_reason,
			suspension_reason, is_active, registered_at, decided_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		string(m.ID),
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
		m.RegisteredAt.UnixNano(),
		nanosPtr(m.DecidedAt),
	)
	if err != nil {
		switch {
		case sqlite.IsUniqueViolation(err, "members.member_number"):
			return memberrepo.ErrMemberNumberTaken
		case sqlite.IsUniqueViolation(err, "members.external_id"):
			return memberrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update rewrites every mutable column. member_number and registered_at are left alone.
func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.db == nil {
		return errors.New("nil sqlite db")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE members
		SET last_name = ?,
		    first_name = ?,
		    birth_date = ?,
		    cohort = ?,
		    program = ?,
		    email = ?,
		    phone = ?,
		    address = ?,
		    photo_ref = ?,
		    card_ref = ?,
		    status = ?,
		    rejection_reason = ?,
		    suspension_reason = ?,
		    is_active = ?,
		    decided_at = ?
		WHERE external_id = ?
	`,
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
		nanosPtr(m.DecidedAt),
		string(m.ID),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	if r.db == nil {
		return errors.New("nil sqlite db")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE external_id = ?`, string(id))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.db == nil {
		return memberrepo.Member{}, errors.New("nil sqlite db")
	}
	return scanMember(r.db.QueryRowContext(ctx, selectColumns+` WHERE external_id = ?`, string(id)))
}

func (r *Repo) GetByNumber(ctx context.Context, n domain.MemberNumber) (memberrepo.Member, error) {
	if r.db == nil {
		return memberrepo.Member{}, errors.New("nil sqlite db")
	}
	return scanMember(r.db.QueryRowContext(ctx, selectColumns+` WHERE member_number = ?`, string(n)))
}

func (r *Repo) List(ctx context.Context) ([]memberrepo.Member, error) {
	return r.query(ctx, selectColumns+` ORDER BY registered_at DESC, external_id ASC`)
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]memberrepo.Member, error) {
	order := ` ORDER BY decided_at IS NULL, decided_at DESC, external_id ASC`
	if status == domain.StatusPending {
		order = ` ORDER BY registered_at ASC, external_id ASC`
	}
	return r.query(ctx, selectColumns+` WHERE status = ?`+order, string(status))
}

// Search matches case-insensitively with fold(), which lower-cases in Go so
// accented names compare the same way as in the other backends.
func (r *Repo) Search(ctx context.Context, query string, status *domain.Status) ([]memberrepo.Member, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(selectColumns)
	sb.WriteString(` WHERE 1 = 1`)
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + sqlite.EscapeLike(strings.ToLower(q)) + "%"
		sb.WriteString(` AND (fold(last_name) LIKE ? ESCAPE '\'
			OR fold(first_name) LIKE ? ESCAPE '\'
			OR fold(member_number) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(*status))
	}
	sb.WriteString(` ORDER BY fold(last_name) ASC, fold(first_name) ASC, external_id ASC`)
	return r.query(ctx, sb.String(), args...)
}

func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	if r.db == nil {
		return domain.Stats{}, errors.New("nil sqlite db")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, count(*), sum(CASE WHEN is_active THEN 1 ELSE 0 END)
		FROM members
		GROUP BY status
	`)
	if err != nil {
		return domain.Stats{}, err
	}
	defer func() { _ = rows.Close() }()

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

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]memberrepo.Member, error) {
	if r.db == nil {
		return nil, errors.New("nil sqlite db")
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func nanosPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixNano()
	return &v
}

func scanMember(row interface{ Scan(dest ...any) error }) (memberrepo.Member, error) {
	var (
		m            memberrepo.Member
		id, number   string
		status       string
		photoRef     sql.NullString
		cardRef      sql.NullString
		rejection    sql.NullString
		suspension   sql.NullString
		registeredAt int64
		decidedAt    sql.NullInt64
	)
	if err := row.Scan(
		&id,
		&number,
		&m.LastName,
		&m.FirstName,
		&m.BirthDate,
		&m.Cohort,
		&m.Program,
		&m.Email,
		&m.Phone,
		&m.Address,
		&photoRef,
		&cardRef,
		&status,
		&rejection,
		&suspension,
		&m.IsActive,
		&registeredAt,
		&decidedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	m.ID = domain.MemberID(id)
	m.Number = domain.MemberNumber(number)
	m.Status = domain.Status(status)
	m.PhotoRef = nullString(photoRef)
	m.CardRef = nullString(cardRef)
	m.RejectionReason = nullString(rejection)
	m.SuspensionReason = nullString(suspension)
	m.RegisteredAt = time.Unix(0, registeredAt).UTC()
	if decidedAt.Valid {
		t := time.Unix(0, decidedAt.Int64).UTC()
		m.DecidedAt = &t
	}
	return m, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
