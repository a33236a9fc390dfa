package members

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/platform/telemetry"
	"github.com/alubilles/membership-api/internal/ports/out/blobstore"
	clockport "github.com/alubilles/membership-api/internal/ports/out/clock"
	"github.com/alubilles/membership-api/internal/ports/out/memberrepo"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
	"github.com/alubilles/membership-api/internal/render/card"
)

// DefaultMaxPhotoBytes bounds uploaded photos.
const DefaultMaxPhotoBytes = 16 << 20

// photoTypes maps accepted photo extensions to their content type.
var photoTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// NumberAllocator hands out member numbers.
type NumberAllocator interface {
	Next(ctx context.Context) (domain.MemberNumber, error)
}

// CardIssuer renders and stores a member's card, returning its blob key.
type CardIssuer interface {
	Issue(ctx context.Context, m domain.Member) (string, error)
}

// Deps are the collaborators of Service. Logger and Metrics may be nil.
type Deps struct {
	Repo     memberrepo.Repository
	Numbers  NumberAllocator
	Blobs    blobstore.Store
	Cards    CardIssuer
	Notifier notifier.Notifier
	Clock    clockport.Clock
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

type Service struct {
	repo    memberrepo.Repository
	numbers NumberAllocator
	blobs   blobstore.Store
	cards   CardIssuer
	notify  notifier.Notifier
	clk     clockport.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	newMemberID func() domain.MemberID

	// AdminEmail receives admin-new-registration notifications when set.
	AdminEmail string
	// MaxPhotoBytes bounds photo uploads.
	MaxPhotoBytes int64
	// AllocateAttempts bounds member number retries after a unique violation.
	AllocateAttempts int
}

func NewService(d Deps) *Service {
	return &Service{
		repo:    d.Repo,
		numbers: d.Numbers,
		blobs:   d.Blobs,
		cards:   d.Cards,
		notify:  d.Notifier,
		clk:     d.Clock,
		log:     logging.OrNop(d.Logger),
		metrics: metrics.OrNew(d.Metrics),
		tracer:  telemetry.Tracer(),
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
		MaxPhotoBytes:    DefaultMaxPhotoBytes,
		AllocateAttempts: 5,
	}
}

// Register creates a pending member, storing the optional photo and notifying the
// member and the administrator.
func (s *Service) Register(ctx context.Context, in RegisterInput) (m domain.Member, err error) {
	ctx, span := s.tracer.Start(ctx, "members.Register")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = errorOutcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		s.metrics.Registrations.WithLabelValues(outcome).Inc()
		span.End()
	}()

	id := domain.TrimIdentity(in.Identity)
	if err := validateIdentity(id); err != nil {
		return domain.Member{}, err
	}

	var photo *storedPhoto
	if in.Photo != nil {
		photo, err = s.readPhoto(*in.Photo)
		if err != nil {
			return domain.Member{}, err
		}
	}

	memberID := s.newMemberID()
	rec := memberrepo.Member{
		ID:           memberID,
		LastName:     id.LastName,
		FirstName:    id.FirstName,
		BirthDate:    id.BirthDate,
		Cohort:       id.Cohort,
		Program:      id.Program,
		Email:        id.Email,
		Phone:        id.Phone,
		Address:      id.Address,
		Status:       domain.StatusPending,
		IsActive:     true,
		RegisteredAt: s.clk.Now(),
	}

	if photo != nil {
		key := "photos/" + string(memberID) + photo.ext
		if _, err := s.blobs.Put(ctx, key, bytes.NewReader(photo.data), blobstore.PutOptions{ContentType: photo.contentType}); err != nil {
			return domain.Member{}, fmt.Errorf("store photo: %w", err)
		}
		rec.PhotoRef = &key
	}

	if err := s.createWithNumber(ctx, &rec); err != nil {
		if rec.PhotoRef != nil {
			if _, derr := s.blobs.Delete(ctx, *rec.PhotoRef); derr != nil {
				s.log.Warn("orphaned photo after failed registration", zap.String("photo_ref", *rec.PhotoRef), zap.Error(derr))
			}
		}
		return domain.Member{}, err
	}

	m = toDomain(rec)
	span.SetAttributes(attribute.String("member.id", string(m.ID)), attribute.String("member.number", string(m.Number)))
	s.log.Info("member registered", zap.String("member_id", string(m.ID)), zap.String("member_number", string(m.Number)))

	s.send(ctx, m.Email, notifier.KindRegistration, m, "")
	s.send(ctx, s.AdminEmail, notifier.KindAdminNewRegistration, m, "")
	return m, nil
}

// createWithNumber allocates a number and inserts rec, retrying when the number is
// already taken.
func (s *Service) createWithNumber(ctx context.Context, rec *memberrepo.Member) error {
	attempts := s.AllocateAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		n, err := s.numbers.Next(ctx)
		if err != nil {
			return err
		}
		rec.Number = n
		err = s.repo.Create(ctx, *rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, memberrepo.ErrMemberNumberTaken) {
			return fmt.Errorf("create member: %w", err)
		}
		lastErr = err
		s.log.Warn("member number already taken, retrying", zap.String("member_number", string(n)), zap.Int("attempt", i+1))
	}
	return fmt.Errorf("create member after %d attempts: %w", attempts, lastErr)
}

type storedPhoto struct {
	ext         string
	contentType string
	data        []byte
}

func (s *Service) readPhoto(p PhotoUpload) (*storedPhoto, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(p.Filename)))
	ct, ok := photoTypes[ext]
	if !ok {
		return nil, validationError("invalid photo", map[string]any{"photo": "must be a png, jpg, jpeg, gif or webp file"})
	}
	if p.Body == nil {
		return nil, validationError("invalid photo", map[string]any{"photo": "must not be empty"})
	}
	limit := s.MaxPhotoBytes
	if limit <= 0 {
		limit = DefaultMaxPhotoBytes
	}
	data, err := io.ReadAll(io.LimitReader(p.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &Error{
			Status:  413,
			Code:    CodePhotoTooLarge,
			Message: "photo is too large",
			Details: map[string]any{"maxBytes": limit},
		}
	}
	if len(data) == 0 {
		return nil, validationError("invalid photo", map[string]any{"photo": "must not be empty"})
	}
	// Unreadable headers are stored anyway; rendering falls back to the placeholder.
	if err := card.CheckPhotoDimensions(data); errors.Is(err, card.ErrPhotoTooLarge) {
		return nil, validationError("invalid photo", map[string]any{"photo": "dimensions exceed 4096x4096"})
	}
	return &storedPhoto{ext: ext, contentType: ct, data: data}, nil
}

func validateIdentity(id domain.Identity) error {
	details := map[string]any{}
	if id.LastName == "" {
		details["lastName"] = "must be non-empty"
	}
	if id.FirstName == "" {
		details["firstName"] = "must be non-empty"
	}
	if id.Email != "" {
		if err := validateEmail(id.Email); err != nil {
			details["email"] = err.Error()
		}
	}
	if len(details) > 0 {
		return validationError("invalid registration", details)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, memberNotFound("memberId", string(id))
		}
		return domain.Member{}, err
	}
	return toDomain(rec), nil
}

func (s *Service) GetByNumber(ctx context.Context, n domain.MemberNumber) (domain.Member, error) {
	rec, err := s.repo.GetByNumber(ctx, domain.MemberNumber(strings.TrimSpace(string(n))))
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, memberNotFound("memberNumber", string(n))
		}
		return domain.Member{}, err
	}
	return toDomain(rec), nil
}

// List returns members matching f. Without a query, a status filter lists that
// status; no filter lists everyone, newest registration first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Member, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, validationError("invalid status filter", map[string]any{"status": "must be one of pending, approved, rejected, suspended"})
	}

	var (
		recs []memberrepo.Member
		err  error
	)
	switch q := strings.TrimSpace(f.Query); {
	case q != "":
		recs, err = s.repo.Search(ctx, q, f.Status)
	case f.Status != nil:
		recs, err = s.repo.ListByStatus(ctx, *f.Status)
	default:
		recs, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(recs))
	for _, r := range recs {
		out = append(out, toDomain(r))
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}

// Delete releases the member's photo and card, then removes the record.
// A storage failure aborts the delete with the record intact.
func (s *Service) Delete(ctx context.Context, id domain.MemberID) (err error) {
	ctx, span := s.tracer.Start(ctx, "members.Delete", trace.WithAttributes(attribute.String("member.id", string(id))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete failed")
		}
		span.End()
	}()

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, ref := range []*string{m.PhotoRef, m.CardRef} {
		if ref == nil || *ref == "" {
			continue
		}
		if _, err := s.blobs.Delete(ctx, *ref); err != nil {
			return fmt.Errorf("release %s: %w", *ref, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return memberNotFound("memberId", string(id))
		}
		return err
	}
	s.log.Info("member deleted", zap.String("member_id", string(id)), zap.String("member_number", string(m.Number)))
	return nil
}

// Card is an open card artifact ready to stream.
type Card struct {
	Member   domain.Member
	Info     blobstore.Info
	Body     io.ReadCloser
	FileName string
}

// OpenCard opens the card of member n. Only approved members with a rendered card
// have one.
func (s *Service) OpenCard(ctx context.Context, n domain.MemberNumber) (Card, error) {
	m, err := s.GetByNumber(ctx, n)
	if err != nil {
		return Card{}, err
	}
	if !m.CardAvailable() {
		return Card{}, cardNotAvailable(m.Number)
	}
	info, body, err := s.blobs.Get(ctx, *m.CardRef)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.log.Warn("card artifact missing", zap.String("member_number", string(m.Number)), zap.String("card_ref", *m.CardRef))
			return Card{}, cardNotAvailable(m.Number)
		}
		return Card{}, err
	}
	return Card{Member: m, Info: info, Body: body, FileName: "card_" + string(m.Number) + ".png"}, nil
}

// send hands a notification to the notifier. Failures are logged and never returned.
func (s *Service) send(ctx context.Context, to string, kind notifier.Kind, m domain.Member, reason string) {
	if to == "" || s.notify == nil {
		return
	}
	fields := map[string]string{
		notifier.FieldFirstName:    m.FirstName,
		notifier.FieldLastName:     m.LastName,
		notifier.FieldMemberNumber: string(m.Number),
	}
	if reason != "" {
		fields[notifier.FieldReason] = reason
	}
	if err := s.notify.Notify(ctx, notifier.Notification{To: to, Kind: kind, Fields: fields}); err != nil {
		s.log.Warn("notification not sent",
			zap.String("kind", string(kind)),
			zap.String("member_number", string(m.Number)),
			zap.Error(err))
	}
}

func errorOutcome(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return strings.ToLower(ae.Code)
	}
	return "error"
}
