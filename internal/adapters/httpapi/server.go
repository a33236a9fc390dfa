package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/httpapi/oas"
	"github.com/alubilles/membership-api/internal/app/members"
	"github.com/alubilles/membership-api/internal/domain"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/ports/out/idempotency"
)

const (
	registrationRoute = "/registrations"
	// maxFormOverhead is the room left for text fields on top of the photo limit.
	maxFormOverhead = 1 << 20
	maxJSONBody     = 64 << 10
)

// Server is the HTTP adapter implementing oas.ServerInterface.
type Server struct {
	Members *members.Service
	Idem    idempotency.Store
	Log     *zap.Logger

	// MaxUploadBytes bounds the registration request body.
	MaxUploadBytes int64
}

var _ oas.ServerInterface = (*Server)(nil)

func NewServer(membersSvc *members.Service, idem idempotency.Store, log *zap.Logger) *Server {
	return &Server{
		Members:        membersSvc,
		Idem:           idem,
		Log:            logging.OrNop(log),
		MaxUploadBytes: members.DefaultMaxPhotoBytes + maxFormOverhead,
	}
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request, params oas.RegisterParams) {
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxUploadBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeOASError(w, r, http.StatusRequestEntityTooLarge, members.CodePhotoTooLarge, "request body too large", map[string]any{"maxBytes": mbe.Limit})
			return
		}
		writeOASError(w, r, http.StatusBadRequest, "INVALID_BODY", "could not read request body", nil)
		return
	}

	// Idempotency handling:
	// - Replay if same key+route+bodyHash
	// - Reject if same key+route with different bodyHash (409)
	var fp idempotency.Fingerprint
	if params.IdempotencyKey != nil && strings.TrimSpace(*params.IdempotencyKey) != "" && s.Idem != nil {
		sum := sha256.Sum256(raw)
		fp = idempotency.Fingerprint{
			Key:      idempotency.Key(strings.TrimSpace(*params.IdempotencyKey)),
			Method:   http.MethodPost,
			Route:    registrationRoute,
			BodyHash: hex.EncodeToString(sum[:]),
		}
		if done := s.replay(w, r, fp); done {
			return
		}
	}

	in, perr := parseRegistration(r, raw)
	if perr != nil {
		writeAppError(w, r, s.Log, perr)
		return
	}
	if in.Photo != nil {
		if c, ok := in.Photo.Body.(io.Closer); ok {
			defer c.Close()
		}
	}

	m, err := s.Members.Register(ctx, in)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}

	resp := oas.RegistrationResponse{Id: string(m.ID), MemberNumber: string(m.Number), Status: oas.MemberStatus(m.Status)}
	if fp.Key != "" {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.Idem.Put(ctx, fp, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				s.Log.Warn("idempotency record not stored", zap.String("key", string(fp.Key)), zap.Error(err))
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// replay answers a repeated registration from the idempotency store. It reports
// whether a response was written.
func (s *Server) replay(w http.ResponseWriter, r *http.Request, fp idempotency.Fingerprint) bool {
	ctx := r.Context()
	prev, ok, err := s.Idem.FindByKey(ctx, fp.Key, fp.Method, fp.Route)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return true
	}
	if !ok {
		return false
	}
	if prev.BodyHash != fp.BodyHash {
		writeOASError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
		return true
	}
	rec, ok, err := s.Idem.Get(ctx, fp)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return true
	}
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
	return true
}

func parseRegistration(r *http.Request, raw []byte) (members.RegisterInput, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case "application/json":
		return parseRegistrationJSON(raw)
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return parseRegistrationForm(r, raw)
	default:
		return members.RegisterInput{}, &members.Error{
			Status:  http.StatusUnsupportedMediaType,
			Code:    "UNSUPPORTED_MEDIA_TYPE",
			Message: "registration must be multipart/form-data or application/json",
		}
	}
}

func parseRegistrationJSON(raw []byte) (members.RegisterInput, error) {
	if len(raw) > maxJSONBody {
		return members.RegisterInput{}, &members.Error{Status: http.StatusRequestEntityTooLarge, Code: "BODY_TOO_LARGE", Message: "request body too large"}
	}
	var body oas.RegistrationRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return members.RegisterInput{}, &members.Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    members.CodeValidation,
			Message: "invalid request body",
			Details: map[string]any{"body": err.Error()},
		}
	}
	id := domain.Identity{
		LastName:  body.LastName,
		FirstName: body.FirstName,
		Cohort:    body.Cohort,
		Program:   body.Program,
		Email:     body.Email,
		Phone:     body.Phone,
		Address:   body.Address,
	}
	if body.BirthDate != nil {
		id.BirthDate = body.BirthDate.String()
	}
	return members.RegisterInput{Identity: id}, nil
}

func parseRegistrationForm(r *http.Request, raw []byte) (members.RegisterInput, error) {
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(32 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return members.RegisterInput{}, &members.Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    members.CodeValidation,
			Message: "invalid form body",
			Details: map[string]any{"body": err.Error()},
		}
	}

	id := domain.Identity{
		LastName:  r.FormValue("lastName"),
		FirstName: r.FormValue("firstName"),
		Cohort:    r.FormValue("cohort"),
		Program:   r.FormValue("program"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Address:   r.FormValue("address"),
	}
	if v := strings.TrimSpace(r.FormValue("birthDate")); v != "" {
		var d openapi_types.Date
		if err := runtime.BindStringToObject(v, &d); err != nil {
			return members.RegisterInput{}, &members.Error{
				Status:  http.StatusUnprocessableEntity,
				Code:    members.CodeValidation,
				Message: "invalid birthDate",
				Details: map[string]any{"birthDate": "must be a YYYY-MM-DD date"},
			}
		}
		id.BirthDate = d.String()
	}

	in := members.RegisterInput{Identity: id}
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["photo"]; len(files) > 0 && files[0].Filename != "" {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				return members.RegisterInput{}, err
			}
			in.Photo = &members.PhotoUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        f,
			}
		}
	}
	return in, nil
}

func (s *Server) GetMemberStatus(w http.ResponseWriter, r *http.Request, memberNumber string) {
	m, err := s.Members.GetByNumber(r.Context(), domain.MemberNumber(memberNumber))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, oas.MemberStatusResponse{
		MemberNumber:  string(m.Number),
		Status:        oas.MemberStatus(m.Status),
		CardAvailable: m.CardAvailable(),
	})
}

func (s *Server) DownloadMemberCard(w http.ResponseWriter, r *http.Request, memberNumber string) {
	c, err := s.Members.OpenCard(r.Context(), domain.MemberNumber(memberNumber))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	defer c.Body.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": c.FileName}))
	if c.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(c.Info.Size, 10))
	}
	if c.Info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(c.Info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, c.Body); err != nil {
		s.Log.Warn("card download interrupted", zap.String("member_number", memberNumber), zap.Error(err))
	}
}

func (s *Server) AdminListMembers(w http.ResponseWriter, r *http.Request, params oas.AdminListMembersParams) {
	var f members.ListFilter
	if params.Status != nil {
		st, ok := domain.ParseStatus(string(*params.Status))
		if !ok {
			writeOASError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "invalid status filter",
				map[string]any{"status": "must be one of pending, approved, rejected, suspended"})
			return
		}
		f.Status = &st
	}
	if params.Q != nil {
		f.Query = *params.Q
	}
	ms, err := s.Members.List(r.Context(), f)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := make([]oas.Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, memberToOAS(m))
	}
	writeJSON(w, http.StatusOK, oas.MemberListResponse{Members: out})
}

func (s *Server) AdminGetMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	m, err := s.Members.Get(r.Context(), memberID(memberId))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, oas.MemberResponse{Member: memberToOAS(m)})
}

func (s *Server) AdminDeleteMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	if err := s.Members.Delete(r.Context(), memberID(memberId)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	s.audit(r, "delete", memberId)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AdminApproveMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	s.transition(w, r, "approve", memberId, func(ctx context.Context, id domain.MemberID, _ string) (domain.Member, error) {
		return s.Members.Approve(ctx, id)
	})
}

func (s *Server) AdminRejectMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	s.transition(w, r, "reject", memberId, s.Members.Reject)
}

func (s *Server) AdminSuspendMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	s.transition(w, r, "suspend", memberId, s.Members.Suspend)
}

func (s *Server) AdminReactivateMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	s.transition(w, r, "reactivate", memberId, func(ctx context.Context, id domain.MemberID, _ string) (domain.Member, error) {
		return s.Members.Reactivate(ctx, id)
	})
}

func (s *Server) AdminRegenerateCard(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID) {
	s.transition(w, r, "regenerate_card", memberId, func(ctx context.Context, id domain.MemberID, _ string) (domain.Member, error) {
		return s.Members.RegenerateCard(ctx, id)
	})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, action string, id openapi_types.UUID,
	op func(context.Context, domain.MemberID, string) (domain.Member, error)) {
	var body oas.ReasonRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeOASError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "invalid request body", map[string]any{"body": err.Error()})
			return
		}
	}
	m, err := op(r.Context(), memberID(id), body.Reason)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	s.audit(r, action, id)
	writeJSON(w, http.StatusOK, oas.MemberResponse{Member: memberToOAS(m)})
}

func (s *Server) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Members.Stats(r.Context())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	by := make(map[oas.MemberStatus]int, len(st.ByStatus))
	for _, status := range domain.Statuses {
		by[oas.MemberStatus(status)] = st.ByStatus[status]
	}
	writeJSON(w, http.StatusOK, oas.StatsResponse{Total: st.Total, Active: st.Active, ByStatus: by})
}

func (s *Server) audit(r *http.Request, action string, id openapi_types.UUID) {
	admin, _ := AdminFromContext(r.Context())
	s.Log.Info("admin action",
		zap.String("admin", string(admin)),
		zap.String("action", action),
		zap.String("member_id", id.String()))
}

func memberID(id openapi_types.UUID) domain.MemberID {
	return domain.MemberID(id.String())
}

func memberToOAS(m domain.Member) oas.Member {
	out := oas.Member{
		Id:            string(m.ID),
		MemberNumber:  string(m.Number),
		LastName:      m.LastName,
		FirstName:     m.FirstName,
		BirthDate:     m.BirthDate,
		Cohort:        m.Cohort,
		Program:       m.Program,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		Status:        oas.MemberStatus(m.Status),
		IsActive:      m.IsActive,
		HasPhoto:      m.PhotoRef != nil && *m.PhotoRef != "",
		CardAvailable: m.CardAvailable(),
		RegisteredAt:  m.RegisteredAt,

		RejectionReason:  nullable.NewNullNullable[string](),
		SuspensionReason: nullable.NewNullNullable[string](),
		DecidedAt:        nullable.NewNullNullable[time.Time](),
	}
	if m.RejectionReason != nil {
		out.RejectionReason = nullable.NewNullableWithValue(*m.RejectionReason)
	}
	if m.SuspensionReason != nil {
		out.SuspensionReason = nullable.NewNullableWithValue(*m.SuspensionReason)
	}
	if m.DecidedAt != nil {
		out.DecidedAt = nullable.NewNullableWithValue(*m.DecidedAt)
	}
	return out
}
