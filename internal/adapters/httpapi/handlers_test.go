package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alubilles/membership-api/internal/adapters/httpapi/oas"
	memblob "github.com/alubilles/membership-api/internal/adapters/memory/blobstore"
	memclock "github.com/alubilles/membership-api/internal/adapters/memory/clock"
	memidempotency "github.com/alubilles/membership-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/alubilles/membership-api/internal/adapters/memory/memberrepo"
	memnotifier "github.com/alubilles/membership-api/internal/adapters/memory/notifier"
	memsequence "github.com/alubilles/membership-api/internal/adapters/memory/sequence"
	"github.com/alubilles/membership-api/internal/app/cards"
	"github.com/alubilles/membership-api/internal/app/membernumber"
	"github.com/alubilles/membership-api/internal/app/members"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/render/card"
)

type testAPI struct {
	h     http.Handler
	rec   *memnotifier.Recorder
	blobs *memblob.Store
}

func newTestRouter(t *testing.T, opts RouterOptions) testAPI {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC))
	blobs := memblob.NewStore()
	rec := memnotifier.NewRecorder()
	r, err := card.New(card.TemplateSpec{}, card.NewFontResolver(nil, card.GoFontSource{}), card.Options{})
	if err != nil {
		t.Fatalf("card.New() err=%v", err)
	}
	m := metrics.New()
	svc := members.NewService(members.Deps{
		Repo:     memmemberrepo.NewRepo(),
		Numbers:  membernumber.NewAllocator(memsequence.NewSequencer(), clk, "ALU"),
		Blobs:    blobs,
		Cards:    cards.NewIssuer(r, blobs, nil, m),
		Notifier: rec,
		Clock:    clk,
		Metrics:  m,
	})
	api := NewServer(svc, memidempotency.NewStore(), nil)
	if opts.AdminMiddleware == nil {
		opts.AdminMiddleware = NewDevAuthMiddleware("")
	}
	opts.Metrics = m
	return testAPI{h: NewRouterWithOptions(api, opts), rec: rec, blobs: blobs}
}

func (a testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

func (a testAPI) doJSON(t *testing.T, method, path string, admin string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin != "" {
		req.Header.Set("X-Debug-Admin", admin)
	}
	return a.do(t, req)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, rr.Body.String())
	}
	return out
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) oas.ErrorResponse {
	t.Helper()
	if rr.Code != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", rr.Code, wantStatus, rr.Body.String())
	}
	er := decode[oas.ErrorResponse](t, rr)
	if er.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", er.Error.Code, wantCode, rr.Body.String())
	}
	if !er.Error.RequestId.IsSpecified() {
		t.Fatalf("missing requestId: %s", rr.Body.String())
	}
	return er
}

func register(t *testing.T, a testAPI, first, last string) oas.RegistrationResponse {
	t.Helper()
	rr := a.doJSON(t, http.MethodPost, "/registrations", "", map[string]any{
		"lastName":  last,
		"firstName": first,
		"birthDate": "2002-09-12",
		"email":     strings.ToLower(first) + "@email.com",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decode[oas.RegistrationResponse](t, rr)
}

func TestHealthzAndMetrics(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	if rr := a.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	register(t, a, "Alioune", "Sylla")

	rr := a.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`membership_http_requests_total{code="201",method="POST",route="/registrations"} 1`,
		`membership_registrations_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestRegister_JSON(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	got := register(t, a, "Alioune", "Sylla")
	if got.MemberNumber != "ALU-2025-0001" || got.Status != oas.MemberStatusPending || got.Id == "" {
		t.Fatalf("resp=%+v", got)
	}
	if kinds := a.rec.Kinds(); len(kinds) != 1 {
		t.Fatalf("kinds=%v, want only the member registration mail", kinds)
	}
}

func TestRegister_Multipart(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})

	var photo bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.Black)
	if err := png.Encode(&photo, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("lastName", "Ndiaye")
	_ = mw.WriteField("firstName", "Aminata")
	_ = mw.WriteField("birthDate", "2001-02-03")
	fw, err := mw.CreateFormFile("photo", "me.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(photo.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/registrations", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := a.do(t, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	reg := decode[oas.RegistrationResponse](t, rr)

	rr = a.doJSON(t, http.MethodGet, "/admin/members/"+reg.Id, "admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}
	m := decode[oas.MemberResponse](t, rr).Member
	if !m.HasPhoto || m.BirthDate != "2001-02-03" || m.LastName != "Ndiaye" {
		t.Fatalf("member=%+v", m)
	}
	if !m.DecidedAt.IsNull() || !m.RejectionReason.IsNull() {
		t.Fatalf("pending member should carry explicit nulls: %s", rr.Body.String())
	}
}

func TestRegister_Errors(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})

	rr := a.doJSON(t, http.MethodPost, "/registrations", "", map[string]any{"lastName": "", "firstName": "Aminata"})
	er := requireError(t, rr, http.StatusUnprocessableEntity, members.CodeValidation)
	details, _ := er.Error.Details.Get()
	if _, ok := details["lastName"]; !ok {
		t.Fatalf("details=%v", details)
	}

	rr = a.doJSON(t, http.MethodPost, "/registrations", "", map[string]any{"lastName": "Sylla", "firstName": "Alioune", "birthDate": "12/09/2002"})
	requireError(t, rr, http.StatusUnprocessableEntity, members.CodeValidation)

	req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader("lastName=Sylla"))
	req.Header.Set("Content-Type", "text/plain")
	requireError(t, a.do(t, req), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
}

func TestRegister_Idempotency(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	send := func(key string, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		return a.do(t, req)
	}

	const body = `{"lastName":"Sylla","firstName":"Alioune"}`
	first := send("k-1", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status=%d body=%s", first.Code, first.Body.String())
	}
	again := send("k-1", body)
	if again.Code != http.StatusCreated || again.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay status=%d headers=%v", again.Code, again.Header())
	}
	if strings.TrimSpace(again.Body.String()) != strings.TrimSpace(first.Body.String()) {
		t.Fatalf("replay body=%s want=%s", again.Body.String(), first.Body.String())
	}

	requireError(t, send("k-1", `{"lastName":"Diop","firstName":"Moussa"}`), http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	other := send("k-2", body)
	if decode[oas.RegistrationResponse](t, other).MemberNumber != "ALU-2025-0002" {
		t.Fatalf("new key should register again: %s", other.Body.String())
	}
}

func TestRegister_RateLimited(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{RegistrationLimiter: NewRateLimiter(1, 1)})
	register(t, a, "Alioune", "Sylla")
	rr := a.doJSON(t, http.MethodPost, "/registrations", "", map[string]any{"lastName": "Diop", "firstName": "Moussa"})
	requireError(t, rr, http.StatusTooManyRequests, "RATE_LIMITED")

	// Other routes are not throttled.
	if rr := a.doJSON(t, http.MethodGet, "/members/ALU-2025-0001/status", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("status route=%d", rr.Code)
	}
}

func TestLifecycleAndCardDownload(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	reg := register(t, a, "Alioune", "Sylla")

	rr := a.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/status", "", nil)
	st := decode[oas.MemberStatusResponse](t, rr)
	if st.Status != oas.MemberStatusPending || st.CardAvailable {
		t.Fatalf("status=%+v", st)
	}
	requireError(t, a.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/card", "", nil), http.StatusNotFound, members.CodeCardNotAvailable)

	rr = a.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/approve", "admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve status=%d body=%s", rr.Code, rr.Body.String())
	}
	m := decode[oas.MemberResponse](t, rr).Member
	if m.Status != oas.MemberStatusApproved || !m.CardAvailable || !m.DecidedAt.IsSpecified() || m.DecidedAt.IsNull() {
		t.Fatalf("approved=%+v", m)
	}

	rr = a.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/card", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("card status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=card_ALU-2025-0001.png" {
		t.Fatalf("content-disposition=%q", cd)
	}
	if _, err := png.Decode(rr.Body); err != nil {
		t.Fatalf("card is not a PNG: %v", err)
	}

	rr = a.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/suspend", "admin", oas.ReasonRequest{Reason: "unpaid dues"})
	m = decode[oas.MemberResponse](t, rr).Member
	if reason, _ := m.SuspensionReason.Get(); m.Status != oas.MemberStatusSuspended || reason != "unpaid dues" || m.CardAvailable {
		t.Fatalf("suspended=%+v", m)
	}
	requireError(t, a.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/card", "", nil), http.StatusNotFound, members.CodeCardNotAvailable)

	requireError(t, a.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/approve", "admin", nil), http.StatusConflict, members.CodeInvalidTransition)

	rr = a.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/reactivate", "admin", nil)
	if m = decode[oas.MemberResponse](t, rr).Member; m.Status != oas.MemberStatusApproved || !m.SuspensionReason.IsNull() {
		t.Fatalf("reactivated=%s", rr.Body.String())
	}

	rr = a.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/card", "admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("regenerate status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAdmin_RejectListStatsDelete(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	alioune := register(t, a, "Alioune", "Sylla")
	aminata := register(t, a, "Aminata", "Ndiaye")

	rr := a.doJSON(t, http.MethodPost, "/admin/members/"+aminata.Id+"/reject", "admin", oas.ReasonRequest{Reason: "incomplete payment"})
	m := decode[oas.MemberResponse](t, rr).Member
	if reason, _ := m.RejectionReason.Get(); m.Status != oas.MemberStatusRejected || reason != "incomplete payment" {
		t.Fatalf("rejected=%s", rr.Body.String())
	}

	rr = a.doJSON(t, http.MethodGet, "/admin/members?status=pending", "admin", nil)
	list := decode[oas.MemberListResponse](t, rr).Members
	if len(list) != 1 || list[0].Id != alioune.Id {
		t.Fatalf("pending=%s", rr.Body.String())
	}
	rr = a.doJSON(t, http.MethodGet, "/admin/members?q=NDIA", "admin", nil)
	list = decode[oas.MemberListResponse](t, rr).Members
	if len(list) != 1 || list[0].Id != aminata.Id {
		t.Fatalf("search=%s", rr.Body.String())
	}
	requireError(t, a.doJSON(t, http.MethodGet, "/admin/members?status=archived", "admin", nil), http.StatusUnprocessableEntity, members.CodeValidation)

	rr = a.doJSON(t, http.MethodGet, "/admin/stats", "admin", nil)
	st := decode[oas.StatsResponse](t, rr)
	if st.Total != 2 || st.Active != 2 || st.ByStatus[oas.MemberStatusPending] != 1 || st.ByStatus[oas.MemberStatusRejected] != 1 {
		t.Fatalf("stats=%s", rr.Body.String())
	}

	if rr := a.doJSON(t, http.MethodDelete, "/admin/members/"+aminata.Id, "admin", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	requireError(t, a.doJSON(t, http.MethodGet, "/admin/members/"+aminata.Id, "admin", nil), http.StatusNotFound, members.CodeMemberNotFound)
}

func TestAdmin_AuthAndParams(t *testing.T) {
	t.Parallel()

	a := newTestRouter(t, RouterOptions{})
	requireError(t, a.doJSON(t, http.MethodGet, "/admin/stats", "", nil), http.StatusUnauthorized, "UNAUTHORIZED")
	requireError(t, a.doJSON(t, http.MethodGet, "/admin/members/not-a-uuid", "admin", nil), http.StatusBadRequest, "INVALID_PARAMETER")
	requireError(t, a.doJSON(t, http.MethodGet, "/admin/members/6f1c1a52-8f3e-4d55-9a55-2f0b6d1c1a11", "admin", nil), http.StatusNotFound, members.CodeMemberNotFound)
	requireError(t, a.doJSON(t, http.MethodGet, "/members/ALU-2025-9999/status", "", nil), http.StatusNotFound, members.CodeMemberNotFound)
}

func TestAdmin_LockedWithoutMiddleware(t *testing.T) {
	t.Parallel()

	h := NewRouter(NewServer(nil, nil, nil))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-Debug-Admin", "admin")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}
