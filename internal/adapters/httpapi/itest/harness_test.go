package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alubilles/membership-api/internal/adapters/httpapi"
	fsblob "github.com/alubilles/membership-api/internal/adapters/filesystem/blobstore"
	memblob "github.com/alubilles/membership-api/internal/adapters/memory/blobstore"
	memclock "github.com/alubilles/membership-api/internal/adapters/memory/clock"
	memidempotency "github.com/alubilles/membership-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/alubilles/membership-api/internal/adapters/memory/memberrepo"
	memnotifier "github.com/alubilles/membership-api/internal/adapters/memory/notifier"
	memsequence "github.com/alubilles/membership-api/internal/adapters/memory/sequence"
	pgidempotency "github.com/alubilles/membership-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/alubilles/membership-api/internal/adapters/postgres/memberrepo"
	pgsequence "github.com/alubilles/membership-api/internal/adapters/postgres/sequence"
	postgres_testutil "github.com/alubilles/membership-api/internal/adapters/postgres/testutil"
	"github.com/alubilles/membership-api/internal/adapters/sqlite"
	sqliteidempotency "github.com/alubilles/membership-api/internal/adapters/sqlite/idempotency"
	sqlitememberrepo "github.com/alubilles/membership-api/internal/adapters/sqlite/memberrepo"
	sqlitesequence "github.com/alubilles/membership-api/internal/adapters/sqlite/sequence"
	"github.com/alubilles/membership-api/internal/app/cards"
	"github.com/alubilles/membership-api/internal/app/membernumber"
	"github.com/alubilles/membership-api/internal/app/members"
	blobport "github.com/alubilles/membership-api/internal/ports/out/blobstore"
	idempotencyport "github.com/alubilles/membership-api/internal/ports/out/idempotency"
	memberrepoport "github.com/alubilles/membership-api/internal/ports/out/memberrepo"
	sequenceport "github.com/alubilles/membership-api/internal/ports/out/sequence"
	"github.com/alubilles/membership-api/internal/render/card"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendSQLite   backend = "sqlite"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "sqlite":
		return []backend{backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|sqlite|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL  string
	client   *http.Client
	notified *memnotifier.Recorder
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC))

	var (
		memberRepo memberrepoport.Repository
		seq        sequenceport.Sequencer
		idemStore  idempotencyport.Store
		blobs      blobport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		memberRepo = pgmemberrepo.NewRepo(pool)
		seq = pgsequence.NewSequencer(pool)
		idemStore = pgidempotency.NewStore(pool)
		blobs = memblob.NewStore()
	case backendSQLite:
		dir := t.TempDir()
		db, err := sqlite.Open(context.Background(), filepath.Join(dir, "membership.db"))
		if err != nil {
			t.Fatalf("sqlite.Open() err=%v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		memberRepo = sqlitememberrepo.NewRepo(db)
		seq = sqlitesequence.NewSequencer(db)
		idemStore = sqliteidempotency.NewStore(db)
		fs, err := fsblob.New(filepath.Join(dir, "blobs"))
		if err != nil {
			t.Fatalf("fsblob.New() err=%v", err)
		}
		blobs = fs
	case backendMemory:
		memberRepo = memmemberrepo.NewRepo()
		seq = memsequence.NewSequencer()
		idemStore = memidempotency.NewStore()
		blobs = memblob.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	renderer, err := card.New(card.TemplateSpec{}, card.NewFontResolver(nil, card.GoFontSource{}), card.Options{})
	if err != nil {
		t.Fatalf("card.New() err=%v", err)
	}
	rec := memnotifier.NewRecorder()
	memberSvc := members.NewService(members.Deps{
		Repo:     memberRepo,
		Numbers:  membernumber.NewAllocator(seq, clk, "ALU"),
		Blobs:    blobs,
		Cards:    cards.NewIssuer(renderer, blobs, nil, nil),
		Notifier: rec,
		Clock:    clk,
	})
	memberSvc.AdminEmail = "board@alubilles.org"
	api := httpapi.NewServer(memberSvc, idemStore, nil)

	// Empty default administrator: admin requests must carry X-Debug-Admin.
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AdminMiddleware: httpapi.NewDevAuthMiddleware("")})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:  srv.URL,
		client:   srv.Client(),
		notified: rec,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, []byte, http.Header) {
	t.Helper()
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

func (s *testServer) doJSON(t *testing.T, method string, path string, admin string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if admin != "" {
		req.Header.Set("X-Debug-Admin", admin)
	}
	return s.do(t, req)
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
