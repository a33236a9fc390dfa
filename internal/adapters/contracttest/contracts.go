package contracttest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alubilles/membership-api/internal/domain"
	blobport "github.com/alubilles/membership-api/internal/ports/out/blobstore"
	idempotencyport "github.com/alubilles/membership-api/internal/ports/out/idempotency"
	memberrepoport "github.com/alubilles/membership-api/internal/ports/out/memberrepo"
	sequenceport "github.com/alubilles/membership-api/internal/ports/out/sequence"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type SequencerFactory func(t *testing.T) (sequenceport.Sequencer, CleanupFunc)
type BlobStoreFactory func(t *testing.T) (blobport.Store, CleanupFunc)

// Suites may run against a shared database, so every key, number and search token
// they create is unique per run and assertions only look at their own rows.

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := idempotencyport.Key("k-" + uuid.NewString())
	fp := idempotencyport.Fingerprint{
		Key:      key,
		Method:   "POST",
		Route:    "/registrations",
		BodyHash: "hash-abc",
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"memberNumber":"ALU-2024-0001"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.FindByKey(ctx, key, fp.Method, fp.Route); err != nil || ok {
		t.Fatalf("FindByKey before Put: ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != string(rec.Body) || got.ContentType != rec.ContentType || got.StatusCode != rec.StatusCode {
		t.Fatalf("unexpected record: %+v", got)
	}

	found, ok, err := store.FindByKey(ctx, key, fp.Method, fp.Route)
	if err != nil || !ok {
		t.Fatalf("FindByKey: ok=%v err=%v", ok, err)
	}
	if found.BodyHash != fp.BodyHash {
		t.Fatalf("FindByKey().BodyHash=%q, want %q", found.BodyHash, fp.BodyHash)
	}

	// First write wins for a given key+method+route.
	other := fp
	other.BodyHash = "hash-def"
	if err := store.Put(ctx, other, idempotencyport.Record{StatusCode: 201, Body: []byte("other")}); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	found, _, err = store.FindByKey(ctx, key, fp.Method, fp.Route)
	if err != nil || found.BodyHash != fp.BodyHash {
		t.Fatalf("expected first fingerprint to win, got %+v err=%v", found, err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != string(rec.Body) {
		t.Fatalf("expected original record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Same key on another route is independent.
	if _, ok, err := store.FindByKey(ctx, key, "POST", "/other"); err != nil || ok {
		t.Fatalf("FindByKey other route: ok=%v err=%v", ok, err)
	}
}

func RunSequencer(t *testing.T, newSeq SequencerFactory) {
	t.Helper()
	ctx := context.Background()

	seq, cleanup := newSeq(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	scopeA := "member_number:test-" + uuid.NewString()
	scopeB := "member_number:test-" + uuid.NewString()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, scopeA)
		if err != nil {
			t.Fatalf("Next(a): %v", err)
		}
		if got != want {
			t.Fatalf("Next(a)=%d, want %d", got, want)
		}
	}
	if got, err := seq.Next(ctx, scopeB); err != nil || got != 1 {
		t.Fatalf("Next(b)=%d err=%v, want 1", got, err)
	}

	// Concurrent callers never observe the same value.
	scopeC := "member_number:test-" + uuid.NewString()
	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(ctx, scopeC)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[v] = true
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("concurrent Next: %v", errs[0])
	}
	if len(seen) != n {
		t.Fatalf("concurrent Next produced %d distinct values, want %d", len(seen), n)
	}
	for v := int64(1); v <= n; v++ {
		if !seen[v] {
			t.Fatalf("concurrent Next skipped %d", v)
		}
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	tag := uuid.NewString()[:8]
	number := func(i int) domain.MemberNumber {
		return domain.MemberNumber("T" + tag + "-" + string(rune('0'+i)))
	}
	base := time.Unix(1_700_000_000, 0).UTC()

	before, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	aID := domain.MemberID(uuid.NewString())
	photo := "photos/" + string(aID) + ".png"
	a := memberrepoport.Member{
		ID:           aID,
		Number:       number(1),
		LastName:     "Zulu" + tag,
		FirstName:    "Awa",
		BirthDate:    "1990-01-02",
		Cohort:       "2015",
		Program:      "Informatique",
		Email:        "awa@example.com",
		Phone:        "+221 77 000 00 00",
		Address:      "Dakar",
		PhotoRef:     &photo,
		Status:       domain.StatusPending,
		IsActive:     true,
		RegisteredAt: base,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Number != a.Number || got.LastName != a.LastName || got.Email != a.Email || got.Status != domain.StatusPending {
		t.Fatalf("GetByID()=%+v, want %+v", got, a)
	}
	if got.PhotoRef == nil || *got.PhotoRef != photo || got.CardRef != nil || got.DecidedAt != nil {
		t.Fatalf("GetByID() refs=%v/%v decidedAt=%v", got.PhotoRef, got.CardRef, got.DecidedAt)
	}
	if !got.RegisteredAt.Equal(base) {
		t.Fatalf("GetByID().RegisteredAt=%v, want %v", got.RegisteredAt, base)
	}
	if byNum, err := repo.GetByNumber(ctx, a.Number); err != nil || byNum.ID != aID {
		t.Fatalf("GetByNumber: id=%q err=%v", byNum.ID, err)
	}
	if _, err := repo.GetByID(ctx, domain.MemberID(uuid.NewString())); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID(missing) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByNumber(ctx, number(9)); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByNumber(missing) err=%v, want ErrNotFound", err)
	}

	// Member number uniqueness.
	dup := a
	dup.ID = domain.MemberID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, memberrepoport.ErrMemberNumberTaken) {
		t.Fatalf("Create(duplicate number) err=%v, want ErrMemberNumberTaken", err)
	}

	bID := domain.MemberID(uuid.NewString())
	b := memberrepoport.Member{
		ID: bID, Number: number(2), LastName: "alpha" + tag, FirstName: "Binta",
		Status: domain.StatusPending, IsActive: true, RegisteredAt: base.Add(time.Minute),
	}
	cID := domain.MemberID(uuid.NewString())
	c := memberrepoport.Member{
		ID: cID, Number: number(3), LastName: "Alpha" + tag, FirstName: "aminata",
		Status: domain.StatusPending, IsActive: true, RegisteredAt: base.Add(2 * time.Minute),
	}
	for _, m := range []memberrepoport.Member{b, c} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create %s: %v", m.ID, err)
		}
	}

	pending, err := repo.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus(pending): %v", err)
	}
	assertOrder(t, "ListByStatus(pending)", pending, aID, bID, cID)

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	assertOrder(t, "List", all, cID, bID, aID)

	// Decide a then b; approved list is newest decision first.
	decidedA := base.Add(time.Hour)
	card := "cards/card_" + string(a.Number) + ".png"
	a.Status = domain.StatusApproved
	a.DecidedAt = &decidedA
	a.CardRef = &card
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update a: %v", err)
	}
	decidedB := base.Add(2 * time.Hour)
	b.Status = domain.StatusApproved
	b.DecidedAt = &decidedB
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("Update b: %v", err)
	}
	approved, err := repo.ListByStatus(ctx, domain.StatusApproved)
	if err != nil {
		t.Fatalf("ListByStatus(approved): %v", err)
	}
	assertOrder(t, "ListByStatus(approved)", approved, bID, aID)

	got, err = repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.CardRef == nil || *got.CardRef != card || got.DecidedAt == nil || !got.DecidedAt.Equal(decidedA) {
		t.Fatalf("GetByID() after update cardRef=%v decidedAt=%v", got.CardRef, got.DecidedAt)
	}

	reason := "incomplete file"
	c.Status = domain.StatusRejected
	c.RejectionReason = &reason
	c.IsActive = false
	decidedC := base.Add(3 * time.Hour)
	c.DecidedAt = &decidedC
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update c: %v", err)
	}
	got, err = repo.GetByID(ctx, cID)
	if err != nil || got.RejectionReason == nil || *got.RejectionReason != reason {
		t.Fatalf("GetByID(c) reason=%v err=%v", got.RejectionReason, err)
	}

	if err := repo.Update(ctx, memberrepoport.Member{ID: domain.MemberID(uuid.NewString()), Number: number(8)}); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Update(missing) err=%v, want ErrNotFound", err)
	}

	// Search: case-insensitive substring, ordered by last name, first name, id.
	res, err := repo.Search(ctx, "ALPHA"+tag, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	assertOrder(t, "Search(alpha)", res, cID, bID)
	if len(own(res, aID, bID, cID)) != 2 {
		t.Fatalf("Search(alpha) matched %d own rows, want 2", len(own(res, aID, bID, cID)))
	}

	approvedStatus := domain.StatusApproved
	res, err = repo.Search(ctx, tag, &approvedStatus)
	if err != nil {
		t.Fatalf("Search(status): %v", err)
	}
	if ids := own(res, aID, bID, cID); len(ids) != 2 || ids[0] != bID || ids[1] != aID {
		t.Fatalf("Search(tag, approved)=%v, want [%s %s]", ids, bID, aID)
	}

	res, err = repo.Search(ctx, string(number(1)), nil)
	if err != nil {
		t.Fatalf("Search(number): %v", err)
	}
	if ids := own(res, aID, bID, cID); len(ids) != 1 || ids[0] != aID {
		t.Fatalf("Search(number)=%v, want [%s]", ids, aID)
	}

	after, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if after.Total-before.Total != 3 {
		t.Fatalf("Stats total delta=%d, want 3", after.Total-before.Total)
	}
	if after.Active-before.Active != 2 {
		t.Fatalf("Stats active delta=%d, want 2", after.Active-before.Active)
	}
	if d := after.ByStatus[domain.StatusApproved] - before.ByStatus[domain.StatusApproved]; d != 2 {
		t.Fatalf("Stats approved delta=%d, want 2", d)
	}
	if d := after.ByStatus[domain.StatusRejected] - before.ByStatus[domain.StatusRejected]; d != 1 {
		t.Fatalf("Stats rejected delta=%d, want 1", d)
	}

	// Search folds non-ASCII letters too.
	dID := domain.MemberID(uuid.NewString())
	eID := domain.MemberID(uuid.NewString())
	for _, m := range []memberrepoport.Member{
		{ID: dID, Number: number(4), LastName: "Émile" + tag, FirstName: "Zoé", Status: domain.StatusPending, IsActive: true, RegisteredAt: base.Add(4 * time.Minute)},
		{ID: eID, Number: number(5), LastName: "émile" + tag, FirstName: "Aïssata", Status: domain.StatusPending, IsActive: true, RegisteredAt: base.Add(5 * time.Minute)},
	} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create %s: %v", m.LastName, err)
		}
	}
	for _, q := range []string{"émile" + tag, "ÉMILE" + tag, "Émile" + tag} {
		res, err := repo.Search(ctx, q, nil)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if ids := own(res, dID, eID); len(ids) != 2 || ids[0] != eID || ids[1] != dID {
			t.Fatalf("Search(%q)=%v, want [%s %s]", q, ids, eID, dID)
		}
	}
	res, err = repo.Search(ctx, "ZOÉ", nil)
	if err != nil {
		t.Fatalf("Search(ZOÉ): %v", err)
	}
	if ids := own(res, dID, eID); len(ids) != 1 || ids[0] != dID {
		t.Fatalf("Search(ZOÉ)=%v, want [%s]", ids, dID)
	}
	for _, id := range []domain.MemberID{dID, eID} {
		if err := repo.Delete(ctx, id); err != nil {
			t.Fatalf("Delete(%s): %v", id, err)
		}
	}

	// Delete frees the row and its number.
	if err := repo.Delete(ctx, cID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, cID); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID(deleted) err=%v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, cID); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Delete(deleted) err=%v, want ErrNotFound", err)
	}
}

func RunBlobStore(t *testing.T, newStore BlobStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := "cards/card_T-" + uuid.NewString()[:8] + ".png"

	if _, err := store.Head(ctx, key); !errors.Is(err, blobport.ErrNotFound) {
		t.Fatalf("Head(missing) err=%v, want ErrNotFound", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, blobport.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want ErrNotFound", err)
	}

	first := []byte("first-version")
	info, err := store.Put(ctx, key, bytes.NewReader(first), blobport.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"member": "T-1"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Key != key || info.Size != int64(len(first)) {
		t.Fatalf("Put() info=%+v", info)
	}

	head, err := store.Head(ctx, key)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Size != int64(len(first)) || head.ContentType != "image/png" {
		t.Fatalf("Head()=%+v", head)
	}

	// Overwrite replaces content.
	second := []byte("second-version-longer")
	if _, err := store.Put(ctx, key, bytes.NewReader(second), blobport.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(body, second) {
		t.Fatalf("Get() body=%q, want %q", body, second)
	}

	existed, err := store.Delete(ctx, key)
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, key)
	if err != nil || existed {
		t.Fatalf("Delete(again): existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, blobport.ErrNotFound) {
		t.Fatalf("Head(deleted) err=%v, want ErrNotFound", err)
	}
}

// own filters ms down to the given ids, preserving order.
func own(ms []memberrepoport.Member, ids ...domain.MemberID) []domain.MemberID {
	want := make(map[domain.MemberID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]domain.MemberID, 0, len(ids))
	for _, m := range ms {
		if want[m.ID] {
			out = append(out, m.ID)
		}
	}
	return out
}

func assertOrder(t *testing.T, label string, ms []memberrepoport.Member, ids ...domain.MemberID) {
	t.Helper()
	got := own(ms, ids...)
	if len(got) != len(ids) {
		t.Fatalf("%s: found %d of %d rows: %v", label, len(got), len(ids), got)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("%s order=%v, want %v", label, got, ids)
		}
	}
}
