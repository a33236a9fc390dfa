package itest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type registration struct {
	Id           string `json:"id"`
	MemberNumber string `json:"memberNumber"`
	Status       string `json:"status"`
}

type memberBody struct {
	Member struct {
		Id               string  `json:"id"`
		MemberNumber     string  `json:"memberNumber"`
		LastName         string  `json:"lastName"`
		Status           string  `json:"status"`
		HasPhoto         bool    `json:"hasPhoto"`
		CardAvailable    bool    `json:"cardAvailable"`
		RejectionReason  *string `json:"rejectionReason"`
		SuspensionReason *string `json:"suspensionReason"`
		DecidedAt        *string `json:"decidedAt"`
	} `json:"member"`
}

func registerWithPhoto(t *testing.T, srv *testServer, key string) registration {
	t.Helper()

	var photo bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x60, B: 0xa0, A: 0xff})
		}
	}
	if err := png.Encode(&photo, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"lastName":  "Sylla",
		"firstName": "Alioune",
		"birthDate": "2002-09-12",
		"cohort":    "2023",
		"program":   "Computer Science",
		"email":     "alioune.sylla@email.com",
		"phone":     "+221 77 330 7117",
	} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("photo", "portrait.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(photo.Bytes())
	_ = mw.Close()
	payload := body.Bytes()

	req, err := http.NewRequest(http.MethodPost, srv.url("/registrations"), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Idempotency-Key", key)
	status, out, _ := srv.do(t, req)
	if status != http.StatusCreated {
		t.Fatalf("status=%d want=%d body=%s", status, http.StatusCreated, string(out))
	}
	reg := mustUnmarshal[registration](t, out)

	// Same key and body replays the stored response.
	req, _ = http.NewRequest(http.MethodPost, srv.url("/registrations"), bytes.NewReader(payload))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Idempotency-Key", key)
	status, out, hdr := srv.do(t, req)
	if status != http.StatusCreated || hdr.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay status=%d headers=%v body=%s", status, hdr, string(out))
	}
	if again := mustUnmarshal[registration](t, out); again != reg {
		t.Fatalf("replay=%+v want=%+v", again, reg)
	}
	return reg
}

func TestMembers_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			const admin = "itest-admin"

			// Admin routes need an administrator.
			{
				status, body, hdr := srv.doJSON(t, http.MethodGet, "/admin/stats", "", nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
				requireHeaderPresent(t, hdr, "Content-Type")
			}

			reg := registerWithPhoto(t, srv, "itest-"+uuid.NewString())
			if reg.Status != "pending" || !strings.HasPrefix(reg.MemberNumber, "ALU-2025-") {
				t.Fatalf("registration=%+v", reg)
			}

			// Pending members have no card yet.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/card", "", nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "CARD_NOT_AVAILABLE")
			}

			// Approve renders the card.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/approve", admin, nil)
				if status != http.StatusOK {
					t.Fatalf("approve status=%d body=%s", status, string(body))
				}
				m := mustUnmarshal[memberBody](t, body).Member
				if m.Status != "approved" || !m.HasPhoto || !m.CardAvailable || m.DecidedAt == nil {
					t.Fatalf("approved=%s", string(body))
				}
			}

			// Public download.
			{
				req, _ := http.NewRequest(http.MethodGet, srv.url("/members/"+reg.MemberNumber+"/card"), nil)
				status, body, hdr := srv.do(t, req)
				if status != http.StatusOK {
					t.Fatalf("card status=%d body=%s", status, string(body))
				}
				if hdr.Get("Content-Type") != "image/png" || !strings.Contains(hdr.Get("Content-Disposition"), "card_"+reg.MemberNumber+".png") {
					t.Fatalf("card headers=%v", hdr)
				}
				img, err := png.Decode(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("png.Decode: %v", err)
				}
				if got := img.Bounds().Size(); got.X != 630 || got.Y != 1000 {
					t.Fatalf("card size=%v", got)
				}
			}

			// Approving twice is not a valid transition.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/approve", admin, nil)
				requireErrorCode(t, status, body, http.StatusConflict, "INVALID_TRANSITION")
			}

			// Suspend then reactivate.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/suspend", admin, map[string]any{"reason": "unpaid dues"})
				m := mustUnmarshal[memberBody](t, body).Member
				if status != http.StatusOK || m.Status != "suspended" || m.SuspensionReason == nil || *m.SuspensionReason != "unpaid dues" {
					t.Fatalf("suspend status=%d body=%s", status, string(body))
				}
				status, body, _ = srv.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/status", "", nil)
				if status != http.StatusOK || !strings.Contains(string(body), `"cardAvailable":false`) {
					t.Fatalf("status while suspended=%d body=%s", status, string(body))
				}
				status, body, _ = srv.doJSON(t, http.MethodPost, "/admin/members/"+reg.Id+"/reactivate", admin, nil)
				m = mustUnmarshal[memberBody](t, body).Member
				if status != http.StatusOK || m.Status != "approved" || m.SuspensionReason != nil || !m.CardAvailable {
					t.Fatalf("reactivate status=%d body=%s", status, string(body))
				}
			}

			// A second applicant is rejected with a reason.
			var other registration
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/registrations", "", map[string]any{
					"lastName":  "Ndiaye",
					"firstName": "Aminata",
					"email":     "aminata@email.com",
				})
				if status != http.StatusCreated {
					t.Fatalf("register status=%d body=%s", status, string(body))
				}
				other = mustUnmarshal[registration](t, body)
				status, body, _ = srv.doJSON(t, http.MethodPost, "/admin/members/"+other.Id+"/reject", admin, map[string]any{"reason": "incomplete payment"})
				m := mustUnmarshal[memberBody](t, body).Member
				if status != http.StatusOK || m.Status != "rejected" || m.RejectionReason == nil || *m.RejectionReason != "incomplete payment" {
					t.Fatalf("reject status=%d body=%s", status, string(body))
				}
			}

			// Listing by status.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/admin/members?status=rejected&q=ndiaye", admin, nil)
				if status != http.StatusOK || !strings.Contains(string(body), other.Id) || strings.Contains(string(body), reg.Id) {
					t.Fatalf("list status=%d body=%s", status, string(body))
				}
			}

			// Delete removes the record and its card.
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/admin/members/"+reg.Id, admin, nil)
				if status != http.StatusNoContent {
					t.Fatalf("delete status=%d body=%s", status, string(body))
				}
				status, body, _ = srv.doJSON(t, http.MethodGet, "/members/"+reg.MemberNumber+"/card", "", nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "MEMBER_NOT_FOUND")
			}

			kinds := srv.notified.Kinds()
			if len(kinds) == 0 || kinds[0] != "registration" {
				t.Fatalf("notifications=%v", kinds)
			}
		})
	}
}
