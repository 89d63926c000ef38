package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"internlink/internal/models"
)

func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestApplicationProbesAlternateFieldNames(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"_id":      "a1",
		"position": "Backend Intern",
		"state":    "Pending",
		"student": map[string]any{
			"email":      "rahul@uni.edu",
			"name":       "Rahul Verma",
			"university": "IIT Delhi",
		},
		"internship": map[string]any{
			"company": "Acme Labs",
			"stipend": float64(15000),
		},
	}
	app := Application(raw)

	if app.ID != "a1" {
		t.Fatalf("id = %q, want a1", app.ID)
	}
	if app.InternshipTitle != "Backend Intern" {
		t.Fatalf("title = %q", app.InternshipTitle)
	}
	if app.Status != models.ApplicationInReview {
		t.Fatalf("status = %q, want In Review", app.Status)
	}
	if app.StudentEmail != "rahul@uni.edu" || app.StudentName != "Rahul Verma" {
		t.Fatalf("student fields = %q / %q", app.StudentEmail, app.StudentName)
	}
	if app.University != "IIT Delhi" {
		t.Fatalf("university = %q", app.University)
	}
	if app.Company != "Acme Labs" {
		t.Fatalf("company = %q", app.Company)
	}
	if app.Stipend != "15000" {
		t.Fatalf("stipend = %q", app.Stipend)
	}
}

func TestApplicationUnwrapsWrapperObject(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"application": map[string]any{
			"id":     "a2",
			"title":  "Data Intern",
			"status": "Selected",
		},
	}
	app := Application(raw)
	if app.ID != "a2" || app.InternshipTitle != "Data Intern" || app.Status != models.ApplicationSelected {
		t.Fatalf("unwrapped application = %+v", app)
	}
}

func TestEmptyApplicationGetsDefaults(t *testing.T) {
	t.Parallel()

	app := Application(map[string]any{})
	if app.ID == "" {
		t.Fatal("empty record should get a generated id")
	}
	if app.Status != models.ApplicationInReview {
		t.Fatalf("status = %q, want In Review", app.Status)
	}
}

func TestApplicationNormalizationIsIdempotent(t *testing.T) {
	t.Parallel()

	once := Application(map[string]any{
		"jobId":    "i9",
		"position": "QA Intern",
		"email":    "s@uni.edu",
		"state":    "Pending",
		"salary":   "8000",
	})
	twice := Application(roundTrip(t, once))
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestInternshipTagsAcceptListAndCommaString(t *testing.T) {
	t.Parallel()

	fromList := Internship(map[string]any{
		"id":   "i1",
		"tags": []any{"Go", " SQL ", ""},
	})
	if !reflect.DeepEqual(fromList.Tags, []string{"Go", "SQL"}) {
		t.Fatalf("tags from list = %v", fromList.Tags)
	}

	fromString := Internship(map[string]any{
		"id":     "i2",
		"skills": "React, Python ,",
	})
	if !reflect.DeepEqual(fromString.Tags, []string{"React", "Python"}) {
		t.Fatalf("tags from string = %v", fromString.Tags)
	}

	bare := Internship(map[string]any{"id": "i3"})
	if bare.Tags == nil || len(bare.Tags) != 0 {
		t.Fatalf("missing tags should normalize to empty slice, got %v", bare.Tags)
	}
}

func TestInternshipStatusCanonicalized(t *testing.T) {
	t.Parallel()

	cases := map[string]models.InternshipStatus{
		"Pending":          models.InternshipPendingApproval,
		"Pending Approval": models.InternshipPendingApproval,
		"Active":           models.InternshipActive,
		"":                 models.InternshipPendingApproval,
		"Closed":           models.InternshipClosed,
	}
	for in, want := range cases {
		got := Internship(map[string]any{"id": "x", "status": in}).Status
		if got != want {
			t.Errorf("status %q -> %q, want %q", in, got, want)
		}
	}
}

func TestInternshipIdempotent(t *testing.T) {
	t.Parallel()

	once := Internship(map[string]any{
		"id":         "i4",
		"position":   "ML Intern",
		"salary":     float64(20000),
		"skills":     "Python,PyTorch",
		"applicants": float64(3),
		"status":     "Pending",
	})
	twice := Internship(roundTrip(t, once))
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestAccountDefaultsAndRoleFallback(t *testing.T) {
	t.Parallel()

	acct := Account(map[string]any{
		"user": map[string]any{
			"id":       "u1",
			"email":    "x@y.com",
			"userType": "chimera",
		},
	})
	if acct.UserType != models.RoleStudent {
		t.Fatalf("unknown role should fall back to student, got %q", acct.UserType)
	}
	if acct.Status != models.AccountActive {
		t.Fatalf("status = %q, want Active", acct.Status)
	}

	susp := Account(map[string]any{"id": "u2", "status": "Suspended", "role": "company"})
	if susp.Status != models.AccountSuspended || susp.UserType != models.RoleCompany {
		t.Fatalf("account = %+v", susp)
	}
}

func TestVerificationFallsBackToEmailID(t *testing.T) {
	t.Parallel()

	v := Verification(map[string]any{
		"companyName": "Acme Labs",
		"fullName":    "Priya N",
		"email":       "hr@acme.test",
	})
	if v.ID != "hr@acme.test" {
		t.Fatalf("id = %q, want email fallback", v.ID)
	}
	if v.Representative != "Priya N" {
		t.Fatalf("representative = %q", v.Representative)
	}
	if v.Status != models.VerificationPending {
		t.Fatalf("status = %q, want Pending Review", v.Status)
	}

	rejected := Verification(map[string]any{"id": "c1", "verificationStatus": "Rejected"})
	if rejected.Status != models.VerificationNone {
		t.Fatalf("rejected should map to Not Verified, got %q", rejected.Status)
	}
}

func TestResumeProbes(t *testing.T) {
	t.Parallel()

	r := Resume(map[string]any{
		"resume": map[string]any{
			"email":          "s@uni.edu",
			"fileName":       "cv.pdf",
			"storedFilename": "abc123.pdf",
			"url":            "/uploads/abc123.pdf",
		},
	})
	if r.Filename != "cv.pdf" || r.StoredFilename != "abc123.pdf" || r.URL != "/uploads/abc123.pdf" {
		t.Fatalf("resume = %+v", r)
	}
}
