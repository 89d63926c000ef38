package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"internlink/internal/config"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		DBDriver:          "sqlite",
		DBPath:            filepath.Join(dir, "app.db"),
		DBMaxOpenConns:    1,
		DBMaxIdleConns:    1,
		DBConnMaxLifetime: time.Minute,
		UploadsDir:        filepath.Join(dir, "uploads"),
	}
	store, err := OpenStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.ApplyMigrationFile(filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRouter(cfg, store)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestSignupLoginRoundTrip(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, "POST", "/api/users", map[string]any{
		"fullName": "Rahul Verma",
		"email":    "rahul@uni.edu",
		"password": "pass-123",
		"userType": "student",
	})
	if rec.Code != 201 {
		t.Fatalf("signup status = %d body=%s", rec.Code, rec.Body.String())
	}

	dup := doJSON(t, h, "POST", "/api/users", map[string]any{
		"email": "rahul@uni.edu", "password": "x", "userType": "student",
	})
	if dup.Code != 409 {
		t.Fatalf("duplicate signup status = %d", dup.Code)
	}
	if msg := decode(t, dup)["msg"]; msg != "Email already registered" {
		t.Fatalf("duplicate msg = %v", msg)
	}

	login := doJSON(t, h, "POST", "/api/login", map[string]any{
		"email": "rahul@uni.edu", "password": "pass-123", "userType": "student",
	})
	if login.Code != 200 {
		t.Fatalf("login status = %d body=%s", login.Code, login.Body.String())
	}
	user := decode(t, login)["user"].(map[string]any)
	if user["password"] != nil {
		t.Fatal("login response must not leak password hash")
	}
	if user["id"] == "" || user["id"] == nil {
		t.Fatal("login response missing id")
	}

	bad := doJSON(t, h, "POST", "/api/login", map[string]any{
		"email": "rahul@uni.edu", "password": "wrong", "userType": "student",
	})
	if bad.Code != 401 {
		t.Fatalf("bad login status = %d", bad.Code)
	}
}

func TestCompanySignupGoesToCompaniesCollection(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, "POST", "/api/users", map[string]any{
		"companyName": "Acme Labs",
		"email":       "hr@acme.test",
		"password":    "pw",
		"userType":    "company",
	})
	if rec.Code != 201 {
		t.Fatalf("signup status = %d", rec.Code)
	}

	// Login as student with the same email must miss the companies table.
	miss := doJSON(t, h, "POST", "/api/login", map[string]any{
		"email": "hr@acme.test", "password": "pw", "userType": "student",
	})
	if miss.Code != 401 {
		t.Fatalf("cross-collection login status = %d", miss.Code)
	}
	hit := doJSON(t, h, "POST", "/api/login", map[string]any{
		"email": "hr@acme.test", "password": "pw", "userType": "company",
	})
	if hit.Code != 200 {
		t.Fatalf("company login status = %d", hit.Code)
	}

	byEmail := doJSON(t, h, "GET", "/api/companies/by-email?email=hr%40acme.test", nil)
	if byEmail.Code != 200 {
		t.Fatalf("companies/by-email status = %d", byEmail.Code)
	}
}

func createInternship(t *testing.T, h http.Handler, title, company, email string) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/internships", map[string]any{
		"title":        title,
		"company":      company,
		"companyEmail": email,
		"stipend":      "10000",
		"tags":         []string{"Go", "SQL"},
		"status":       "Pending Approval",
	})
	if rec.Code != 201 {
		t.Fatalf("create internship status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)["internship"].(map[string]any)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created internship missing id")
	}
	return id
}

func TestInternshipLifecycle(t *testing.T) {
	h := newTestRouter(t)
	id := createInternship(t, h, "Backend Intern", "Acme Labs", "hr@acme.test")

	if rec := doJSON(t, h, "POST", "/api/internships/"+id+"/approve", nil); rec.Code != 200 {
		t.Fatalf("approve status = %d", rec.Code)
	}
	list := decode(t, doJSON(t, h, "GET", "/api/internships?company=Acme+Labs", nil))
	items := list["internships"].([]any)
	if len(items) != 1 {
		t.Fatalf("company list size = %d", len(items))
	}
	if st := items[0].(map[string]any)["status"]; st != "Active" {
		t.Fatalf("status after approve = %v", st)
	}

	up := doJSON(t, h, "PUT", "/api/internships/"+id, map[string]any{
		"stipend": "12000",
		"ignored": "nope",
	})
	if up.Code != 200 {
		t.Fatalf("update status = %d", up.Code)
	}
	updated := decode(t, up)["internship"].(map[string]any)
	if updated["stipend"] != "12000" {
		t.Fatalf("stipend = %v", updated["stipend"])
	}
	if _, ok := updated["ignored"]; ok {
		t.Fatal("update must drop disallowed fields")
	}

	if rec := doJSON(t, h, "PUT", "/api/internships/"+id, map[string]any{"bogus": 1}); rec.Code != 400 {
		t.Fatalf("empty update status = %d", rec.Code)
	}

	if rec := doJSON(t, h, "DELETE", "/api/internships/"+id, nil); rec.Code != 200 {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, h, "DELETE", "/api/internships/"+id, nil); rec.Code != 404 {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestSearchMatchesTitleCompanyAndTags(t *testing.T) {
	h := newTestRouter(t)
	createInternship(t, h, "Backend Intern", "Acme Labs", "hr@acme.test")
	createInternship(t, h, "Design Intern", "Pixel Co", "hi@pixel.test")

	byTag := decode(t, doJSON(t, h, "GET", "/api/internships?q=sql", nil))
	if n := len(byTag["internships"].([]any)); n != 1 {
		t.Fatalf("tag search hits = %d", n)
	}
	byCompany := decode(t, doJSON(t, h, "GET", "/api/internships?q=pixel", nil))
	if n := len(byCompany["internships"].([]any)); n != 1 {
		t.Fatalf("company search hits = %d", n)
	}
	none := decode(t, doJSON(t, h, "GET", "/api/internships?q=zzz", nil))
	if n := len(none["internships"].([]any)); n != 0 {
		t.Fatalf("no-hit search hits = %d", n)
	}
}

func TestApplicationEmbedsSnapshotAndEnrichesStudent(t *testing.T) {
	h := newTestRouter(t)
	iid := createInternship(t, h, "Backend Intern", "Acme Labs", "hr@acme.test")

	if rec := doJSON(t, h, "POST", "/api/users", map[string]any{
		"fullName":   "Rahul Verma",
		"email":      "rahul@uni.edu",
		"password":   "pw",
		"userType":   "student",
		"university": "IIT Delhi",
		"course":     "CS",
	}); rec.Code != 201 {
		t.Fatalf("signup status = %d", rec.Code)
	}

	rec := doJSON(t, h, "POST", "/api/applications", map[string]any{
		"internshipId": iid,
		"studentEmail": "rahul@uni.edu",
		"studentName":  "Rahul Verma",
		"company":      "Acme Labs",
	})
	if rec.Code != 201 {
		t.Fatalf("apply status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)["application"].(map[string]any)
	if created["status"] != "In Review" {
		t.Fatalf("default status = %v", created["status"])
	}
	if created["appliedDate"] == nil || created["appliedDate"] == "" {
		t.Fatal("appliedDate should be filled")
	}
	snap, ok := created["internship"].(map[string]any)
	if !ok || snap["stipend"] != "10000" {
		t.Fatalf("snapshot = %v", created["internship"])
	}
	if created["stipend"] != "10000" {
		t.Fatalf("top-level stipend = %v", created["stipend"])
	}

	// The list view backfills profile fields from the users collection.
	list := decode(t, doJSON(t, h, "GET", "/api/applications?studentEmail=rahul%40uni.edu", nil))
	apps := list["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("list size = %d", len(apps))
	}
	got := apps[0].(map[string]any)
	if got["university"] != "IIT Delhi" || got["course"] != "CS" {
		t.Fatalf("enriched fields = %v / %v", got["university"], got["course"])
	}

	appID := got["id"].(string)
	if rec := doJSON(t, h, "PUT", "/api/applications/"+appID, map[string]any{"status": "Selected"}); rec.Code != 200 {
		t.Fatalf("status update = %d", rec.Code)
	}
	single := decode(t, doJSON(t, h, "GET", "/api/applications/"+appID, nil))
	if single["application"].(map[string]any)["status"] != "Selected" {
		t.Fatal("status update not persisted")
	}

	if rec := doJSON(t, h, "DELETE", "/api/applications/"+appID, nil); rec.Code != 200 {
		t.Fatalf("withdraw status = %d", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/api/applications/"+appID, nil); rec.Code != 404 {
		t.Fatalf("deleted application status = %d", rec.Code)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	h := newTestRouter(t)
	for i, uni := range []string{"IIT Delhi", "IIT Delhi", "BITS"} {
		if rec := doJSON(t, h, "POST", "/api/users", map[string]any{
			"email":      fmt.Sprintf("s%d@uni.edu", i),
			"password":   "pw",
			"userType":   "student",
			"university": uni,
		}); rec.Code != 201 {
			t.Fatalf("signup %d status = %d", i, rec.Code)
		}
	}
	iid := createInternship(t, h, "Backend Intern", "Acme Labs", "hr@acme.test")
	if rec := doJSON(t, h, "POST", "/api/applications", map[string]any{
		"internshipId": iid,
		"studentEmail": "s0@uni.edu",
		"studentName":  "S Zero",
		"company":      "Acme Labs",
		"status":       "Selected",
	}); rec.Code != 201 {
		t.Fatalf("apply status = %d", rec.Code)
	}

	res := decode(t, doJSON(t, h, "GET", "/api/admin/analytics", nil))
	if res["totalUsers"].(float64) != 3 {
		t.Fatalf("totalUsers = %v", res["totalUsers"])
	}
	if res["pendingApprovals"].(float64) != 1 {
		t.Fatalf("pendingApprovals = %v", res["pendingApprovals"])
	}
	counts := res["applicationStatusCounts"].(map[string]any)
	if counts["selected"].(float64) != 1 || counts["total"].(float64) != 1 {
		t.Fatalf("status counts = %v", counts)
	}
	unis := res["topUniversities"].([]any)
	if len(unis) != 2 {
		t.Fatalf("topUniversities = %v", unis)
	}
	top := unis[0].(map[string]any)
	if top["university"] != "IIT Delhi" || top["count"].(float64) != 2 {
		t.Fatalf("top university = %v", top)
	}
}

func TestVerificationFlow(t *testing.T) {
	h := newTestRouter(t)
	if rec := doJSON(t, h, "POST", "/api/users", map[string]any{
		"companyName": "Acme Labs",
		"fullName":    "Priya N",
		"email":       "hr@acme.test",
		"password":    "pw",
		"userType":    "company",
	}); rec.Code != 201 {
		t.Fatalf("signup status = %d", rec.Code)
	}

	req := doJSON(t, h, "POST", "/api/company/verify", map[string]any{
		"email":    "hr@acme.test",
		"linkedin": "https://linkedin.com/company/acme",
	})
	if req.Code != 200 {
		t.Fatalf("verify request status = %d body=%s", req.Code, req.Body.String())
	}

	queue := decode(t, doJSON(t, h, "GET", "/api/admin/verifications", nil))
	items := queue["verifications"].([]any)
	if len(items) != 1 {
		t.Fatalf("queue size = %d", len(items))
	}
	entry := items[0].(map[string]any)
	if entry["representative"] != "Priya N" || entry["companyName"] != "Acme Labs" {
		t.Fatalf("queue entry = %v", entry)
	}
	id := entry["id"].(string)

	if rec := doJSON(t, h, "POST", "/api/admin/verifications/"+id+"/frobnicate", nil); rec.Code != 400 {
		t.Fatalf("invalid action status = %d", rec.Code)
	}
	appr := doJSON(t, h, "POST", "/api/admin/verifications/"+id+"/approve", nil)
	if appr.Code != 200 {
		t.Fatalf("approve status = %d", appr.Code)
	}
	if decode(t, appr)["status"] != "Verified" {
		t.Fatalf("approve body = %s", appr.Body.String())
	}

	// Approved requests leave the queue.
	after := decode(t, doJSON(t, h, "GET", "/api/admin/verifications", nil))
	if n := len(after["verifications"].([]any)); n != 0 {
		t.Fatalf("queue after approve = %d", n)
	}
	company := decode(t, doJSON(t, h, "GET", "/api/companies/by-email?email=hr%40acme.test", nil))
	if company["company"].(map[string]any)["verificationStatus"] != "Verified" {
		t.Fatal("company record not marked Verified")
	}
}

func TestResumeUploadFetchDelete(t *testing.T) {
	h := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("email", "rahul@uni.edu"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("resume", "my resume.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload_resume", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	url := decode(t, rec)["url"].(string)
	if url == "" {
		t.Fatal("upload response missing url")
	}

	meta := decode(t, doJSON(t, h, "GET", "/api/resume?email=rahul%40uni.edu", nil))
	resume := meta["resume"].(map[string]any)
	if resume["resumeFilename"] != "my resume.pdf" {
		t.Fatalf("resumeFilename = %v", resume["resumeFilename"])
	}

	// The stored file is reachable through /uploads/.
	stored := resume["storedFilename"].(string)
	fileReq := httptest.NewRequest("GET", "/uploads/"+stored, nil)
	fileRec := httptest.NewRecorder()
	h.ServeHTTP(fileRec, fileReq)
	if fileRec.Code != 200 {
		t.Fatalf("serve upload status = %d", fileRec.Code)
	}

	if rec := doJSON(t, h, "DELETE", "/api/upload_resume", map[string]any{"email": "rahul@uni.edu"}); rec.Code != 200 {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/api/resume?email=rahul%40uni.edu", nil); rec.Code != 404 {
		t.Fatalf("resume after delete status = %d", rec.Code)
	}
}

func TestAdminUserModeration(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, "POST", "/api/users", map[string]any{
		"fullName": "Rahul Verma",
		"email":    "rahul@uni.edu",
		"password": "pw",
		"userType": "student",
	})
	if rec.Code != 201 {
		t.Fatalf("signup status = %d", rec.Code)
	}
	id := decode(t, rec)["user"].(map[string]any)["id"].(string)

	if rec := doJSON(t, h, "POST", "/api/users/"+id+"/suspend", nil); rec.Code != 200 {
		t.Fatalf("suspend status = %d", rec.Code)
	}
	users := decode(t, doJSON(t, h, "GET", "/api/users?q=rahul", nil))["users"].([]any)
	if len(users) != 1 || users[0].(map[string]any)["status"] != "Suspended" {
		t.Fatalf("users after suspend = %v", users)
	}
	if rec := doJSON(t, h, "POST", "/api/users/"+id+"/activate", nil); rec.Code != 200 {
		t.Fatalf("activate status = %d", rec.Code)
	}
	if rec := doJSON(t, h, "DELETE", "/api/users/"+id, nil); rec.Code != 200 {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, h, "DELETE", "/api/users/"+id, nil); rec.Code != 404 {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}
