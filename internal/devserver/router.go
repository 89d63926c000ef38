package devserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"internlink/internal/auth"
	"internlink/internal/config"
	"internlink/internal/util"
)

const maxUploadBytes = 10 << 20

type Handlers struct {
	cfg   config.Config
	store *Store
	now   func() time.Time
}

func NewRouter(cfg config.Config, store *Store) http.Handler {
	h := &Handlers{cfg: cfg, store: store, now: time.Now}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.Signup)
		r.Get("/users", h.ListUsers)
		r.Put("/users/by-email", h.UpdateUserByEmail)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Post("/users/{id}/suspend", h.SuspendUser)
		r.Post("/users/{id}/activate", h.ActivateUser)
		r.Post("/login", h.Login)

		r.Get("/internships", h.ListInternships)
		r.Post("/internships", h.CreateInternship)
		r.Put("/internships/{id}", h.UpdateInternship)
		r.Delete("/internships/{id}", h.DeleteInternship)
		r.Post("/internships/{id}/approve", h.ApproveInternship)
		r.Post("/internships/{id}/reject", h.RejectInternship)

		r.Get("/applications", h.ListApplications)
		r.Post("/applications", h.CreateApplication)
		r.Get("/applications/{id}", h.GetApplication)
		r.Put("/applications/{id}", h.UpdateApplication)
		r.Delete("/applications/{id}", h.DeleteApplication)

		r.Get("/admin/analytics", h.Analytics)
		r.Get("/admin/verifications", h.ListVerifications)
		r.Post("/admin/verifications/{id}/{action}", h.ProcessVerification)

		r.Get("/company/overview", h.CompanyOverview)
		r.Post("/company/verify", h.RequestVerification)
		r.Get("/companies/by-email", h.CompanyByEmail)

		r.Get("/resume", h.ResumeByEmail)
		r.Post("/upload_resume", h.UploadResume)
		r.Delete("/upload_resume", h.DeleteResume)
	})

	r.Get("/uploads/*", h.ServeUpload)

	return r
}

// EnsureAdmin seeds the development admin account when missing.
func EnsureAdmin(ctx context.Context, store *Store, email, password string) error {
	if _, err := store.GetByEmail(ctx, TableUsers, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	doc := Doc{
		"fullName": "Platform Admin",
		"email":    email,
		"password": hash,
		"userType": "admin",
		"isAdmin":  true,
	}
	if err := store.Insert(ctx, TableUsers, uuid.NewString(), email, doc); err != nil {
		return err
	}
	log.Printf("seeded admin user: %s", email)
	return nil
}

func decodeBody(r *http.Request, out *Doc) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func docStr(doc Doc, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
		}
	}
	return ""
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func stripPassword(doc Doc) Doc {
	safe := make(Doc, len(doc))
	for k, v := range doc {
		if k == "password" {
			continue
		}
		safe[k] = v
	}
	return safe
}

// -- accounts --

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	email := docStr(data, "email")
	password := docStr(data, "password")
	if email == "" || password == "" {
		util.WriteError(w, 400, "Missing email or password")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	data["password"] = hash

	role := docStr(data, "userType")
	table := TableUsers
	if role == "company" {
		table = TableCompanies
	}
	id := uuid.NewString()
	if err := h.store.Insert(r.Context(), table, id, email, data); err != nil {
		if errors.Is(err, ErrDuplicate) {
			util.WriteError(w, 409, "Email already registered")
			return
		}
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 201, map[string]any{
		"msg": "User created",
		"user": map[string]any{
			"id":       id,
			"email":    email,
			"userType": role,
		},
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	email := docStr(data, "email")
	role := docStr(data, "userType")
	table := TableUsers
	if role == "company" {
		table = TableCompanies
	}
	doc, err := h.store.GetByEmail(r.Context(), table, email)
	if err != nil || !auth.VerifyPassword(docStr(doc, "password"), docStr(data, "password")) {
		util.WriteError(w, 401, "Invalid credentials")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"msg": "Login successful", "user": stripPassword(doc)})
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	docs, err := h.store.List(r.Context(), TableUsers)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	users := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if q != "" && !containsFold(docStr(d, "fullName"), q) && !containsFold(docStr(d, "email"), q) {
			continue
		}
		users = append(users, stripPassword(d))
	}
	util.WriteJSON(w, 200, map[string]any{"users": users})
}

func (h *Handlers) UpdateUserByEmail(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	email := docStr(data, "email")
	if email == "" {
		util.WriteError(w, 400, "Missing email")
		return
	}
	update := Doc{}
	for _, k := range []string{"fullName", "companyName", "designation", "phone", "linkedin"} {
		if v, ok := data[k]; ok {
			update[k] = v
		}
	}
	if len(update) == 0 {
		util.WriteError(w, 400, "Nothing to update")
		return
	}
	doc, err := h.store.PatchByEmail(r.Context(), TableCompanies, email, update)
	if errors.Is(err, ErrNotFound) {
		doc, err = h.store.PatchByEmail(r.Context(), TableUsers, email, update)
	}
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"msg": "Updated", "user": stripPassword(doc)})
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.Delete(r.Context(), TableUsers, id)
	if errors.Is(err, ErrNotFound) {
		err = h.store.Delete(r.Context(), TableCompanies, id)
	}
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: "Deleted"})
}

func (h *Handlers) SuspendUser(w http.ResponseWriter, r *http.Request) {
	h.setUserStatus(w, r, "Suspended", "Suspended")
}

func (h *Handlers) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserStatus(w, r, "Active", "Activated")
}

func (h *Handlers) setUserStatus(w http.ResponseWriter, r *http.Request, status, msg string) {
	id := chi.URLParam(r, "id")
	_, err := h.store.Patch(r.Context(), TableUsers, id, Doc{"status": status})
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: msg})
}

// -- internships --

func (h *Handlers) CreateInternship(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	for _, k := range []string{"title", "company", "companyEmail"} {
		if docStr(data, k) == "" {
			util.WriteError(w, 400, "Missing required fields")
			return
		}
	}
	if docStr(data, "posted") == "" {
		data["posted"] = ""
	}
	id := uuid.NewString()
	if err := h.store.Insert(r.Context(), TableInternships, id, "", data); err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	created := make(Doc, len(data))
	for k, v := range data {
		if k == "description" {
			continue
		}
		created[k] = v
	}
	util.WriteJSON(w, 201, map[string]any{"msg": "Internship created", "internship": created})
}

func (h *Handlers) ListInternships(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		company = r.URL.Query().Get("companyEmail")
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	docs, err := h.store.List(r.Context(), TableInternships)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	out := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if company != "" && docStr(d, "company") != company && docStr(d, "companyEmail") != company {
			continue
		}
		if q != "" && !matchesSearch(d, q) {
			continue
		}
		out = append(out, d)
	}
	util.WriteJSON(w, 200, map[string]any{"internships": out})
}

// matchesSearch mirrors the case-insensitive title/position/company/tags
// match used for the browse search box.
func matchesSearch(d Doc, q string) bool {
	for _, k := range []string{"title", "position", "company"} {
		if containsFold(docStr(d, k), q) {
			return true
		}
	}
	switch tags := d["tags"].(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && containsFold(s, q) {
				return true
			}
		}
	case string:
		return containsFold(tags, q)
	}
	return false
}

func (h *Handlers) UpdateInternship(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	allowed := []string{"title", "duration", "location", "stipend", "tags", "description", "deadline", "company", "companyEmail", "posted", "status"}
	update := Doc{}
	for _, k := range allowed {
		if v, ok := data[k]; ok {
			update[k] = v
		}
	}
	if len(update) == 0 {
		util.WriteError(w, 400, "Nothing to update")
		return
	}
	doc, err := h.store.Patch(r.Context(), TableInternships, chi.URLParam(r, "id"), update)
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"msg": "Updated", "internship": doc})
}

func (h *Handlers) DeleteInternship(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), TableInternships, chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: "Deleted"})
}

func (h *Handlers) ApproveInternship(w http.ResponseWriter, r *http.Request) {
	h.setInternshipStatus(w, r, "Active", "Approved")
}

func (h *Handlers) RejectInternship(w http.ResponseWriter, r *http.Request) {
	h.setInternshipStatus(w, r, "Rejected", "Rejected")
}

func (h *Handlers) setInternshipStatus(w http.ResponseWriter, r *http.Request, status, msg string) {
	_, err := h.store.Patch(r.Context(), TableInternships, chi.URLParam(r, "id"), Doc{"status": status})
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: msg})
}

// -- applications --

// internshipSnapshot freezes the fields of an internship an application is
// allowed to remember, so later edits to the posting do not rewrite history.
func internshipSnapshot(d Doc) Doc {
	tags := d["tags"]
	if tags == nil {
		tags = d["skills"]
	}
	if tags == nil {
		tags = []any{}
	}
	return Doc{
		"id":       docStr(d, "id", "_id"),
		"position": docStr(d, "position", "title"),
		"title":    docStr(d, "title"),
		"company":  docStr(d, "company", "companyName"),
		"stipend":  docStr(d, "stipend", "salary", "remuneration"),
		"location": docStr(d, "location", "city"),
		"duration": docStr(d, "duration", "period"),
		"deadline": docStr(d, "deadline"),
		"tags":     tags,
	}
}

func (h *Handlers) attachSnapshot(r *http.Request, d Doc) {
	if d["internship"] != nil {
		return
	}
	iid := docStr(d, "internshipId")
	if iid == "" {
		return
	}
	internship, err := h.store.Get(r.Context(), TableInternships, iid)
	if err != nil {
		return
	}
	snap := internshipSnapshot(internship)
	d["internship"] = snap
	if docStr(d, "stipend") == "" {
		d["stipend"] = snap["stipend"]
	}
}

// enrichApplication backfills missing student profile fields from the users
// collection.
func (h *Handlers) enrichApplication(r *http.Request, d Doc) {
	email := docStr(d, "studentEmail", "email")
	if email == "" {
		return
	}
	user, err := h.store.GetByEmail(r.Context(), TableUsers, email)
	if err != nil {
		return
	}
	fill := func(key string, probes ...string) {
		if docStr(d, key) == "" {
			if v := docStr(user, probes...); v != "" {
				d[key] = v
			}
		}
	}
	fill("studentName", "fullName", "name")
	fill("studentEmail", "email")
	fill("phone", "phone")
	fill("university", "university")
	fill("course", "course")
	fill("year", "yearOfStudy", "year")
}

func (h *Handlers) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	for _, k := range []string{"internshipId", "studentEmail", "studentName", "company"} {
		if docStr(data, k) == "" {
			util.WriteError(w, 400, "Missing required fields")
			return
		}
	}
	if docStr(data, "appliedDate") == "" && docStr(data, "applied") == "" {
		data["appliedDate"] = h.now().UTC().Format(time.RFC3339)
	}
	if docStr(data, "status") == "" {
		data["status"] = "In Review"
	}
	if internship, err := h.store.Get(r.Context(), TableInternships, docStr(data, "internshipId")); err == nil {
		snap := internshipSnapshot(internship)
		data["internship"] = snap
		if docStr(data, "internshipTitle") == "" {
			data["internshipTitle"] = docStr(snap, "position", "title")
		}
		if docStr(data, "stipend") == "" {
			data["stipend"] = snap["stipend"]
		}
	}
	id := uuid.NewString()
	if err := h.store.Insert(r.Context(), TableApplications, id, docStr(data, "studentEmail"), data); err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 201, map[string]any{"msg": "Application created", "application": data})
}

func (h *Handlers) ListApplications(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		company = r.URL.Query().Get("companyEmail")
	}
	student := r.URL.Query().Get("studentEmail")
	internshipID := r.URL.Query().Get("internshipId")

	docs, err := h.store.List(r.Context(), TableApplications)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	out := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if company != "" && docStr(d, "company") != company {
			continue
		}
		if student != "" && docStr(d, "studentEmail") != student {
			continue
		}
		if internshipID != "" && docStr(d, "internshipId") != internshipID {
			continue
		}
		h.enrichApplication(r, d)
		h.attachSnapshot(r, d)
		out = append(out, d)
	}
	util.WriteJSON(w, 200, map[string]any{"applications": out})
}

func (h *Handlers) GetApplication(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context(), TableApplications, chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	h.enrichApplication(r, doc)
	h.attachSnapshot(r, doc)
	util.WriteJSON(w, 200, map[string]any{"application": doc})
}

func (h *Handlers) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	status, ok := data["status"]
	if !ok {
		util.WriteError(w, 400, "Nothing to update")
		return
	}
	_, err := h.store.Patch(r.Context(), TableApplications, chi.URLParam(r, "id"), Doc{"status": status})
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: "Updated"})
}

func (h *Handlers) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), TableApplications, chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: "Deleted"})
}

// -- admin aggregates --

func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context(), TableUsers)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	companies, err := h.store.List(r.Context(), TableCompanies)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	internships, err := h.store.List(r.Context(), TableInternships)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	applications, err := h.store.List(r.Context(), TableApplications)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}

	activeStudents := 0
	uniCounts := map[string]int{}
	for _, u := range users {
		if t := docStr(u, "userType"); t == "" || t == "student" {
			activeStudents++
		}
		if uni := docStr(u, "university"); uni != "" {
			uniCounts[uni]++
		}
	}
	pendingApprovals := 0
	compCounts := map[string]int{}
	for _, i := range internships {
		if docStr(i, "status") == "Pending Approval" {
			pendingApprovals++
		}
		if c := docStr(i, "company"); c != "" {
			compCounts[c]++
		}
	}
	selected, inReview, rejected := 0, 0, 0
	for _, a := range applications {
		switch docStr(a, "status") {
		case "Selected":
			selected++
		case "Rejected":
			rejected++
		default:
			inReview++
		}
	}

	util.WriteJSON(w, 200, map[string]any{
		"totalUsers":            len(users) + len(companies),
		"activeStudents":        activeStudents,
		"activeCompanies":       len(companies),
		"totalInternships":      len(internships),
		"pendingApprovals":      pendingApprovals,
		"thisMonthApplications": len(applications),
		"applicationStatusCounts": map[string]int{
			"selected": selected,
			"inReview": inReview,
			"rejected": rejected,
			"total":    len(applications),
		},
		"topUniversities": topCounts(uniCounts, "university", 6),
		"topCompanies":    topCounts(compCounts, "company", 6),
	})
}

// topCounts ranks a counter map descending and keeps the first n entries.
func topCounts(counts map[string]int, key string, n int) []map[string]any {
	type kv struct {
		name  string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for name, c := range counts {
		ranked = append(ranked, kv{name, c})
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].count > ranked[i].count ||
				(ranked[j].count == ranked[i].count && ranked[j].name < ranked[i].name) {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]map[string]any, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, map[string]any{key: e.name, "count": e.count})
	}
	return out
}

func (h *Handlers) CompanyOverview(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		company = r.URL.Query().Get("companyEmail")
	}
	if company == "" {
		util.WriteError(w, 400, "Missing company parameter")
		return
	}
	internships, err := h.store.List(r.Context(), TableInternships)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	applications, err := h.store.List(r.Context(), TableApplications)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}

	total, active, pending := 0, 0, 0
	for _, i := range internships {
		if docStr(i, "company") != company && docStr(i, "companyEmail") != company {
			continue
		}
		total++
		switch strings.ToLower(docStr(i, "status")) {
		case "active":
			active++
		case "pending approval", "pending":
			pending++
		}
	}
	totalApps, selected, inReview, rejected := 0, 0, 0, 0
	for _, a := range applications {
		if docStr(a, "company") != company {
			continue
		}
		totalApps++
		switch docStr(a, "status") {
		case "Selected":
			selected++
		case "Rejected":
			rejected++
		default:
			inReview++
		}
	}
	util.WriteJSON(w, 200, map[string]any{
		"company":            company,
		"totalInternships":   total,
		"activeInternships":  active,
		"pendingInternships": pending,
		"totalApplications":  totalApps,
		"applicationStatusCounts": map[string]int{
			"selected": selected,
			"inReview": inReview,
			"rejected": rejected,
			"total":    totalApps,
		},
	})
}

// -- company verification --

func (h *Handlers) CompanyByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		util.WriteError(w, 400, "Missing email parameter")
		return
	}
	doc, err := h.store.GetByEmail(r.Context(), TableCompanies, email)
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"company": stripPassword(doc)})
}

func (h *Handlers) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var email, linkedin, documentURL string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			util.WriteError(w, 400, "Invalid multipart body")
			return
		}
		email = r.FormValue("email")
		linkedin = r.FormValue("linkedin")
		if file, header, err := r.FormFile("document"); err == nil {
			defer file.Close()
			url, err := h.saveUpload(r, file, header.Filename, "doc")
			if err != nil {
				util.WriteError(w, 500, "Server error")
				return
			}
			documentURL = url
		}
	} else {
		var data Doc
		if err := decodeBody(r, &data); err != nil {
			util.WriteError(w, 400, "Invalid JSON body")
			return
		}
		email = docStr(data, "email")
		linkedin = docStr(data, "linkedin")
		documentURL = docStr(data, "documentUrl")
	}

	if email == "" || linkedin == "" {
		util.WriteError(w, 400, "Missing email or linkedin")
		return
	}

	update := Doc{
		"linkedin":                linkedin,
		"verificationStatus":      "Pending",
		"verificationRequestedAt": h.now().UTC().Format(time.RFC3339),
	}
	if documentURL != "" {
		update["verificationDocumentUrl"] = documentURL
	}
	_, err := h.store.PatchByEmail(r.Context(), TableCompanies, email, update)
	if errors.Is(err, ErrNotFound) {
		_, err = h.store.PatchByEmail(r.Context(), TableUsers, email, update)
	}
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Company not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"msg": "Verification requested", "email": email})
}

func (h *Handlers) ListVerifications(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context(), TableCompanies)
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	out := make([]Doc, 0)
	for _, d := range docs {
		if docStr(d, "verificationStatus") != "Pending" {
			continue
		}
		id := docStr(d, "id")
		if id == "" {
			id = docStr(d, "email")
		}
		out = append(out, Doc{
			"id":                      id,
			"companyName":             docStr(d, "companyName", "company", "name"),
			"representative":          docStr(d, "fullName", "representative"),
			"email":                   docStr(d, "email"),
			"verificationRequestedAt": docStr(d, "verificationRequestedAt"),
			"verificationDocumentUrl": docStr(d, "verificationDocumentUrl"),
			"linkedin":                docStr(d, "linkedin"),
			"verificationStatus":      docStr(d, "verificationStatus"),
		})
	}
	util.WriteJSON(w, 200, map[string]any{"verifications": out})
}

func (h *Handlers) ProcessVerification(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action != "approve" && action != "reject" {
		util.WriteError(w, 400, "Invalid action")
		return
	}
	status := "Verified"
	if action == "reject" {
		status = "Rejected"
	}
	update := Doc{
		"verificationStatus":     status,
		"verificationReviewedAt": h.now().UTC().Format(time.RFC3339),
	}
	id := chi.URLParam(r, "id")
	_, err := h.store.Patch(r.Context(), TableCompanies, id, update)
	if errors.Is(err, ErrNotFound) {
		// The admin queue falls back to email ids for legacy records.
		_, err = h.store.PatchByEmail(r.Context(), TableCompanies, id, update)
	}
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"msg": "OK", "status": status})
}

// -- resumes and uploads --

var unsafeFilenameRx = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameRx.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// saveUpload writes the file under a timestamped name and returns its public
// URL.
func (h *Handlers) saveUpload(r *http.Request, src io.Reader, origName, fallbackPrefix string) (string, error) {
	if err := os.MkdirAll(h.cfg.UploadsDir, 0o755); err != nil {
		return "", err
	}
	name := sanitizeFilename(origName)
	if name == "" {
		name = fmt.Sprintf("%s_%d", fallbackPrefix, h.now().Unix())
	}
	name = fmt.Sprintf("%d_%s", h.now().Unix(), name)
	dst, err := os.Create(filepath.Join(h.cfg.UploadsDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes)); err != nil {
		return "", err
	}
	return h.hostURL(r) + "/uploads/" + name, nil
}

func (h *Handlers) hostURL(r *http.Request) string {
	if h.cfg.UploadBaseURL != "" {
		return strings.TrimRight(h.cfg.UploadBaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handlers) ResumeByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		util.WriteError(w, 400, "Missing email parameter")
		return
	}
	doc, err := h.store.GetByEmail(r.Context(), TableResumes, email)
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, map[string]any{"resume": doc})
}

func (h *Handlers) UploadResume(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			util.WriteError(w, 400, "Invalid multipart body")
			return
		}
		email := r.FormValue("email")
		file, header, err := r.FormFile("resume")
		if email == "" || err != nil {
			util.WriteError(w, 400, "Missing email or file")
			return
		}
		defer file.Close()
		url, err := h.saveUpload(r, file, header.Filename, "resume")
		if err != nil {
			util.WriteError(w, 500, "Server error")
			return
		}
		h.storeResumeMeta(r, email, header.Filename, url)
		util.WriteJSON(w, 200, map[string]any{"msg": "Uploaded", "url": url})
		return
	}

	// base64 data-URL fallback
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	email := docStr(data, "email")
	dataURL := docStr(data, "dataUrl", "data")
	if email == "" || dataURL == "" {
		util.WriteError(w, 400, "Missing email or data")
		return
	}
	meta, b64, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") {
		util.WriteError(w, 400, "Unsupported data format")
		return
	}
	blob, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		util.WriteError(w, 400, "Invalid base64 data")
		return
	}
	ext := "pdf"
	if strings.Contains(meta, "officedocument") || strings.Contains(meta, "word") {
		ext = "docx"
	}
	name := fmt.Sprintf("resume.%s", ext)
	url, err := h.saveUpload(r, strings.NewReader(string(blob)), name, "resume")
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	h.storeResumeMeta(r, email, name, url)
	util.WriteJSON(w, 200, map[string]any{"msg": "Uploaded", "url": url})
}

func (h *Handlers) storeResumeMeta(r *http.Request, email, filename, url string) {
	stored := url
	if i := strings.LastIndex(url, "/uploads/"); i >= 0 {
		stored = url[i+len("/uploads/"):]
	}
	doc := Doc{
		"email":          email,
		"resumeFilename": filename,
		"storedFilename": stored,
		"resumeUrl":      url,
		"uploadedAt":     h.now().UTC().Format(time.RFC3339),
	}
	if err := h.store.UpsertByEmail(r.Context(), TableResumes, uuid.NewString(), email, doc); err != nil {
		log.Printf("store resume meta for %s: %v", email, err)
	}
}

func (h *Handlers) DeleteResume(w http.ResponseWriter, r *http.Request) {
	var data Doc
	if err := decodeBody(r, &data); err != nil {
		util.WriteError(w, 400, "Invalid JSON body")
		return
	}
	email := docStr(data, "email")
	if email == "" {
		util.WriteError(w, 400, "Missing email")
		return
	}
	doc, err := h.store.GetByEmail(r.Context(), TableResumes, email)
	if errors.Is(err, ErrNotFound) {
		util.WriteError(w, 404, "Not found")
		return
	}
	if err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	if url := docStr(doc, "resumeUrl"); strings.Contains(url, "/uploads/") {
		name := url[strings.LastIndex(url, "/uploads/")+len("/uploads/"):]
		if name = sanitizeFilename(name); name != "" {
			_ = os.Remove(filepath.Join(h.cfg.UploadsDir, name))
		}
	}
	if err := h.store.DeleteByEmail(r.Context(), TableResumes, email); err != nil {
		util.WriteError(w, 500, "Server error")
		return
	}
	util.WriteJSON(w, 200, util.APIMessage{Msg: "Deleted"})
}

func (h *Handlers) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := sanitizeFilename(chi.URLParam(r, "*"))
	if name == "" {
		util.WriteError(w, 404, "Not found")
		return
	}
	path := filepath.Join(h.cfg.UploadsDir, name)
	if _, err := os.Stat(path); err != nil {
		util.WriteError(w, 404, "Not found")
		return
	}
	http.ServeFile(w, r, path)
}
