package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"internlink/internal/bus"
	"internlink/internal/cache"
	"internlink/internal/gateway"
	"internlink/internal/models"
	"internlink/internal/normalize"
	"internlink/internal/session"
	"internlink/internal/state"
)

var ErrAlreadyApplied = errors.New("already applied to this internship")

// Student is the student portal view: the internship browse list, the
// student's own applications, and their resume.
type Student struct {
	view
	email string
	name  string

	internships  state.Internships
	applications state.Applications

	mu     sync.Mutex
	resume models.ResumeMeta
}

func NewStudent(gw *gateway.Client, mirror *cache.Mirror, b *bus.Bus, sess *session.Session) (*Student, error) {
	acct, ok := sess.Account()
	if !ok || acct.UserType != models.RoleStudent {
		return nil, fmt.Errorf("%w: student account required", ErrSignedOut)
	}
	s := &Student{
		email: acct.Email,
		name:  acct.FullName,
	}
	s.view.init(gw, mirror, b, sess)
	// Seed the working sets from the mirror so the view renders before the
	// first fetch completes.
	var cached []models.Internship
	if mirror.Read(cache.KeyInternships, &cached) {
		s.internships.Replace(cached)
	}
	var cachedApps []models.Application
	if mirror.Read(cache.KeyApplications, &cachedApps) {
		s.applications.Replace(s.ownApplications(cachedApps))
	}
	mirror.Read(cache.ResumeKey(acct.Email), &s.resume)

	return s, nil
}

func (s *Student) Close() { s.close() }

func (s *Student) ownApplications(apps []models.Application) []models.Application {
	own := apps[:0:0]
	for _, a := range apps {
		if a.StudentEmail == s.email {
			own = append(own, a)
		}
	}
	return own
}

func (s *Student) Internships() []models.Internship   { return s.internships.Snapshot() }
func (s *Student) Applications() []models.Application { return s.applications.Snapshot() }

// Refresh reloads both collections. The first error wins but both loads run.
func (s *Student) Refresh(ctx context.Context) error {
	err := s.LoadInternships(ctx)
	if err2 := s.LoadApplications(ctx); err == nil {
		err = err2
	}
	return err
}

// LoadInternships fetches the browse list. When the backend is unreachable
// the view keeps serving whatever the mirror last saw, and the error says so.
func (s *Student) LoadInternships(ctx context.Context) error {
	if !s.alive() {
		return ErrClosed
	}
	res := s.gw.ListInternships(ctx, "", "")
	if !res.OK {
		return backendErr(res)
	}
	items := normalize.Internships(res.List("internships"))
	s.internships.Replace(items)
	s.mirror.Write(cache.KeyInternships, items)
	s.bus.Publish(bus.TopicInternships)
	return nil
}

func (s *Student) LoadApplications(ctx context.Context) error {
	if !s.alive() {
		return ErrClosed
	}
	res := s.gw.ListApplications(ctx, gateway.ApplicationFilter{StudentEmail: s.email})
	if !res.OK {
		return backendErr(res)
	}
	items := normalize.Applications(res.List("applications"))
	s.applications.Replace(items)
	s.syncApplications()
	return nil
}

func (s *Student) syncApplications() {
	s.mirror.Write(cache.KeyApplications, s.applications.Snapshot())
	s.bus.Publish(bus.TopicApplications)
}

// Search asks the backend, and filters the cached browse list locally when
// the backend is unreachable so the search box keeps working offline.
func (s *Student) Search(ctx context.Context, q string) ([]models.Internship, error) {
	if !s.alive() {
		return nil, ErrClosed
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return s.internships.Snapshot(), nil
	}
	res := s.gw.ListInternships(ctx, q, "")
	if res.OK {
		return normalize.Internships(res.List("internships")), nil
	}
	if res.Failure != gateway.FailureNetwork {
		return nil, backendErr(res)
	}
	var out []models.Internship
	for _, in := range s.internships.Snapshot() {
		if matchInternship(in, q) {
			out = append(out, in)
		}
	}
	return out, nil
}

func matchInternship(in models.Internship, q string) bool {
	if containsFold(in.Title, q) || containsFold(in.Company, q) {
		return true
	}
	for _, tag := range in.Tags {
		if containsFold(tag, q) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Apply submits an application optimistically: the record lands in the local
// set immediately and is removed again if the backend refuses.
func (s *Student) Apply(ctx context.Context, internshipID string) (models.Application, error) {
	if !s.alive() {
		return models.Application{}, ErrClosed
	}
	if strings.TrimSpace(internshipID) == "" {
		return models.Application{}, fmt.Errorf("%w: internship id required", ErrValidation)
	}
	for _, a := range s.applications.Snapshot() {
		if a.InternshipID == internshipID {
			return models.Application{}, ErrAlreadyApplied
		}
	}
	attempt := state.NewAttempt()
	if _, err := attempt.Begin(); err != nil {
		return models.Application{}, err
	}

	placeholder := models.Application{
		ID:           "local-" + uuid.NewString(),
		InternshipID: internshipID,
		StudentEmail: s.email,
		StudentName:  s.name,
		Status:       models.ApplicationInReview,
	}
	if in, ok := s.internships.FindByID(internshipID); ok {
		placeholder.InternshipTitle = in.Title
		placeholder.Company = in.Company
		placeholder.Stipend = in.Stipend
	}
	s.applications.Prepend(placeholder)
	s.syncApplications()

	res := s.gw.CreateApplication(ctx, map[string]any{
		"internshipId": internshipID,
		"studentEmail": s.email,
		"studentName":  s.name,
		"company":      placeholder.Company,
	})
	if !res.OK {
		s.applications.RemoveByID(placeholder.ID)
		s.syncApplications()
		err := backendErr(res)
		attempt.Fail(err)
		attempt.RollBack()
		return models.Application{}, err
	}
	created := normalize.Application(res.Object("application"))
	s.applications.RemoveByID(placeholder.ID)
	s.applications.Prepend(created)
	s.syncApplications()
	attempt.Confirm()
	return created, nil
}

// Withdraw removes the application optimistically and puts it back at its
// original position if the backend refuses.
func (s *Student) Withdraw(ctx context.Context, appID string) error {
	if !s.alive() {
		return ErrClosed
	}
	removed, idx, ok := s.applications.RemoveByID(appID)
	if !ok {
		return fmt.Errorf("%w: unknown application %s", ErrBackend, appID)
	}
	s.syncApplications()

	res := s.gw.DeleteApplication(ctx, appID)
	if !res.OK && res.Status != 404 {
		s.applications.InsertAt(idx, removed)
		s.syncApplications()
		return backendErr(res)
	}
	return nil
}

// Stats derives the status breakdown shown on the student dashboard.
func (s *Student) Stats() models.StatusCounts {
	var counts models.StatusCounts
	for _, a := range s.applications.Snapshot() {
		counts.Total++
		switch a.Status {
		case models.ApplicationSelected:
			counts.Selected++
		case models.ApplicationRejected:
			counts.Rejected++
		default:
			counts.InReview++
		}
	}
	return counts
}

// ProfileCompletion reports how much of the student profile is filled in,
// as a percentage across the fields the profile page asks for.
func (s *Student) ProfileCompletion() int {
	acct, ok := s.sess.Account()
	if !ok {
		return 0
	}
	fields := []string{acct.FullName, acct.Email, acct.Phone, acct.University, acct.Course, acct.YearOfStudy}
	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	s.mu.Lock()
	hasResume := s.resume.URL != "" || s.resume.Filename != ""
	s.mu.Unlock()
	if hasResume {
		filled++
	}
	return filled * 100 / (len(fields) + 1)
}

// Resume returns the stored resume metadata. A backend 404 means no resume
// is on file, which is not an error.
func (s *Student) Resume(ctx context.Context) (models.ResumeMeta, error) {
	if !s.alive() {
		return models.ResumeMeta{}, ErrClosed
	}
	res := s.gw.ResumeByEmail(ctx, s.email)
	if res.OK {
		meta := normalize.Resume(res.Object("resume"))
		meta.URL = s.gw.ResolveFileURL(meta.URL)
		s.setResume(meta)
		return meta, nil
	}
	if res.Status == 404 {
		s.setResume(models.ResumeMeta{})
		return models.ResumeMeta{}, nil
	}
	// Unreachable backend: fall back to the mirrored copy.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume, backendErr(res)
}

func (s *Student) setResume(meta models.ResumeMeta) {
	s.mu.Lock()
	s.resume = meta
	s.mu.Unlock()
	if meta.Email == "" && meta.URL == "" {
		s.mirror.Delete(cache.ResumeKey(s.email))
		return
	}
	s.mirror.Write(cache.ResumeKey(s.email), meta)
}

func (s *Student) UploadResume(ctx context.Context, filename string, file io.Reader) (models.ResumeMeta, error) {
	if !s.alive() {
		return models.ResumeMeta{}, ErrClosed
	}
	res := s.gw.UploadResume(ctx, s.email, filename, file)
	if !res.OK {
		return models.ResumeMeta{}, backendErr(res)
	}
	meta := models.ResumeMeta{
		Email:    s.email,
		Filename: filename,
		URL:      s.gw.ResolveFileURL(res.Str("url")),
	}
	s.setResume(meta)
	return meta, nil
}

func (s *Student) DeleteResume(ctx context.Context) error {
	if !s.alive() {
		return ErrClosed
	}
	res := s.gw.DeleteResume(ctx, s.email)
	if !res.OK && res.Status != 404 {
		return backendErr(res)
	}
	s.setResume(models.ResumeMeta{})
	return nil
}
