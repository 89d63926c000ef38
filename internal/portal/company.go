package portal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"internlink/internal/bus"
	"internlink/internal/cache"
	"internlink/internal/gateway"
	"internlink/internal/models"
	"internlink/internal/normalize"
	"internlink/internal/session"
	"internlink/internal/state"
)

// Company is the company portal view: the company's own postings, the
// applications against them, and the verification state of the account.
type Company struct {
	view
	email   string
	company string

	internships  state.Internships
	applications state.Applications

	pollOnce sync.Once
	stop     chan struct{}
}

func NewCompany(gw *gateway.Client, mirror *cache.Mirror, b *bus.Bus, sess *session.Session) (*Company, error) {
	acct, ok := sess.Account()
	if !ok || acct.UserType != models.RoleCompany {
		return nil, fmt.Errorf("%w: company account required", ErrSignedOut)
	}
	name := acct.CompanyName
	if name == "" {
		name = acct.FullName
	}
	c := &Company{
		email:   acct.Email,
		company: name,
		stop:    make(chan struct{}),
	}
	c.view.init(gw, mirror, b, sess)
	c.onClose(func() { close(c.stop) })

	var cached []models.Internship
	if mirror.Read(cache.KeyInternships, &cached) {
		c.internships.Replace(c.ownInternships(cached))
	}
	return c, nil
}

func (c *Company) Close() { c.close() }

func (c *Company) ownInternships(items []models.Internship) []models.Internship {
	own := items[:0:0]
	for _, in := range items {
		if in.CompanyEmail == c.email || in.Company == c.company {
			own = append(own, in)
		}
	}
	return own
}

func (c *Company) Internships() []models.Internship   { return c.internships.Snapshot() }
func (c *Company) Applications() []models.Application { return c.applications.Snapshot() }

func (c *Company) LoadInternships(ctx context.Context) error {
	if !c.alive() {
		return ErrClosed
	}
	res := c.gw.ListInternships(ctx, "", c.email)
	if !res.OK {
		return backendErr(res)
	}
	c.internships.Replace(normalize.Internships(res.List("internships")))
	c.bus.Publish(bus.TopicInternships)
	return nil
}

func (c *Company) LoadApplications(ctx context.Context) error {
	if !c.alive() {
		return ErrClosed
	}
	res := c.gw.ListApplications(ctx, gateway.ApplicationFilter{Company: c.company})
	if !res.OK {
		return backendErr(res)
	}
	c.applications.Replace(normalize.Applications(res.List("applications")))
	c.bus.Publish(bus.TopicApplications)
	return nil
}

// CreateInternship posts a new internship optimistically. The posting shows
// up immediately as Pending Approval and is removed if the backend refuses.
func (c *Company) CreateInternship(ctx context.Context, draft models.Internship) (models.Internship, error) {
	if !c.alive() {
		return models.Internship{}, ErrClosed
	}
	if strings.TrimSpace(draft.Title) == "" {
		return models.Internship{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	attempt := state.NewAttempt()
	if _, err := attempt.Begin(); err != nil {
		return models.Internship{}, err
	}

	draft.Company = c.company
	draft.CompanyEmail = c.email
	draft.Status = models.InternshipPendingApproval
	if draft.PostedDate == "" {
		draft.PostedDate = time.Now().UTC().Format(time.RFC3339)
	}
	placeholder := draft
	placeholder.ID = "local-" + placeholder.Title
	c.internships.Prepend(placeholder)
	c.bus.Publish(bus.TopicInternships)

	res := c.gw.CreateInternship(ctx, map[string]any{
		"title":        draft.Title,
		"company":      draft.Company,
		"companyEmail": draft.CompanyEmail,
		"location":     draft.Location,
		"stipend":      draft.Stipend,
		"duration":     draft.Duration,
		"tags":         draft.Tags,
		"description":  draft.Description,
		"deadline":     draft.Deadline,
		"posted":       draft.PostedDate,
		"status":       string(draft.Status),
	})
	if !res.OK {
		c.internships.RemoveByID(placeholder.ID)
		c.bus.Publish(bus.TopicInternships)
		err := backendErr(res)
		attempt.Fail(err)
		attempt.RollBack()
		return models.Internship{}, err
	}
	created := normalize.Internship(res.Object("internship"))
	// The create response drops the description; carry the draft's over.
	created.Description = draft.Description
	c.internships.RemoveByID(placeholder.ID)
	c.internships.Prepend(created)
	c.bus.Publish(bus.TopicInternships)
	attempt.Confirm()
	return created, nil
}

func (c *Company) UpdateInternship(ctx context.Context, id string, fields map[string]any) error {
	if !c.alive() {
		return ErrClosed
	}
	res := c.gw.UpdateInternship(ctx, id, fields)
	if !res.OK {
		return backendErr(res)
	}
	updated := normalize.Internship(res.Object("internship"))
	c.internships.UpdateByID(id, func(in *models.Internship) { *in = updated })
	c.bus.Publish(bus.TopicInternships)
	return nil
}

// DeleteInternship removes the posting optimistically and restores it at its
// original position if the backend refuses.
func (c *Company) DeleteInternship(ctx context.Context, id string) error {
	if !c.alive() {
		return ErrClosed
	}
	removed, idx, ok := c.internships.RemoveByID(id)
	if !ok {
		return fmt.Errorf("%w: unknown internship %s", ErrBackend, id)
	}
	c.bus.Publish(bus.TopicInternships)

	res := c.gw.DeleteInternship(ctx, id)
	if !res.OK && res.Status != 404 {
		c.internships.InsertAt(idx, removed)
		c.bus.Publish(bus.TopicInternships)
		return backendErr(res)
	}
	return nil
}

// SetApplicationStatus updates the decision optimistically and restores the
// previous status if the backend refuses.
func (c *Company) SetApplicationStatus(ctx context.Context, appID string, status models.ApplicationStatus) error {
	if !c.alive() {
		return ErrClosed
	}
	var prev models.ApplicationStatus
	if !c.applications.UpdateByID(appID, func(a *models.Application) {
		prev = a.Status
		a.Status = status
	}) {
		return fmt.Errorf("%w: unknown application %s", ErrBackend, appID)
	}
	c.bus.Publish(bus.TopicApplications)

	res := c.gw.UpdateApplicationStatus(ctx, appID, string(status))
	if !res.OK {
		c.applications.UpdateByID(appID, func(a *models.Application) { a.Status = prev })
		c.bus.Publish(bus.TopicApplications)
		return backendErr(res)
	}
	return nil
}

// DeleteApplication drops an application from the company's list, restoring
// it at its original position if the backend refuses.
func (c *Company) DeleteApplication(ctx context.Context, appID string) error {
	if !c.alive() {
		return ErrClosed
	}
	removed, idx, ok := c.applications.RemoveByID(appID)
	if !ok {
		return fmt.Errorf("%w: unknown application %s", ErrBackend, appID)
	}
	c.bus.Publish(bus.TopicApplications)

	res := c.gw.DeleteApplication(ctx, appID)
	if !res.OK && res.Status != 404 {
		c.applications.InsertAt(idx, removed)
		c.bus.Publish(bus.TopicApplications)
		return backendErr(res)
	}
	return nil
}

// Overview fetches the dashboard counters. When the backend is unreachable
// the counters are recomputed from the local working sets so the dashboard
// still shows something, alongside the error.
func (c *Company) Overview(ctx context.Context) (models.CompanyOverview, error) {
	if !c.alive() {
		return models.CompanyOverview{}, ErrClosed
	}
	res := c.gw.CompanyOverview(ctx, c.company)
	if !res.OK {
		if res.Failure == gateway.FailureNetwork {
			return c.localOverview(), backendErr(res)
		}
		return models.CompanyOverview{}, backendErr(res)
	}
	var out models.CompanyOverview
	if err := decodeBody(res.Body, &out); err != nil {
		return models.CompanyOverview{}, err
	}
	return out, nil
}

func (c *Company) localOverview() models.CompanyOverview {
	out := models.CompanyOverview{Company: c.company}
	for _, in := range c.internships.Snapshot() {
		out.TotalInternships++
		switch in.Status {
		case models.InternshipActive:
			out.ActiveInternships++
		case models.InternshipPendingApproval:
			out.PendingInternships++
		}
	}
	for _, a := range c.applications.Snapshot() {
		out.TotalApplications++
		switch a.Status {
		case models.ApplicationSelected:
			out.ApplicationStatusCounts.Selected++
		case models.ApplicationRejected:
			out.ApplicationStatusCounts.Rejected++
		default:
			out.ApplicationStatusCounts.InReview++
		}
	}
	out.ApplicationStatusCounts.Total = out.TotalApplications
	return out
}

// UpdateProfile patches the company's own account record and keeps the
// session copy in step.
func (c *Company) UpdateProfile(ctx context.Context, fields map[string]any) error {
	if !c.alive() {
		return ErrClosed
	}
	payload := map[string]any{"email": c.email}
	for k, v := range fields {
		payload[k] = v
	}
	res := c.gw.UpdateUserByEmail(ctx, payload)
	if !res.OK {
		return backendErr(res)
	}
	updated := normalize.Account(res.Object("user"))
	c.sess.UpdateAccount(func(a *models.Account) {
		a.FullName = updated.FullName
		a.CompanyName = updated.CompanyName
		a.Designation = updated.Designation
		a.Phone = updated.Phone
		a.LinkedIn = updated.LinkedIn
	})
	if updated.CompanyName != "" {
		c.company = updated.CompanyName
	}
	return nil
}

// RequestVerification submits the verification request, with an optional
// supporting document.
func (c *Company) RequestVerification(ctx context.Context, linkedin, filename string, document io.Reader) error {
	if !c.alive() {
		return ErrClosed
	}
	if strings.TrimSpace(linkedin) == "" {
		return fmt.Errorf("%w: linkedin profile required", ErrValidation)
	}
	res := c.gw.RequestVerification(ctx, c.email, linkedin, filename, document)
	if !res.OK {
		return backendErr(res)
	}
	c.sess.UpdateAccount(func(a *models.Account) {
		a.VerificationStatus = models.VerificationPending
		a.LinkedIn = linkedin
	})
	c.bus.Publish(bus.TopicVerifications)
	return nil
}

// RefreshVerification re-reads the company record and publishes when the
// verification status moved, so badge state updates without a reload.
func (c *Company) RefreshVerification(ctx context.Context) (models.VerificationStatus, error) {
	if !c.alive() {
		return "", ErrClosed
	}
	res := c.gw.CompanyByEmail(ctx, c.email)
	if !res.OK {
		return "", backendErr(res)
	}
	acct := normalize.Account(res.Object("company"))
	status := acct.VerificationStatus
	changed := false
	c.sess.UpdateAccount(func(a *models.Account) {
		if a.VerificationStatus != status {
			changed = true
			a.VerificationStatus = status
			a.VerificationDocumentURL = acct.VerificationDocumentURL
		}
	})
	if changed {
		c.bus.Publish(bus.TopicVerifications)
	}
	return status, nil
}

// StartVerificationPoll re-checks the verification status on the given
// interval until the view closes. Poll errors are dropped: the next tick
// tries again.
func (c *Company) StartVerificationPoll(interval time.Duration) {
	c.pollOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-c.stop:
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), interval)
					_, _ = c.RefreshVerification(ctx)
					cancel()
				}
			}
		}()
	})
}
