package portal

import (
	"context"
	"fmt"
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

// Admin is the moderation view: user management, the internship approval
// queue, the verification queue, and platform analytics.
type Admin struct {
	view

	internships state.Internships

	mu            sync.Mutex
	users         []models.Account
	verifications []models.VerificationRequest
	activity      []ActivityEntry
}

// ActivityEntry is one line of the recent-activity feed: a confirmed
// moderation action and when it happened.
type ActivityEntry struct {
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Subject string    `json:"subject"`
}

const activityLimit = 20

func NewAdmin(gw *gateway.Client, mirror *cache.Mirror, b *bus.Bus, sess *session.Session) (*Admin, error) {
	acct, ok := sess.Account()
	if !ok || acct.UserType != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin account required", ErrSignedOut)
	}
	a := &Admin{}
	a.view.init(gw, mirror, b, sess)

	var cached []models.VerificationRequest
	if mirror.Read(cache.KeyVerifications, &cached) {
		a.verifications = cached
	}
	return a, nil
}

func (a *Admin) Close() { a.close() }

func (a *Admin) Users() []models.Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Account, len(a.users))
	copy(out, a.users)
	return out
}

func (a *Admin) Internships() []models.Internship { return a.internships.Snapshot() }

func (a *Admin) Verifications() []models.VerificationRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.VerificationRequest, len(a.verifications))
	copy(out, a.verifications)
	return out
}

// Activity returns the recent-activity feed, newest first.
func (a *Admin) Activity() []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ActivityEntry, len(a.activity))
	copy(out, a.activity)
	return out
}

func (a *Admin) recordActivity(action, subject string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activity = append([]ActivityEntry{{At: time.Now().UTC(), Action: action, Subject: subject}}, a.activity...)
	if len(a.activity) > activityLimit {
		a.activity = a.activity[:activityLimit]
	}
}

func (a *Admin) LoadUsers(ctx context.Context, q string) error {
	if !a.alive() {
		return ErrClosed
	}
	res := a.gw.ListUsers(ctx, q)
	if !res.OK {
		return backendErr(res)
	}
	users := normalize.Accounts(res.List("users"))
	a.mu.Lock()
	a.users = users
	a.mu.Unlock()
	return nil
}

func (a *Admin) SuspendUser(ctx context.Context, id string) error {
	return a.setUserStatus(ctx, id, models.AccountSuspended)
}

func (a *Admin) ActivateUser(ctx context.Context, id string) error {
	return a.setUserStatus(ctx, id, models.AccountActive)
}

// setUserStatus flips the account status optimistically and restores the
// previous value if the backend refuses.
func (a *Admin) setUserStatus(ctx context.Context, id string, status models.AccountStatus) error {
	if !a.alive() {
		return ErrClosed
	}
	prev, ok := a.swapUserStatus(id, status)
	if !ok {
		return fmt.Errorf("%w: unknown user %s", ErrBackend, id)
	}
	var res gateway.Result
	if status == models.AccountSuspended {
		res = a.gw.SuspendUser(ctx, id)
	} else {
		res = a.gw.ActivateUser(ctx, id)
	}
	if !res.OK {
		a.swapUserStatus(id, prev)
		return backendErr(res)
	}
	action := "activated user"
	if status == models.AccountSuspended {
		action = "suspended user"
	}
	a.recordActivity(action, id)
	return nil
}

func (a *Admin) swapUserStatus(id string, status models.AccountStatus) (models.AccountStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.users {
		if a.users[i].ID == id {
			prev := a.users[i].Status
			a.users[i].Status = status
			return prev, true
		}
	}
	return "", false
}

// DeleteUser removes the account optimistically and restores it at its
// original position if the backend refuses.
func (a *Admin) DeleteUser(ctx context.Context, id string) error {
	if !a.alive() {
		return ErrClosed
	}
	a.mu.Lock()
	idx := -1
	var removed models.Account
	for i := range a.users {
		if a.users[i].ID == id {
			idx = i
			removed = a.users[i]
			a.users = append(a.users[:i:i], a.users[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: unknown user %s", ErrBackend, id)
	}

	res := a.gw.DeleteUser(ctx, id)
	if !res.OK && res.Status != 404 {
		a.mu.Lock()
		if idx > len(a.users) {
			idx = len(a.users)
		}
		a.users = append(a.users[:idx:idx], append([]models.Account{removed}, a.users[idx:]...)...)
		a.mu.Unlock()
		return backendErr(res)
	}
	a.recordActivity("deleted user", removed.Email)
	return nil
}

func (a *Admin) LoadInternships(ctx context.Context) error {
	if !a.alive() {
		return ErrClosed
	}
	res := a.gw.ListInternships(ctx, "", "")
	if !res.OK {
		return backendErr(res)
	}
	items := normalize.Internships(res.List("internships"))
	a.internships.Replace(items)
	a.mirror.Write(cache.KeyInternships, items)
	a.bus.Publish(bus.TopicInternships)
	return nil
}

func (a *Admin) ApproveInternship(ctx context.Context, id string) error {
	return a.moderateInternship(ctx, id, models.InternshipActive)
}

func (a *Admin) RejectInternship(ctx context.Context, id string) error {
	return a.moderateInternship(ctx, id, models.InternshipRejected)
}

func (a *Admin) moderateInternship(ctx context.Context, id string, status models.InternshipStatus) error {
	if !a.alive() {
		return ErrClosed
	}
	var prev models.InternshipStatus
	if !a.internships.UpdateByID(id, func(in *models.Internship) {
		prev = in.Status
		in.Status = status
	}) {
		return fmt.Errorf("%w: unknown internship %s", ErrBackend, id)
	}
	a.publishInternships()

	var res gateway.Result
	if status == models.InternshipRejected {
		res = a.gw.RejectInternship(ctx, id)
	} else {
		res = a.gw.ApproveInternship(ctx, id)
	}
	if !res.OK {
		a.internships.UpdateByID(id, func(in *models.Internship) { in.Status = prev })
		a.publishInternships()
		return backendErr(res)
	}
	action := "approved internship"
	if status == models.InternshipRejected {
		action = "rejected internship"
	}
	a.recordActivity(action, id)
	return nil
}

func (a *Admin) publishInternships() {
	a.mirror.Write(cache.KeyInternships, a.internships.Snapshot())
	a.bus.Publish(bus.TopicInternships)
}

func (a *Admin) LoadVerifications(ctx context.Context) error {
	if !a.alive() {
		return ErrClosed
	}
	res := a.gw.ListVerifications(ctx)
	if !res.OK {
		return backendErr(res)
	}
	items := normalize.Verifications(res.List("verifications"))
	a.mu.Lock()
	a.verifications = items
	a.mu.Unlock()
	a.mirror.Write(cache.KeyVerifications, items)
	return nil
}

// ResolveVerification approves or rejects a request. The entry leaves the
// local queue immediately and returns at its original position if the
// backend refuses.
func (a *Admin) ResolveVerification(ctx context.Context, id string, approve bool) error {
	if !a.alive() {
		return ErrClosed
	}
	a.mu.Lock()
	idx := -1
	var removed models.VerificationRequest
	for i := range a.verifications {
		if a.verifications[i].ID == id {
			idx = i
			removed = a.verifications[i]
			a.verifications = append(a.verifications[:i:i], a.verifications[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: unknown verification %s", ErrBackend, id)
	}
	a.mirror.Write(cache.KeyVerifications, a.Verifications())
	a.bus.Publish(bus.TopicVerifications)

	action := "approve"
	if !approve {
		action = "reject"
	}
	res := a.gw.ResolveVerification(ctx, id, action)
	if !res.OK {
		a.mu.Lock()
		if idx > len(a.verifications) {
			idx = len(a.verifications)
		}
		a.verifications = append(a.verifications[:idx:idx],
			append([]models.VerificationRequest{removed}, a.verifications[idx:]...)...)
		a.mu.Unlock()
		a.mirror.Write(cache.KeyVerifications, a.Verifications())
		a.bus.Publish(bus.TopicVerifications)
		return backendErr(res)
	}
	verb := "approved"
	if !approve {
		verb = "rejected"
	}
	a.recordActivity(verb+" verification", removed.CompanyName)
	return nil
}

func (a *Admin) Analytics(ctx context.Context) (models.Analytics, error) {
	if !a.alive() {
		return models.Analytics{}, ErrClosed
	}
	res := a.gw.Analytics(ctx)
	if !res.OK {
		return models.Analytics{}, backendErr(res)
	}
	var out models.Analytics
	if err := decodeBody(res.Body, &out); err != nil {
		return models.Analytics{}, err
	}
	return out, nil
}
