// Package state holds the in-memory working sets behind each portal view and
// the lifecycle of optimistic mutations against them. A mutation is applied
// to the local collection first, sent to the backend, and rolled back to the
// pre-mutation shape if the backend refuses it.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"internlink/internal/models"
)

type AttemptState string

const (
	AttemptIdle       AttemptState = "idle"
	AttemptSent       AttemptState = "sent"
	AttemptConfirmed  AttemptState = "confirmed"
	AttemptFailed     AttemptState = "failed"
	AttemptRolledBack AttemptState = "rolled_back"
)

var ErrAttemptInFlight = errors.New("mutation already in flight")

// Attempt tracks one optimistic mutation from local apply to backend
// confirmation. Only one attempt may be in flight per tracker at a time;
// starting a second while the first is sent is an error.
type Attempt struct {
	mu        sync.Mutex
	id        string
	state     AttemptState
	startedAt time.Time
	err       error
}

func NewAttempt() *Attempt {
	return &Attempt{state: AttemptIdle}
}

// Begin moves the attempt to sent and returns its request id.
func (a *Attempt) Begin() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AttemptSent {
		return "", ErrAttemptInFlight
	}
	a.id = uuid.NewString()
	a.state = AttemptSent
	a.startedAt = time.Now()
	a.err = nil
	return a.id, nil
}

func (a *Attempt) Confirm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AttemptSent {
		a.state = AttemptConfirmed
	}
}

// Fail records the refusal. RollBack is expected to follow once the local
// collection has been restored.
func (a *Attempt) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AttemptSent {
		a.state = AttemptFailed
		a.err = err
	}
}

func (a *Attempt) RollBack() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AttemptFailed {
		a.state = AttemptRolledBack
	}
}

func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Applications is the mutex-guarded working set of application records.
// Snapshot returns a copy suitable for restoring after a failed mutation.
type Applications struct {
	mu    sync.RWMutex
	items []models.Application
}

func (c *Applications) Snapshot() []models.Application {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Application, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Applications) Replace(items []models.Application) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]models.Application, len(items))
	copy(c.items, items)
}

func (c *Applications) Prepend(app models.Application) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]models.Application{app}, c.items...)
}

// RemoveByID takes the record out and reports where it sat, so a rollback
// can put it back at the same position.
func (c *Applications) RemoveByID(id string) (models.Application, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, app := range c.items {
		if app.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return app, i, true
		}
	}
	return models.Application{}, -1, false
}

func (c *Applications) InsertAt(i int, app models.Application) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i > len(c.items) {
		i = len(c.items)
	}
	c.items = append(c.items[:i:i], append([]models.Application{app}, c.items[i:]...)...)
}

func (c *Applications) UpdateByID(id string, fn func(*models.Application)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			fn(&c.items[i])
			return true
		}
	}
	return false
}

func (c *Applications) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Internships is the mutex-guarded working set of internship records.
type Internships struct {
	mu    sync.RWMutex
	items []models.Internship
}

func (c *Internships) Snapshot() []models.Internship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Internship, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Internships) Replace(items []models.Internship) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]models.Internship, len(items))
	copy(c.items, items)
}

func (c *Internships) Prepend(in models.Internship) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]models.Internship{in}, c.items...)
}

func (c *Internships) RemoveByID(id string) (models.Internship, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, in := range c.items {
		if in.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return in, i, true
		}
	}
	return models.Internship{}, -1, false
}

func (c *Internships) InsertAt(i int, in models.Internship) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i > len(c.items) {
		i = len(c.items)
	}
	c.items = append(c.items[:i:i], append([]models.Internship{in}, c.items[i:]...)...)
}

func (c *Internships) UpdateByID(id string, fn func(*models.Internship)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			fn(&c.items[i])
			return true
		}
	}
	return false
}

func (c *Internships) FindByID(id string) (models.Internship, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, in := range c.items {
		if in.ID == id {
			return in, true
		}
	}
	return models.Internship{}, false
}

func (c *Internships) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
