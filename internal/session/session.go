// Package session holds the signed-in account shared by every portal view.
// The account is mirrored to the local cache so a restart resumes the same
// session, and views register with the session so teardown only happens when
// the last one detaches.
package session

import (
	"sync"

	"internlink/internal/cache"
	"internlink/internal/models"
)

type Session struct {
	mu      sync.RWMutex
	mirror  *cache.Mirror
	account *models.Account
	refs    int
}

// New restores any persisted account from the mirror.
func New(mirror *cache.Mirror) *Session {
	s := &Session{mirror: mirror}
	var acct models.Account
	if mirror != nil && mirror.Read(cache.KeySession, &acct) && acct.Email != "" {
		s.account = &acct
	}
	return s
}

// Account returns the signed-in account, or false when signed out.
func (s *Session) Account() (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return models.Account{}, false
	}
	return *s.account, true
}

func (s *Session) Role() (models.Role, bool) {
	acct, ok := s.Account()
	return acct.UserType, ok
}

// SetAccount signs the account in and persists it.
func (s *Session) SetAccount(acct models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = &acct
	if s.mirror != nil {
		s.mirror.Write(cache.KeySession, acct)
	}
}

// UpdateAccount applies fn to the signed-in account and re-persists it.
// No-op when signed out.
func (s *Session) UpdateAccount(fn func(*models.Account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return
	}
	fn(s.account)
	if s.mirror != nil {
		s.mirror.Write(cache.KeySession, *s.account)
	}
}

// Logout clears the account and wipes the local mirror so nothing from the
// old session leaks into the next one.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	if s.mirror != nil {
		s.mirror.Clear()
	}
}

// Attach registers a view against the session and returns a detach func.
// Detach is idempotent; the bool reports whether this detach was the last.
func (s *Session) Attach() (detach func() bool) {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()

	var once sync.Once
	return func() bool {
		last := false
		once.Do(func() {
			s.mu.Lock()
			s.refs--
			last = s.refs == 0
			s.mu.Unlock()
		})
		return last
	}
}

func (s *Session) Refs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs
}
