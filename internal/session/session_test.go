package session

import (
	"path/filepath"
	"testing"

	"internlink/internal/cache"
	"internlink/internal/models"
)

func newTestMirror(t *testing.T) *cache.Mirror {
	t.Helper()
	m, err := cache.Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSessionPersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	m := newTestMirror(t)
	s := New(m)
	if _, ok := s.Account(); ok {
		t.Fatal("fresh session should be signed out")
	}

	s.SetAccount(models.Account{Email: "s@uni.edu", UserType: models.RoleStudent})

	restored := New(m)
	acct, ok := restored.Account()
	if !ok || acct.Email != "s@uni.edu" || acct.UserType != models.RoleStudent {
		t.Fatalf("restored account = %+v, %v", acct, ok)
	}
}

func TestLogoutWipesMirror(t *testing.T) {
	t.Parallel()

	m := newTestMirror(t)
	m.Write(cache.KeyApplications, []models.Application{{ID: "a1"}})
	s := New(m)
	s.SetAccount(models.Account{Email: "c@corp.test", UserType: models.RoleCompany})

	s.Logout()

	if _, ok := s.Account(); ok {
		t.Fatal("logout should sign out")
	}
	var apps []models.Application
	if m.Read(cache.KeyApplications, &apps) {
		t.Fatal("logout should wipe cached collections")
	}
	if _, ok := New(m).Account(); ok {
		t.Fatal("logout should not survive restart")
	}
}

func TestUpdateAccountRepersists(t *testing.T) {
	t.Parallel()

	m := newTestMirror(t)
	s := New(m)
	s.SetAccount(models.Account{Email: "c@corp.test", UserType: models.RoleCompany})

	s.UpdateAccount(func(a *models.Account) {
		a.VerificationStatus = models.VerificationVerified
	})

	acct, _ := New(m).Account()
	if acct.VerificationStatus != models.VerificationVerified {
		t.Fatalf("persisted verificationStatus = %q", acct.VerificationStatus)
	}
}

func TestAttachDetachRefCounting(t *testing.T) {
	t.Parallel()

	s := New(nil)
	d1 := s.Attach()
	d2 := s.Attach()
	if s.Refs() != 2 {
		t.Fatalf("refs = %d", s.Refs())
	}
	if last := d1(); last {
		t.Fatal("first detach should not be last")
	}
	if last := d1(); last {
		t.Fatal("repeated detach must be a no-op")
	}
	if last := d2(); !last {
		t.Fatal("second detach should be last")
	}
	if s.Refs() != 0 {
		t.Fatalf("refs = %d", s.Refs())
	}
}
