package state

import (
	"errors"
	"reflect"
	"testing"

	"internlink/internal/models"
)

func TestAttemptLifecycle(t *testing.T) {
	t.Parallel()

	a := NewAttempt()
	if a.State() != AttemptIdle {
		t.Fatalf("initial state = %q", a.State())
	}
	id, err := a.Begin()
	if err != nil || id == "" {
		t.Fatalf("Begin() = %q, %v", id, err)
	}
	if a.State() != AttemptSent {
		t.Fatalf("state after Begin = %q", a.State())
	}
	if _, err := a.Begin(); !errors.Is(err, ErrAttemptInFlight) {
		t.Fatalf("second Begin err = %v, want ErrAttemptInFlight", err)
	}
	a.Confirm()
	if a.State() != AttemptConfirmed {
		t.Fatalf("state after Confirm = %q", a.State())
	}
	if _, err := a.Begin(); err != nil {
		t.Fatalf("Begin after Confirm should restart, got %v", err)
	}
}

func TestAttemptFailThenRollBack(t *testing.T) {
	t.Parallel()

	a := NewAttempt()
	if _, err := a.Begin(); err != nil {
		t.Fatal(err)
	}
	refused := errors.New("backend refused")
	a.Fail(refused)
	if a.State() != AttemptFailed {
		t.Fatalf("state = %q", a.State())
	}
	if !errors.Is(a.Err(), refused) {
		t.Fatalf("err = %v", a.Err())
	}
	a.RollBack()
	if a.State() != AttemptRolledBack {
		t.Fatalf("state = %q", a.State())
	}
	// RollBack without a prior failure is a no-op.
	a.Confirm()
	if a.State() != AttemptRolledBack {
		t.Fatalf("confirm after rollback should not apply, state = %q", a.State())
	}
}

func apps(ids ...string) []models.Application {
	out := make([]models.Application, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Application{ID: id})
	}
	return out
}

func appIDs(items []models.Application) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestApplicationsRemoveRestoresAtOriginalIndex(t *testing.T) {
	t.Parallel()

	var c Applications
	c.Replace(apps("a", "b", "c"))

	removed, idx, ok := c.RemoveByID("b")
	if !ok || idx != 1 || removed.ID != "b" {
		t.Fatalf("RemoveByID = %+v, %d, %v", removed, idx, ok)
	}
	if got := appIDs(c.Snapshot()); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("after remove: %v", got)
	}

	c.InsertAt(idx, removed)
	if got := appIDs(c.Snapshot()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("after restore: %v", got)
	}
}

func TestApplicationsSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	var c Applications
	c.Replace(apps("a", "b"))
	snap := c.Snapshot()
	snap[0].ID = "mutated"
	if got := c.Snapshot()[0].ID; got != "a" {
		t.Fatalf("snapshot mutation leaked into collection: %q", got)
	}
}

func TestApplicationsPrependAndUpdate(t *testing.T) {
	t.Parallel()

	var c Applications
	c.Replace(apps("b"))
	c.Prepend(models.Application{ID: "a"})
	if got := appIDs(c.Snapshot()); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("after prepend: %v", got)
	}
	if !c.UpdateByID("b", func(a *models.Application) { a.Status = models.ApplicationSelected }) {
		t.Fatal("UpdateByID missed existing record")
	}
	if c.Snapshot()[1].Status != models.ApplicationSelected {
		t.Fatal("update not applied")
	}
	if c.UpdateByID("nope", func(*models.Application) {}) {
		t.Fatal("UpdateByID hit a missing record")
	}
}

func TestInternshipsInsertAtClampsIndex(t *testing.T) {
	t.Parallel()

	var c Internships
	c.Replace([]models.Internship{{ID: "a"}})
	c.InsertAt(99, models.Internship{ID: "b"})
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	if in, ok := c.FindByID("b"); !ok || in.ID != "b" {
		t.Fatalf("FindByID = %+v, %v", in, ok)
	}
}
