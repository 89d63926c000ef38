package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Collection keys. These match the keys the dashboards have always shared, so
// a mirror written by one portal is readable by the others.
const (
	KeyInternships   = "platform_internships"
	KeyApplications  = "platform_applications"
	KeyVerifications = "verification_requests"
	KeySession       = "internlink_user"
)

func ResumeKey(email string) string { return "student_resume_" + email }

// Mirror is the local fallback store: one JSON value per collection key,
// overwritten wholesale on every successful fetch. It is read only when a
// live fetch fails, so every operation here degrades instead of erroring:
// writes are best-effort and corrupt entries read as absent.
type Mirror struct {
	db *sql.DB
}

func Open(path string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS mirror(
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init mirror table: %w", err)
	}
	return &Mirror{db: db}, nil
}

func (m *Mirror) Close() error { return m.db.Close() }

// Write stores v under key, replacing whatever was there. Serialization or
// storage failures leave the previous entry in place.
func (m *Mirror) Write(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = m.db.Exec(
		`INSERT INTO mirror(key,value,updated_at) VALUES(?,?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(raw), time.Now().UTC(),
	)
}

// Read unmarshals the last-written value for key into out and reports whether
// a usable entry existed. Absent and corrupt entries both report false and
// leave out untouched.
func (m *Mirror) Read(key string, out any) bool {
	var raw string
	err := m.db.QueryRow(`SELECT value FROM mirror WHERE key=?`, key).Scan(&raw)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (m *Mirror) Delete(key string) {
	_, _ = m.db.Exec(`DELETE FROM mirror WHERE key=?`, key)
}

// Clear wipes every entry. Used on logout teardown.
func (m *Mirror) Clear() {
	_, _ = m.db.Exec(`DELETE FROM mirror`)
}
