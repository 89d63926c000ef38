// Package devserver is the backing HTTP API the portals talk to. Records are
// schemaless JSON documents persisted in a relational table per collection,
// so the same server runs on sqlite for local work and postgres or mysql in
// shared environments.
package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"internlink/internal/config"
)

const (
	TableUsers        = "users"
	TableCompanies    = "companies"
	TableInternships  = "internships"
	TableApplications = "applications"
	TableResumes      = "resumes"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("email already registered")
)

// Doc is one schemaless record. The record id is mirrored into the doc under
// "id" so list responses need no extra fixup.
type Doc = map[string]any

type Store struct {
	db     *sql.DB
	driver string
}

func OpenStore(cfg config.Config) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", cfg.DBPath)
		db, err = sql.Open("sqlite", dsn)
	case "postgres":
		db, err = sql.Open("pgx", cfg.DBDSN)
	case "mysql":
		db, err = sql.Open("mysql", cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Store{db: db, driver: cfg.DBDriver}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ApplyMigrationFile runs the schema file statement by statement so the
// mysql driver works without multiStatements.
func (s *Store) ApplyMigrationFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	for _, stmt := range strings.Split(string(b), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil && !isAlreadyExistsErr(err) {
			return fmt.Errorf("apply migration %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func isAlreadyExistsErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (s *Store) ph(i int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func isDuplicateKeyErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

// Insert stores a new document. The email column is only meaningful for the
// collections with a unique email index; pass "" for the rest.
func (s *Store) Insert(ctx context.Context, table, id, email string, doc Doc) error {
	doc["id"] = id
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (id, email, doc) VALUES (%s, %s, %s)",
		table, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, q, id, email, string(raw)); err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, table, id string) (Doc, error) {
	q := fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", table, s.ph(1))
	return s.getOne(ctx, q, id)
}

func (s *Store) GetByEmail(ctx context.Context, table, email string) (Doc, error) {
	q := fmt.Sprintf("SELECT doc FROM %s WHERE email = %s", table, s.ph(1))
	return s.getOne(ctx, q, email)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode stored doc: %w", err)
	}
	return doc, nil
}

// List loads the whole collection. Filtering happens in the handlers; the
// collections here are development-sized.
func (s *Store) List(ctx context.Context, table string) ([]Doc, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT doc FROM %s ORDER BY id", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Doc
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc Doc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode stored doc: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Patch merges fields into the stored doc, mirroring a $set update.
func (s *Store) Patch(ctx context.Context, table, id string, fields Doc) (Doc, error) {
	doc, err := s.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	if err := s.replace(ctx, table, "id", id, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) PatchByEmail(ctx context.Context, table, email string, fields Doc) (Doc, error) {
	doc, err := s.GetByEmail(ctx, table, email)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	if err := s.replace(ctx, table, "email", email, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) replace(ctx context.Context, table, col, key string, doc Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET doc = %s WHERE %s = %s", table, s.ph(1), col, s.ph(2))
	_, err = s.db.ExecContext(ctx, q, string(raw), key)
	return err
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteByEmail(ctx context.Context, table, email string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE email = %s", table, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertByEmail replaces the document keyed by email, inserting when absent.
func (s *Store) UpsertByEmail(ctx context.Context, table, id, email string, doc Doc) error {
	existing, err := s.GetByEmail(ctx, table, email)
	if errors.Is(err, ErrNotFound) {
		return s.Insert(ctx, table, id, email, doc)
	}
	if err != nil {
		return err
	}
	// Keep the original id on replace.
	if prev, ok := existing["id"].(string); ok && prev != "" {
		id = prev
	}
	doc["id"] = id
	return s.replace(ctx, table, "email", email, doc)
}
