package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// SeedUser is an account OpenDB creates unless its email is already taken.
// Entries with a blank email are skipped.
type SeedUser struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Password string
}

// OpenDB opens the SQLite database, prepares the account tables and seeds
// the given users. Seeding is idempotent, so it runs on every start.
func OpenDB(dsn string, seed ...SeedUser) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "repos: open %s", dsn)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" is
	// per-connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "repos: ping %s", dsn)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := seedUsers(db, seed); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- id is the value of the sid cookie
CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`)
	return errors.Wrap(err, "repos: create schema")
}

func seedUsers(db *sqlx.DB, users []SeedUser) error {
	if len(users) == 0 {
		return nil
	}
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "repos: seed users")
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range users {
		if u.Email == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrapf(err, "repos: hash password for %s", u.Email)
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT DO NOTHING
		`, u.ID, u.Email, u.Name, string(hash), u.Role); err != nil {
			return errors.Wrapf(err, "repos: seed user %s", u.Email)
		}
	}
	return errors.Wrap(tx.Commit(), "repos: seed users")
}
