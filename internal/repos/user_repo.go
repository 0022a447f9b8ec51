package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/internal/domain"
)

// UserRepo stores accounts and the sid-to-user bindings of signed-in browsers.
type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// ByEmail matches case-insensitively. A missing account yields sql.ErrNoRows.
func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	if err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return errors.Wrap(err, "repos: bind session")
}

// RotateSession binds userID to next and forgets prev in one transaction,
// so the two ids are never both signed in. prev may be empty.
func (r *UserRepo) RotateSession(prev, next, userID string) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return errors.Wrap(err, "repos: rotate session")
	}
	defer func() { _ = tx.Rollback() }()

	if prev != "" {
		if _, err := tx.Exec(`DELETE FROM sessions WHERE id=?`, prev); err != nil {
			return errors.Wrap(err, "repos: drop previous session")
		}
	}
	if _, err := tx.Exec(`INSERT INTO sessions(id,user_id,last_seen) VALUES(?,?,CURRENT_TIMESTAMP)`, next, userID); err != nil {
		return errors.Wrap(err, "repos: bind session")
	}
	return errors.Wrap(tx.Commit(), "repos: rotate session")
}

// SessionUser returns the user signed in under sid and touches last_seen.
func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	_, _ = r.DB.Exec(`UPDATE sessions SET last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return errors.Wrap(err, "repos: unbind session")
}
