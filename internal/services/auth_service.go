package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

// ScreenReleaser drops whatever server-side screens belong to a sid.
type ScreenReleaser interface {
	Release(sid string)
}

type AuthService struct {
	Users   *repos.UserRepo
	Screens ScreenReleaser
}

// Login checks the credentials and signs the user in under a freshly issued
// sid, which the caller must hand back to the browser. The previous sid is
// signed out and its screens released, so no state crosses a login.
func (s *AuthService) Login(prevSID, email, password string) (*domain.User, string, error) {
	u, err := s.Users.ByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrBadCreds
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "auth: look up user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, "", ErrBadCreds
	}

	sid := uuid.NewString()
	if err := s.Users.RotateSession(prevSID, sid, u.ID); err != nil {
		return nil, "", err
	}
	if prevSID != "" {
		s.release(prevSID)
	}
	return u, sid, nil
}

// Logout signs sid out and releases its screens. The screens go even when
// the store write fails.
func (s *AuthService) Logout(sid string) error {
	s.release(sid)
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

func (s *AuthService) release(sid string) {
	if s.Screens != nil {
		s.Screens.Release(sid)
	}
}
