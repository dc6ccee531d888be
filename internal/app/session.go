package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"studysphere-tracker/internal/domain"
)

// Session holds the single current user (or none) and mirrors it into
// storage under SessionKey.
type Session struct {
	storage Storage
	logger  *zap.Logger
	current *domain.User
}

func NewSession(storage Storage, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{storage: storage, logger: logger}
}

// Load restores the persisted session. A value that fails to decode is
// purged and treated as logged out.
func (s *Session) Load(ctx context.Context) error {
	var user domain.User
	ok, err := loadJSON(ctx, s.storage, SessionKey, &user)
	var corrupt *errCorrupt
	if errors.As(err, &corrupt) {
		s.logger.Warn("discarding corrupt session", zap.Error(err))
		s.current = nil
		if err := s.storage.Delete(ctx, SessionKey); err != nil {
			return fmt.Errorf("purge session: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		s.current = nil
		return nil
	}
	s.current = &user
	return nil
}

// Current returns a copy of the session user.
func (s *Session) Current() (domain.User, bool) {
	if s.current == nil {
		return domain.User{}, false
	}
	return s.current.Clone(), true
}

// Set makes user the session user and persists it.
func (s *Session) Set(ctx context.Context, user domain.User) error {
	if err := saveJSON(ctx, s.storage, SessionKey, user); err != nil {
		return err
	}
	u := user.Clone()
	s.current = &u
	return nil
}

// Logout clears the session and removes the persisted key.
func (s *Session) Logout(ctx context.Context) error {
	if s.current != nil {
		s.logger.Info("user logged out", zap.String("userId", s.current.ID))
	}
	s.current = nil
	if err := s.storage.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Session) isCurrent(userID string) bool {
	return s.current != nil && s.current.ID == userID
}
