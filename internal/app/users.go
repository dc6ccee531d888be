package app

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf16"

	"go.uber.org/zap"
	"studysphere-tracker/internal/domain"
)

// UserStore owns the users collection. Every mutation rewrites the whole
// collection and keeps the session copy in sync.
type UserStore struct {
	storage Storage
	session *Session
	opts    Options
}

func NewUserStore(storage Storage, session *Session, opts Options) *UserStore {
	return &UserStore{storage: storage, session: session, opts: opts.withDefaults()}
}

// ListUsers returns every stored user. A corrupt collection reads as empty.
func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	_, err := loadJSON(ctx, s.storage, UsersKey, &users)
	var corrupt *errCorrupt
	if errors.As(err, &corrupt) {
		s.opts.Logger.Warn("users collection unreadable, treating as empty", zap.Error(err))
		return []domain.User{}, nil
	}
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// FindByEmail looks a user up by exact email match.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// Register validates the form, creates the account and logs it in.
func (s *UserStore) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return domain.User{}, domain.ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return domain.User{}, domain.ErrPasswordMismatch
	}
	// length in UTF-16 code units, as the browser app measures it
	if len(utf16.Encode([]rune(in.Password))) < domain.MinPasswordLength {
		return domain.User{}, domain.ErrPasswordTooShort
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.Email == in.Email {
			return domain.User{}, domain.ErrDuplicateEmail
		}
	}

	digest, err := s.opts.Hasher.Digest(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("digest password: %w", err)
	}
	now := s.opts.Clock()
	user := domain.User{
		ID:             s.opts.NewID("u_"),
		Email:          in.Email,
		FullName:       in.FullName,
		TargetExam:     in.TargetExam,
		PasswordDigest: digest,
		CreatedAt:      now,
		LastLogin:      now,
		Preferences:    domain.DefaultPreferences(),
		Stats:          domain.Stats{},
	}

	users = append(users, user)
	if err := saveJSON(ctx, s.storage, UsersKey, users); err != nil {
		return domain.User{}, err
	}
	if err := s.session.Set(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.opts.Logger.Info("user registered", zap.String("userId", user.ID))
	return user.Clone(), nil
}

// Login checks credentials, stamps lastLogin and sets the session. Legacy
// digests are upgraded when the hasher asks for it.
func (s *UserStore) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, ok, err := s.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		s.opts.Logger.Warn("login for unknown email", zap.String("email", email))
		return domain.User{}, domain.ErrUserNotFound
	}
	if !s.opts.Hasher.Verify(password, user.PasswordDigest) {
		s.opts.Logger.Warn("login with wrong password", zap.String("email", email))
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if s.opts.Hasher.NeedsRehash(user.PasswordDigest) {
		digest, err := s.opts.Hasher.Digest(password)
		if err != nil {
			return domain.User{}, fmt.Errorf("rehash password: %w", err)
		}
		user.PasswordDigest = digest
		s.opts.Logger.Info("upgraded password digest", zap.String("userId", user.ID))
	}
	user.LastLogin = s.opts.Clock()
	if err := s.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	if err := s.session.Set(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.opts.Logger.Info("user logged in", zap.String("userId", user.ID))
	return user.Clone(), nil
}

// UpdateUser replaces the stored record with the same id and refreshes the
// session when it holds that user.
func (s *UserStore) UpdateUser(ctx context.Context, user domain.User) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range users {
		if users[i].ID == user.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrUnknownUser
	}
	users[idx] = user
	if err := saveJSON(ctx, s.storage, UsersKey, users); err != nil {
		return err
	}
	if s.session.isCurrent(user.ID) {
		return s.session.Set(ctx, user)
	}
	return nil
}
