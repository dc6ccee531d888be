package app

import (
	"context"
	"sync"

	"studysphere-tracker/internal/domain"
)

// Tracker contains the account and progress use cases. Each call runs to
// completion under one lock, so the read-modify-write of whole collections
// never interleaves within a process.
type Tracker struct {
	mu       sync.Mutex
	session  *Session
	users    *UserStore
	attempts *AttemptLog
	progress *ProgressAggregator
}

// NewTracker wires the components over storage and loads the persisted session.
func NewTracker(ctx context.Context, storage Storage, catalog PassageCatalog, opts Options) (*Tracker, error) {
	opts = opts.withDefaults()
	session := NewSession(storage, opts.Logger)
	if err := session.Load(ctx); err != nil {
		return nil, err
	}
	users := NewUserStore(storage, session, opts)
	attempts := NewAttemptLog(storage, session, users, opts)
	return &Tracker{
		session:  session,
		users:    users,
		attempts: attempts,
		progress: NewProgressAggregator(session, attempts, catalog),
	}, nil
}

// Register creates an account and makes it the session user.
func (t *Tracker) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users.Register(ctx, in)
}

// Login verifies credentials and makes the account the session user.
func (t *Tracker) Login(ctx context.Context, email, password string) (domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users.Login(ctx, email, password)
}

// Logout clears the session.
func (t *Tracker) Logout(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Logout(ctx)
}

// CurrentUser returns the session user, if any.
func (t *Tracker) CurrentUser() (domain.User, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Current()
}

// ListUsers returns every stored account.
func (t *Tracker) ListUsers(ctx context.Context) ([]domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users.ListUsers(ctx)
}

// FindByEmail looks an account up by exact email.
func (t *Tracker) FindByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users.FindByEmail(ctx, email)
}

// UpdateUser replaces the stored account with the same id.
func (t *Tracker) UpdateUser(ctx context.Context, user domain.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users.UpdateUser(ctx, user)
}

// ListAttempts returns attempts for userID, the session user, or everyone.
func (t *Tracker) ListAttempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts.ListAttempts(ctx, userID)
}

// RecordAttempt logs an attempt for the session user and updates their stats.
func (t *Tracker) RecordAttempt(ctx context.Context, in domain.AttemptInput) (domain.QuizAttempt, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts.RecordAttempt(ctx, in)
}

// ComputeProgress builds the session user's report; ok is false without a session.
func (t *Tracker) ComputeProgress(ctx context.Context) (domain.ProgressReport, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.ComputeProgress(ctx)
}
