package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/crypto"
	"studysphere-tracker/internal/domain"
	"studysphere-tracker/internal/infra/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type env struct {
	storage *memory.Storage
	clock   *fakeClock
	opts    app.Options
	tracker *app.Tracker
}

var testArgon = crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStorage(t, memory.NewStorage())
}

func newEnvWithStorage(t *testing.T, storage *memory.Storage) *env {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	seq := 0
	opts := app.Options{
		Clock:    clock.Now,
		Location: time.UTC,
		Hasher:   crypto.NewArgon2Hasher(testArgon),
		NewID: func(prefix string) string {
			seq++
			return fmt.Sprintf("%s%d", prefix, seq)
		},
		Logger: zap.NewNop(),
	}
	catalog := memory.NewStaticPassageLoader([]domain.Passage{
		{ID: "bio-1", Subject: "biology"},
		{ID: "bio-2", Subject: "biology"},
		{ID: "phy-1", Subject: "physics"},
		{ID: "eng-1", Subject: "english"},
		{ID: "astro-1", Subject: "astronomy"},
	})
	tracker, err := app.NewTracker(context.Background(), storage, catalog, opts)
	require.NoError(t, err)
	return &env{storage: storage, clock: clock, opts: opts, tracker: tracker}
}

func registerInput(email string) domain.RegisterInput {
	return domain.RegisterInput{
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FullName:        "Ada Lovelace",
		TargetExam:      "MCAT",
	}
}

func (e *env) register(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := e.tracker.Register(context.Background(), registerInput(email))
	require.NoError(t, err)
	return u
}

func (e *env) attempt(t *testing.T, passageID string, score, elapsed int) domain.QuizAttempt {
	t.Helper()
	a, recorded, err := e.tracker.RecordAttempt(context.Background(), domain.AttemptInput{
		PassageID:      passageID,
		Score:          score,
		TimeElapsed:    elapsed,
		TotalQuestions: 5,
	})
	require.NoError(t, err)
	require.True(t, recorded)
	return a
}

func (e *env) current(t *testing.T) domain.User {
	t.Helper()
	u, ok := e.tracker.CurrentUser()
	require.True(t, ok, "expected a session user")
	return u
}
