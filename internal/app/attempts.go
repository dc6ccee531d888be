package app

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"studysphere-tracker/internal/domain"
)

// AttemptLog is the append-only list of quiz attempts.
type AttemptLog struct {
	storage Storage
	session *Session
	users   *UserStore
	opts    Options
}

func NewAttemptLog(storage Storage, session *Session, users *UserStore, opts Options) *AttemptLog {
	return &AttemptLog{storage: storage, session: session, users: users, opts: opts.withDefaults()}
}

// ListAttempts filters by userID when given, otherwise by the session user,
// otherwise returns the whole log. Storage order is preserved.
func (l *AttemptLog) ListAttempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	all, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		if current, ok := l.session.Current(); ok {
			userID = current.ID
		}
	}
	if userID == "" {
		return all, nil
	}
	return filterByUser(all, userID), nil
}

// RecordAttempt logs a finished quiz for the session user and folds it into
// their stats. Without a session it does nothing and reports false.
func (l *AttemptLog) RecordAttempt(ctx context.Context, in domain.AttemptInput) (domain.QuizAttempt, bool, error) {
	user, ok := l.session.Current()
	if !ok {
		return domain.QuizAttempt{}, false, nil
	}
	if in.PassageID == "" || in.Score < 0 || in.Score > 100 || in.TimeElapsed < 0 || in.TotalQuestions < 0 {
		return domain.QuizAttempt{}, false, domain.ErrInvalidAttempt
	}

	// the stored record must exist before anything is appended
	users, err := l.users.ListUsers(ctx)
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}
	if !containsUser(users, user.ID) {
		l.opts.Logger.Warn("session user missing from users collection", zap.String("userId", user.ID))
		return domain.QuizAttempt{}, false, domain.ErrUnknownUser
	}

	log, err := l.all(ctx)
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}

	total := in.Score
	prior := filterByUser(log, user.ID)
	for _, a := range prior {
		total += a.Score
	}
	now := l.opts.Clock()

	user.Stats.TotalQuizzes++
	user.Stats.TotalTime += in.TimeElapsed
	user.Stats.AverageScore = roundMean(total, len(prior)+1)
	user.Stats.CurrentStreak = nextStreak(user.Stats.CurrentStreak, user.Stats.LastStudyDate, now, l.opts.Location)
	user.Stats.LastStudyDate = &now

	attempt := domain.QuizAttempt{
		ID:             l.opts.NewID("qa_"),
		UserID:         user.ID,
		PassageID:      in.PassageID,
		Score:          in.Score,
		TotalQuestions: in.TotalQuestions,
		TimeElapsed:    in.TimeElapsed,
		CompletedAt:    now,
	}
	log = append(log, attempt)
	if err := saveJSON(ctx, l.storage, AttemptsKey, log); err != nil {
		return domain.QuizAttempt{}, false, err
	}
	if err := l.users.UpdateUser(ctx, user); err != nil {
		return domain.QuizAttempt{}, false, err
	}
	l.opts.Logger.Debug("attempt recorded",
		zap.String("userId", user.ID),
		zap.String("passageId", in.PassageID),
		zap.Int("streak", user.Stats.CurrentStreak),
	)
	return attempt, true, nil
}

func (l *AttemptLog) all(ctx context.Context) ([]domain.QuizAttempt, error) {
	var attempts []domain.QuizAttempt
	_, err := loadJSON(ctx, l.storage, AttemptsKey, &attempts)
	var corrupt *errCorrupt
	if errors.As(err, &corrupt) {
		l.opts.Logger.Warn("attempt log unreadable, treating as empty", zap.Error(err))
		return []domain.QuizAttempt{}, nil
	}
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []domain.QuizAttempt{}
	}
	return attempts, nil
}

func containsUser(users []domain.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func filterByUser(attempts []domain.QuizAttempt, userID string) []domain.QuizAttempt {
	out := make([]domain.QuizAttempt, 0, len(attempts))
	for _, a := range attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// roundMean rounds half away from zero.
func roundMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// nextStreak applies the calendar-day streak rule in loc. There is no guard
// against clock skew or back-dated timestamps.
func nextStreak(streak int, last *time.Time, now time.Time, loc *time.Location) int {
	if last == nil {
		return 1
	}
	today := calendarDay(now, loc)
	lastDay := calendarDay(*last, loc)
	switch {
	case lastDay.Equal(today):
		return streak
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return streak + 1
	default:
		return 1
	}
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
