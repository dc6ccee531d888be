package app

import (
	"context"
	"fmt"

	"studysphere-tracker/internal/domain"
)

// ProgressAggregator derives per-subject statistics for the session user.
// Reports are recomputed on every call.
type ProgressAggregator struct {
	session  *Session
	attempts *AttemptLog
	catalog  PassageCatalog
}

func NewProgressAggregator(session *Session, attempts *AttemptLog, catalog PassageCatalog) *ProgressAggregator {
	return &ProgressAggregator{session: session, attempts: attempts, catalog: catalog}
}

// ComputeProgress reports false when nobody is logged in.
func (p *ProgressAggregator) ComputeProgress(ctx context.Context) (domain.ProgressReport, bool, error) {
	user, ok := p.session.Current()
	if !ok {
		return domain.ProgressReport{}, false, nil
	}
	attempts, err := p.attempts.ListAttempts(ctx, user.ID)
	if err != nil {
		return domain.ProgressReport{}, false, err
	}
	subjectOf, err := p.subjectIndex(ctx)
	if err != nil {
		return domain.ProgressReport{}, false, err
	}

	type bucket struct {
		count, scoreSum, time int
	}
	buckets := make(map[string]*bucket, len(domain.Subjects))
	for _, subject := range domain.Subjects {
		buckets[subject] = &bucket{}
	}
	for _, a := range attempts {
		subject, known := subjectOf[a.PassageID]
		if !known {
			continue
		}
		b, tracked := buckets[subject]
		if !tracked {
			continue
		}
		b.count++
		b.scoreSum += a.Score
		b.time += a.TimeElapsed
	}

	report := domain.ProgressReport{
		Overall:        user.Stats,
		Subjects:       make(map[string]domain.SubjectProgress, len(domain.Subjects)),
		RecentAttempts: recent(attempts, domain.RecentAttemptsLimit),
	}
	for subject, b := range buckets {
		report.Subjects[subject] = domain.SubjectProgress{
			Attempts:     b.count,
			AverageScore: roundMean(b.scoreSum, b.count),
			TotalTime:    b.time,
		}
	}
	return report, true, nil
}

func (p *ProgressAggregator) subjectIndex(ctx context.Context) (map[string]string, error) {
	if p.catalog == nil {
		return map[string]string{}, nil
	}
	passages, err := p.catalog.Passages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	index := make(map[string]string, len(passages))
	for _, passage := range passages {
		// first entry wins, like a linear find over the catalog
		if _, dup := index[passage.ID]; !dup {
			index[passage.ID] = passage.Subject
		}
	}
	return index, nil
}

// recent returns the last n attempts, newest first.
func recent(attempts []domain.QuizAttempt, n int) []domain.QuizAttempt {
	start := len(attempts) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.QuizAttempt, 0, len(attempts)-start)
	for i := len(attempts) - 1; i >= start; i-- {
		out = append(out, attempts[i])
	}
	return out
}
