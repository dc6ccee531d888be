package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/domain"
)

func TestComputeProgressWithoutSession(t *testing.T) {
	e := newEnv(t)
	_, ok, err := e.tracker.ComputeProgress(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestComputeProgressNoAttempts(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ada@example.com")

	report, ok, err := e.tracker.ComputeProgress(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, report.Subjects, len(domain.Subjects))
	for _, subject := range domain.Subjects {
		require.Equal(t, domain.SubjectProgress{}, report.Subjects[subject], subject)
	}
	require.NotNil(t, report.RecentAttempts)
	require.Empty(t, report.RecentAttempts)
	require.Equal(t, domain.Stats{}, report.Overall)
}

func TestComputeProgressBucketsBySubject(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ada@example.com")
	e.attempt(t, "bio-1", 70, 100)
	e.attempt(t, "bio-2", 81, 50)
	e.attempt(t, "phy-1", 60, 30)
	e.attempt(t, "unknown", 10, 5) // not in the catalog
	e.attempt(t, "astro-1", 20, 5) // subject outside the fixed set

	report, ok, err := e.tracker.ComputeProgress(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, domain.SubjectProgress{Attempts: 2, AverageScore: 76, TotalTime: 150}, report.Subjects["biology"])
	require.Equal(t, domain.SubjectProgress{Attempts: 1, AverageScore: 60, TotalTime: 30}, report.Subjects["physics"])
	require.Equal(t, domain.SubjectProgress{}, report.Subjects["chemistry"])
	require.NotContains(t, report.Subjects, "astronomy")

	// unknown passages still count in the overall stats
	require.Equal(t, 5, report.Overall.TotalQuizzes)
	require.Equal(t, 190, report.Overall.TotalTime)
	require.Len(t, report.RecentAttempts, 5)
}

func TestComputeProgressRecentAttemptsNewestFirst(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ada@example.com")
	var ids []string
	for i := 0; i < 12; i++ {
		a := e.attempt(t, "bio-1", 50+i, 10)
		ids = append(ids, a.ID)
		e.clock.Advance(time.Minute)
	}

	report, _, err := e.tracker.ComputeProgress(context.Background())
	require.NoError(t, err)
	require.Len(t, report.RecentAttempts, domain.RecentAttemptsLimit)
	for i, a := range report.RecentAttempts {
		require.Equal(t, ids[len(ids)-1-i], a.ID, fmt.Sprintf("position %d", i))
	}
}

func TestComputeProgressOnlyUsesSessionUser(t *testing.T) {
	e := newEnv(t)
	e.register(t, "bob@example.com")
	e.attempt(t, "bio-1", 100, 100)
	e.register(t, "ada@example.com")
	e.attempt(t, "bio-1", 40, 10)

	report, _, err := e.tracker.ComputeProgress(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.SubjectProgress{Attempts: 1, AverageScore: 40, TotalTime: 10}, report.Subjects["biology"])
	require.Len(t, report.RecentAttempts, 1)
}

func TestStorageCatalogReadsPassagesKey(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	catalog := app.NewStoragePassageCatalog(e.storage, nil)

	passages, err := catalog.Passages(ctx)
	require.NoError(t, err)
	require.Empty(t, passages)

	require.NoError(t, app.ImportPassages(ctx, e.storage, []domain.Passage{{ID: "chem-1", Subject: "chemistry"}}))
	passages, err = catalog.Passages(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Passage{{ID: "chem-1", Subject: "chemistry"}}, passages)

	require.NoError(t, e.storage.Set(ctx, app.PassagesKey, "[{"))
	passages, err = catalog.Passages(ctx)
	require.NoError(t, err)
	require.Empty(t, passages)
}
