package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"studysphere-tracker/internal/domain"
)

// PassageLoader loads the passage catalog from the passages table.
type PassageLoader struct {
	pool *pgxpool.Pool
}

func NewPassageLoader(pool *pgxpool.Pool) *PassageLoader {
	return &PassageLoader{pool: pool}
}

func (l *PassageLoader) LoadPassages(ctx context.Context) ([]domain.Passage, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, subject, title FROM passages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ID, &p.Subject, &p.Title); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return passages, nil
}

func (l *PassageLoader) Passages(ctx context.Context) ([]domain.Passage, error) {
	return l.LoadPassages(ctx)
}

// UpsertPassages writes catalog rows, replacing existing ids.
func (l *PassageLoader) UpsertPassages(ctx context.Context, passages []domain.Passage) error {
	for _, p := range passages {
		_, err := l.pool.Exec(ctx, `
			INSERT INTO passages (id, subject, title) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET subject = EXCLUDED.subject, title = EXCLUDED.title`,
			p.ID, p.Subject, p.Title)
		if err != nil {
			return fmt.Errorf("upsert passage %s: %w", p.ID, err)
		}
	}
	return nil
}
