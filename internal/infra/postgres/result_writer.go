package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-duel-service/internal/domain"
)

// ResultWriter persists a finished match: one games row plus a results row per
// player, atomically.
type ResultWriter struct {
	pool *pgxpool.Pool
}

func NewResultWriter(pool *pgxpool.Pool) *ResultWriter {
	return &ResultWriter{pool: pool}
}

func (w *ResultWriter) CreateMatchResult(ctx context.Context, result domain.MatchResult) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var gameID string
	err = tx.QueryRow(ctx, `INSERT INTO games (quiz_id) VALUES ($1) RETURNING id`, result.QuizID).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	for _, record := range result.Records {
		_, err = tx.Exec(ctx,
			`INSERT INTO results (game_id, user_id, score, status) VALUES ($1, $2, $3, $4)`,
			gameID, record.UserID, record.Score, string(record.Status))
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit result tx: %w", err)
	}
	return nil
}
