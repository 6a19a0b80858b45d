package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-duel-service/internal/domain"
)

// QuizLoader reads quiz content from the relational catalog. Question order is
// stable (creation order) so both duel participants see the same sequence.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx, `SELECT id, name FROM quizzes WHERE id=$1`, quizID).Scan(&quiz.ID, &quiz.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.content, a.id, a.content, a.is_correct
		FROM questions q
		JOIN answers a ON a.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.created_at, q.id, a.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var questionID, questionContent string
		var answer domain.Answer
		if err := rows.Scan(&questionID, &questionContent, &answer.ID, &answer.Content, &answer.Correct); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question row: %w", err)
		}
		i, ok := index[questionID]
		if !ok {
			i = len(quiz.Questions)
			index[questionID] = i
			quiz.Questions = append(quiz.Questions, domain.Question{ID: questionID, Content: questionContent})
		}
		quiz.Questions[i].Answers = append(quiz.Questions[i].Answers, answer)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("read questions: %w", err)
	}
	return quiz, nil
}
