package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
)

func TestQuizRepositoryCachesFullContent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("duel:quiz:quiz-1") {
		t.Fatalf("expected cache key to be set")
	}

	// Second read hits the cache and keeps the answers intact, correct flag
	// included (the duel engine scores from the cached copy).
	quiz, err = repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz from cache: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if quiz.Name != "Phantom Menace Trivia" {
		t.Fatalf("quiz name lost in cache: %+v", quiz)
	}
	if !quiz.Questions[0].Answers[1].Correct {
		t.Fatalf("correct flag lost in cache: %+v", quiz.Questions[0])
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := NewQuizRepository(client, memory.NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Name: "Phantom Menace Trivia",
		Questions: []domain.Question{
			{
				ID:      "q1",
				Content: "Who was the phantom menace?",
				Answers: []domain.Answer{
					{ID: "a1", Content: "Jar Jar Binks"},
					{ID: "a2", Content: "Darth Sidious", Correct: true},
				},
			},
		},
	}
}
