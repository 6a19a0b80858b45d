package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"quiz-duel-service/internal/domain"
)

// Snapshot is the textual form a Game round-trips through so a duel survives
// process restarts. The answer map keeps nil entries ("submitted nothing")
// distinct from absent ones.
type snapshot struct {
	QuizID          string            `json:"quizId"`
	Player1         domain.UserScore  `json:"player1"`
	Player2         domain.UserScore  `json:"player2"`
	Questions       []domain.Question `json:"questions"`
	QuestionCounter int               `json:"questionCounter"`
	Current         *snapshotQuestion `json:"currentQuestion"`
}

type snapshotQuestion struct {
	Question domain.Question    `json:"question"`
	Answers  map[string]*string `json:"playerAnswers"`
	Deadline time.Time          `json:"deadline"`
}

// Snapshot serializes the full game state.
func (g *Game) Snapshot() ([]byte, error) {
	snap := snapshot{
		QuizID:          g.quizID,
		Player1:         g.player1,
		Player2:         g.player2,
		Questions:       g.remaining,
		QuestionCounter: g.counter,
	}
	if g.current != nil {
		snap.Current = &snapshotQuestion{
			Question: g.current.question,
			Answers:  g.current.answers,
			Deadline: g.current.deadline,
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal game snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds a Game from a snapshot. The clock and timing windows are
// process configuration, not state, so the caller re-injects them.
func Restore(data []byte, clock clockwork.Clock, window, grace time.Duration) (*Game, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal game snapshot: %w", err)
	}

	g := &Game{
		quizID:    snap.QuizID,
		player1:   snap.Player1,
		player2:   snap.Player2,
		remaining: snap.Questions,
		counter:   snap.QuestionCounter,
		clock:     clock,
		window:    window,
		grace:     grace,
	}
	if g.remaining == nil {
		g.remaining = []domain.Question{}
	}
	if snap.Current != nil {
		answers := snap.Current.Answers
		if answers == nil {
			answers = make(map[string]*string)
		}
		g.current = &activeQuestion{
			question: snap.Current.Question,
			answers:  answers,
			deadline: snap.Current.Deadline,
		}
	}
	return g, nil
}
