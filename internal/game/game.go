package game

import (
	"time"

	"github.com/jonboulle/clockwork"

	"quiz-duel-service/internal/domain"
)

// Game is the duel state machine for one room. It is a plain value: every
// access re-hydrates it from a snapshot and persists it back, so no instance
// is ever shared between goroutines. All methods are synchronous state
// transitions; timing comes from the injected clock only.
type Game struct {
	quizID    string
	player1   domain.UserScore
	player2   domain.UserScore
	remaining []domain.Question
	current   *activeQuestion
	counter   int

	clock  clockwork.Clock
	window time.Duration
	grace  time.Duration
}

// activeQuestion holds the question awaiting answers. The answers map keys
// are participant ids; a nil value means "submitted no answer".
type activeQuestion struct {
	question domain.Question
	answers  map[string]*string
	deadline time.Time
}

// AnswerOutcome is what a single RecordAnswer call reveals to the caller.
type AnswerOutcome struct {
	CorrectAnswerID string
	InTime          bool
}

// New creates a duel for two players. The window is the per-question answer
// deadline; grace is the extra buffer applied only to the first question to
// absorb client-side join latency.
func New(quizID, firstPlayerID, secondPlayerID string, questions []domain.Question, clock clockwork.Clock, window, grace time.Duration) *Game {
	remaining := make([]domain.Question, len(questions))
	copy(remaining, questions)
	return &Game{
		quizID:    quizID,
		player1:   domain.UserScore{UserID: firstPlayerID},
		player2:   domain.UserScore{UserID: secondPlayerID},
		remaining: remaining,
		clock:     clock,
		window:    window,
		grace:     grace,
	}
}

// QuizID returns the quiz this duel plays.
func (g *Game) QuizID() string { return g.quizID }

// Players returns both players' current scores.
func (g *Game) Players() (domain.UserScore, domain.UserScore) {
	return g.player1, g.player2
}

// QuestionCounter returns how many questions have been dispatched so far.
func (g *Game) QuestionCounter() int { return g.counter }

// DrawQuestion pops the next question and opens its answer window. It returns
// nil when no questions remain, which is the terminal signal: the active
// question is cleared and the duel is finished.
func (g *Game) DrawQuestion(extended bool) *domain.QuestionPrompt {
	if len(g.remaining) == 0 {
		g.current = nil
		return nil
	}

	question := g.remaining[0]
	g.remaining = g.remaining[1:]

	window := g.window
	if extended {
		window += g.grace
	}
	g.current = &activeQuestion{
		question: question,
		answers:  make(map[string]*string),
		deadline: g.clock.Now().Add(window),
	}
	g.counter++

	options := make([]domain.AnswerOption, 0, len(question.Answers))
	for _, answer := range question.Answers {
		options = append(options, domain.AnswerOption{ID: answer.ID, Content: answer.Content})
	}
	return &domain.QuestionPrompt{
		ID:      question.ID,
		Content: question.Content,
		Answers: options,
		Number:  g.counter,
	}
}

// RecordAnswer registers a participant's submission for the active question.
// A nil answerID means the player explicitly passed. A correct answer scores
// only when it arrives before the deadline; late answers are still recorded.
func (g *Game) RecordAnswer(playerID string, answerID *string) (AnswerOutcome, error) {
	player, err := g.player(playerID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if g.current == nil {
		return AnswerOutcome{}, domain.ErrNoActiveQuestion
	}
	if _, answered := g.current.answers[player.UserID]; answered {
		return AnswerOutcome{}, domain.ErrAlreadyAnswered
	}

	correctID := ""
	for _, answer := range g.current.question.Answers {
		if answer.Correct {
			correctID = answer.ID
			break
		}
	}
	if correctID == "" {
		// Broken content; scoring would be meaningless. Fatal for this duel.
		return AnswerOutcome{}, domain.ErrNoCorrectAnswer
	}

	inTime := !g.clock.Now().After(g.current.deadline)

	if answerID != nil {
		valid := false
		for _, answer := range g.current.question.Answers {
			if answer.ID == *answerID {
				valid = true
				break
			}
		}
		if !valid {
			return AnswerOutcome{}, domain.ErrInvalidAnswer
		}
		if *answerID == correctID && inTime {
			player.Score++
		}
	}

	g.current.answers[player.UserID] = answerID
	return AnswerOutcome{CorrectAnswerID: correctID, InTime: inTime}, nil
}

// BothAnswered reports whether both participants have an entry for the active
// question (a nil entry counts).
func (g *Game) BothAnswered() bool {
	if g.current == nil {
		return false
	}
	_, p1 := g.current.answers[g.player1.UserID]
	_, p2 := g.current.answers[g.player2.UserID]
	return p1 && p2
}

// CurrentScore returns the synchronized reveal for the active question: both
// running scores plus what each player submitted.
func (g *Game) CurrentScore() (domain.ScoreReveal, error) {
	if !g.BothAnswered() {
		return domain.ScoreReveal{}, domain.ErrNotBothAnswered
	}
	return domain.ScoreReveal{
		Player1: domain.PlayerReveal{UserScore: g.player1, AnswerID: g.current.answers[g.player1.UserID]},
		Player2: domain.PlayerReveal{UserScore: g.player2, AnswerID: g.current.answers[g.player2.UserID]},
	}, nil
}

// FinishedResult returns the terminal outcome. Strictly higher score wins;
// equal scores yield a nil winner (draw). There is no further tie-break.
func (g *Game) FinishedResult() (domain.GameFinished, error) {
	if g.current != nil || len(g.remaining) > 0 {
		return domain.GameFinished{}, domain.ErrNotFinished
	}

	var winnerID *string
	switch {
	case g.player1.Score > g.player2.Score:
		id := g.player1.UserID
		winnerID = &id
	case g.player2.Score > g.player1.Score:
		id := g.player2.UserID
		winnerID = &id
	}
	return domain.GameFinished{WinnerID: winnerID, Player1: g.player1, Player2: g.player2}, nil
}

// ResultsByScore maps the terminal scores into per-player result records.
func (g *Game) ResultsByScore() (domain.MatchResult, error) {
	finished, err := g.FinishedResult()
	if err != nil {
		return domain.MatchResult{}, err
	}
	return domain.MatchResult{
		QuizID: g.quizID,
		Records: [2]domain.ResultRecord{
			resultRecord(g.player1, finished.WinnerID),
			resultRecord(g.player2, finished.WinnerID),
		},
	}, nil
}

// ResultsForDisconnectWinner builds result records for an abandoned duel: the
// named survivor wins and the other player loses, regardless of score.
func (g *Game) ResultsForDisconnectWinner(winnerID string) (domain.MatchResult, error) {
	winner, err := g.player(winnerID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	id := winner.UserID
	return domain.MatchResult{
		QuizID: g.quizID,
		Records: [2]domain.ResultRecord{
			resultRecord(g.player1, &id),
			resultRecord(g.player2, &id),
		},
	}, nil
}

func resultRecord(score domain.UserScore, winnerID *string) domain.ResultRecord {
	status := domain.ResultDraw
	if winnerID != nil {
		if *winnerID == score.UserID {
			status = domain.ResultWin
		} else {
			status = domain.ResultLose
		}
	}
	return domain.ResultRecord{UserID: score.UserID, Score: score.Score, Status: status}
}

func (g *Game) player(playerID string) (*domain.UserScore, error) {
	switch playerID {
	case g.player1.UserID:
		return &g.player1, nil
	case g.player2.UserID:
		return &g.player2, nil
	}
	return nil, domain.ErrInvalidParticipant
}
