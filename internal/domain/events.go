package domain

// Outbound event names for the duel protocol.
const (
	EventQuizJoined        = "quizJoined"
	EventSendQuestion      = "sendQuestion"
	EventPlayerAnswered    = "playerAnswered"
	EventSendCorrectAnswer = "sendCorrectAnswer"
	EventGameFinished      = "gameFinished"
	EventOpponentLeftGame  = "opponentLeftGame"
	EventSendError         = "sendError"
)

// Outbound event payloads for the duel protocol. The transport wraps these in
// a {type, payload} envelope; field names are part of the wire contract.

// QuizJoined announces a completed pairing to both room members.
type QuizJoined struct {
	Player1       UserData `json:"player1"`
	Player2       UserData `json:"player2"`
	QuizName      string   `json:"quizName"`
	QuestionCount int      `json:"questionCount"`
}

// AnswerOption is an answer choice with the correct flag stripped.
type AnswerOption struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// QuestionPrompt is the active question as shown to players.
type QuestionPrompt struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Answers []AnswerOption `json:"answers"`
	Number  int            `json:"questionNumber"`
}

// PlayerAnswered tells the room that one participant has locked in an answer.
// It deliberately carries no answer id; the pick is revealed to both players
// at once via CorrectAnswerReveal.
type PlayerAnswered struct {
	PlayerID string `json:"playerId"`
}

// PlayerReveal is one player's score plus what they submitted this question.
// AnswerID is nil when the player submitted no answer.
type PlayerReveal struct {
	UserScore
	AnswerID *string `json:"answerId"`
}

// ScoreReveal is the synchronized per-question reveal for both players.
type ScoreReveal struct {
	Player1 PlayerReveal `json:"player1"`
	Player2 PlayerReveal `json:"player2"`
}

// CorrectAnswerReveal closes out a question for the room.
type CorrectAnswerReveal struct {
	CorrectAnswerID string       `json:"correctAnswerId"`
	Player1         PlayerReveal `json:"player1"`
	Player2         PlayerReveal `json:"player2"`
}

// GameFinished reports the terminal outcome. WinnerID is nil on a draw.
type GameFinished struct {
	WinnerID *string   `json:"winnerId"`
	Player1  UserScore `json:"player1"`
	Player2  UserScore `json:"player2"`
}

// ErrorEvent is emitted before a misbehaving connection is closed.
type ErrorEvent struct {
	Messages []string `json:"messages"`
}
