package domain

// UserData identifies a connected player. It is resolved from a credential
// when the connection is established and never changes afterwards.
type UserData struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// SocketInfo tracks where a live connection currently is: idle, waiting on a
// quiz, or inside a room. At most one of WaitingOnQuizID/JoinedRoom is set.
type SocketInfo struct {
	User            UserData `json:"user"`
	WaitingOnQuizID *string  `json:"waitingOnQuizId"`
	JoinedRoom      *string  `json:"joinedRoom"`
}

// Answer is one selectable option of a question.
type Answer struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Correct bool   `json:"isCorrect"`
}

// Question is an MCQ question with exactly one option flagged correct.
type Question struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Answers []Answer `json:"answers"`
}

// Quiz is the full playable content of one quiz.
type Quiz struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// UserScore is a player's running score inside a duel.
type UserScore struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// ResultStatus is the per-player outcome of a finished duel.
type ResultStatus string

const (
	ResultWin  ResultStatus = "win"
	ResultLose ResultStatus = "lose"
	ResultDraw ResultStatus = "draw"
)

// ResultRecord is the durable per-player outcome handed to result persistence.
type ResultRecord struct {
	UserID string       `json:"userId"`
	Score  int          `json:"score"`
	Status ResultStatus `json:"status"`
}

// MatchResult ties both players' records to the quiz they played.
type MatchResult struct {
	QuizID  string          `json:"quizId"`
	Records [2]ResultRecord `json:"records"`
}
