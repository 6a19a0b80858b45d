package domain

import "errors"

// Registry and matchmaking errors.
var (
	// ErrAlreadyActive is returned when an identity already has a live connection.
	ErrAlreadyActive = errors.New("identity already has an active session")
	// ErrNotRegistered is returned when a connection has no registry entry.
	ErrNotRegistered = errors.New("connection not registered")
	// ErrAlreadyInSession is returned when a waiting or in-game connection tries to join a quiz.
	ErrAlreadyInSession = errors.New("already waiting or in a game")
	// ErrNotWaiting is returned when leaving the waiting list without being on one.
	ErrNotWaiting = errors.New("not on a waiting list")
	// ErrStaleWaiter marks a popped waiter that no longer resolves to a live connection.
	ErrStaleWaiter = errors.New("stale waiting list entry")
	// ErrNotInGame is returned when answering without being in a room.
	ErrNotInGame = errors.New("not in a game")
)

// Duel engine contract errors.
var (
	// ErrInvalidParticipant is returned when a player id matches neither duel participant.
	ErrInvalidParticipant = errors.New("invalid participant")
	// ErrNoActiveQuestion is returned when answering with no question open.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrAlreadyAnswered is returned on a second answer for the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrInvalidAnswer is returned when the answer id matches no option.
	ErrInvalidAnswer = errors.New("invalid answer id")
	// ErrNoCorrectAnswer indicates broken quiz content: no option flagged correct.
	ErrNoCorrectAnswer = errors.New("question has no correct answer defined")
	// ErrNotBothAnswered is returned when reading the reveal before both players answered.
	ErrNotBothAnswered = errors.New("both players must answer first")
	// ErrNotFinished is returned when reading final results of an unfinished duel.
	ErrNotFinished = errors.New("game has not finished")
)

// Content and store errors.
var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrGameNotFound indicates a room's game snapshot has vanished.
	ErrGameNotFound = errors.New("game not found")
	// ErrUnsupportedMessage is returned for an unknown inbound message type.
	ErrUnsupportedMessage = errors.New("unsupported message type")
)
