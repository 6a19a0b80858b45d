package app

import (
	"context"

	"quiz-duel-service/internal/domain"
)

// DuelStore is the durable shared state behind the registry, the matchmaking
// queue, and game snapshots (in-memory, Redis, etc). SocketInfo records are
// full-value read/replace; there are no partial updates.
type DuelStore interface {
	// Register creates a registry entry for a fresh connection. It fails with
	// domain.ErrAlreadyActive when the identity already has a live entry.
	Register(ctx context.Context, connID string, user domain.UserData) error
	// SocketInfo returns the registry entry for a connection, or
	// domain.ErrNotRegistered.
	SocketInfo(ctx context.Context, connID string) (domain.SocketInfo, error)
	// SetSocketInfo overwrites the stored record.
	SetSocketInfo(ctx context.Context, connID string, info domain.SocketInfo) error
	// Remove deletes the registry entry and the identity marker. Idempotent.
	Remove(ctx context.Context, connID, userID string) error

	// PushWaiter appends a connection to the quiz's FIFO waiting list.
	PushWaiter(ctx context.Context, quizID, connID string) error
	// PopWaiter atomically removes and returns the head of the waiting list.
	// The second return is false when the list is empty.
	PopWaiter(ctx context.Context, quizID string) (string, bool, error)
	// RemoveWaiter deletes a connection from the waiting list; no-op when absent.
	RemoveWaiter(ctx context.Context, quizID, connID string) error

	// SaveGame stores an opaque game snapshot under the room id.
	SaveGame(ctx context.Context, roomID string, snapshot []byte) error
	// LoadGame returns the snapshot for a room, or domain.ErrGameNotFound.
	LoadGame(ctx context.Context, roomID string) ([]byte, error)
	// DeleteGame drops the snapshot. Idempotent.
	DeleteGame(ctx context.Context, roomID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultWriter hands a finished match to the external persistence subsystem.
type ResultWriter interface {
	CreateMatchResult(ctx context.Context, result domain.MatchResult) error
}

// Notifier is the transport boundary: room membership plus event emission.
// Implementations must never block the caller on slow clients.
type Notifier interface {
	JoinRoom(roomID string, connIDs ...string)
	LeaveRoom(roomID string, connIDs ...string)
	EmitRoom(roomID, event string, payload any)
	EmitConn(connID, event string, payload any)
	RoomMembers(roomID string) []string
	IsConnected(connID string) bool
}

// Authorizer resolves a connection credential into an identity. Failure means
// the connection is refused before any registry entry exists.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) (domain.UserData, error)
}
