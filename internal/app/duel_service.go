package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/game"
)

// DuelService contains the duel use cases: connection registry, matchmaking,
// the serialized answer path, and disconnect cleanup. It is constructed once
// at startup; all shared state lives in the DuelStore.
type DuelService struct {
	store    DuelStore
	quizzes  QuizRepository
	results  ResultWriter
	notifier Notifier
	clock    clockwork.Clock
	window   time.Duration
	grace    time.Duration
	locks    *roomLocks
	log      zerolog.Logger
}

func NewDuelService(store DuelStore, quizzes QuizRepository, results ResultWriter, notifier Notifier, clock clockwork.Clock, window, grace time.Duration, log zerolog.Logger) *DuelService {
	return &DuelService{
		store:    store,
		quizzes:  quizzes,
		results:  results,
		notifier: notifier,
		clock:    clock,
		window:   window,
		grace:    grace,
		locks:    newRoomLocks(),
		log:      log,
	}
}

// Register creates the registry entry for a freshly authorized connection.
// One live session per identity: a second connection for the same user fails
// with domain.ErrAlreadyActive.
func (s *DuelService) Register(ctx context.Context, connID string, user domain.UserData) error {
	if err := s.store.Register(ctx, connID, user); err != nil {
		return err
	}
	s.log.Debug().Str("conn", connID).Str("user", user.UserID).Msg("connection registered")
	return nil
}

// JoinQuiz pairs the connection with the longest-waiting player for the quiz,
// or enqueues it as the new waiter when nobody is waiting.
func (s *DuelService) JoinQuiz(ctx context.Context, connID, quizID string) error {
	info, err := s.store.SocketInfo(ctx, connID)
	if err != nil {
		return err
	}
	if info.WaitingOnQuizID != nil || info.JoinedRoom != nil {
		return domain.ErrAlreadyInSession
	}

	// Unknown quizzes are rejected before touching the queue. This also warms
	// the content cache for the pairing path below.
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	waiterID, found, err := s.store.PopWaiter(ctx, quizID)
	if err != nil {
		return fmt.Errorf("pop waiter: %w", err)
	}
	if !found {
		return s.becomeWaiter(ctx, connID, info, quizID)
	}

	waiterInfo, err := s.resolveWaiter(ctx, waiterID)
	if err != nil {
		// The popped entry is stale (its connection died concurrently). The
		// entry is already consumed, so the list self-heals; the caller takes
		// the waiter's place instead of losing the join attempt.
		s.log.Debug().Str("conn", connID).Str("waiter", waiterID).Str("quiz", quizID).Err(err).Msg("skipping stale waiter")
		return s.becomeWaiter(ctx, connID, info, quizID)
	}

	roomID := roomID(connID, waiterID, quizID)
	s.notifier.JoinRoom(roomID, connID, waiterID)

	waiterInfo.WaitingOnQuizID = nil
	waiterInfo.JoinedRoom = &roomID
	if err := s.store.SetSocketInfo(ctx, waiterID, waiterInfo); err != nil {
		return fmt.Errorf("update waiter info: %w", err)
	}
	info.JoinedRoom = &roomID
	if err := s.store.SetSocketInfo(ctx, connID, info); err != nil {
		return fmt.Errorf("update joiner info: %w", err)
	}

	duel := game.New(quiz.ID, info.User.UserID, waiterInfo.User.UserID, quiz.Questions, s.clock, s.window, s.grace)
	s.locks.create(roomID)

	// First question gets the grace buffer to absorb client join latency.
	prompt := duel.DrawQuestion(true)
	if err := s.saveGame(ctx, roomID, duel); err != nil {
		return err
	}

	s.notifier.EmitRoom(roomID, domain.EventQuizJoined, domain.QuizJoined{
		Player1:       info.User,
		Player2:       waiterInfo.User,
		QuizName:      quiz.Name,
		QuestionCount: len(quiz.Questions),
	})
	if prompt != nil {
		s.notifier.EmitRoom(roomID, domain.EventSendQuestion, prompt)
	}

	s.log.Info().Str("room", roomID).Str("quiz", quizID).Str("player1", info.User.UserID).Str("player2", waiterInfo.User.UserID).Msg("duel started")
	return nil
}

// SubmitAnswer runs the serialized answer path: load snapshot, record the
// answer, persist, then emit. The room lock keeps concurrent submissions from
// both loading the same pre-mutation snapshot.
func (s *DuelService) SubmitAnswer(ctx context.Context, connID string, answerID *string) error {
	info, err := s.store.SocketInfo(ctx, connID)
	if err != nil {
		return err
	}
	if info.JoinedRoom == nil {
		return domain.ErrNotInGame
	}
	roomID := *info.JoinedRoom

	unlock := s.locks.acquire(roomID)
	defer unlock()

	duel, err := s.loadGame(ctx, roomID)
	if err != nil {
		return err
	}

	outcome, err := duel.RecordAnswer(info.User.UserID, answerID)
	if err != nil {
		return err
	}

	if !duel.BothAnswered() {
		if err := s.saveGame(ctx, roomID, duel); err != nil {
			return err
		}
		s.notifier.EmitRoom(roomID, domain.EventPlayerAnswered, domain.PlayerAnswered{PlayerID: info.User.UserID})
		return nil
	}

	reveal, err := duel.CurrentScore()
	if err != nil {
		return err
	}

	prompt := duel.DrawQuestion(false)
	if prompt != nil {
		if err := s.saveGame(ctx, roomID, duel); err != nil {
			return err
		}
		s.notifier.EmitRoom(roomID, domain.EventPlayerAnswered, domain.PlayerAnswered{PlayerID: info.User.UserID})
		s.emitReveal(roomID, outcome.CorrectAnswerID, reveal)
		s.notifier.EmitRoom(roomID, domain.EventSendQuestion, prompt)
		return nil
	}

	// Queue exhausted: the duel is finished.
	finished, err := duel.FinishedResult()
	if err != nil {
		return err
	}
	result, err := duel.ResultsByScore()
	if err != nil {
		return err
	}
	if err := s.store.DeleteGame(ctx, roomID); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.notifier.EmitRoom(roomID, domain.EventPlayerAnswered, domain.PlayerAnswered{PlayerID: info.User.UserID})
	s.emitReveal(roomID, outcome.CorrectAnswerID, reveal)
	s.notifier.EmitRoom(roomID, domain.EventGameFinished, finished)

	s.teardownRoom(ctx, roomID)

	if err := s.results.CreateMatchResult(ctx, result); err != nil {
		s.log.Error().Str("room", roomID).Err(err).Msg("persist match result failed")
	}
	s.log.Info().Str("room", roomID).Msg("duel finished")
	return nil
}

// LeaveWaitingList removes the connection from its quiz's FIFO list. It is an
// explicit client action; disconnect cleanup performs the same removal.
func (s *DuelService) LeaveWaitingList(ctx context.Context, connID string) error {
	info, err := s.store.SocketInfo(ctx, connID)
	if err != nil {
		return err
	}
	if info.WaitingOnQuizID == nil {
		return domain.ErrNotWaiting
	}

	if err := s.store.RemoveWaiter(ctx, *info.WaitingOnQuizID, connID); err != nil {
		return fmt.Errorf("remove waiter: %w", err)
	}
	info.WaitingOnQuizID = nil
	return s.store.SetSocketInfo(ctx, connID, info)
}

// Disconnect tears down everything the connection owned. Registry state goes
// first so concurrent joiners observe the waiter as stale rather than pairing
// with a ghost; consistency faults on this path degrade silently.
func (s *DuelService) Disconnect(ctx context.Context, connID string) {
	info, err := s.store.SocketInfo(ctx, connID)
	if err != nil {
		return
	}
	if err := s.store.Remove(ctx, connID, info.User.UserID); err != nil {
		s.log.Warn().Str("conn", connID).Err(err).Msg("registry cleanup failed")
	}

	if info.WaitingOnQuizID != nil {
		if err := s.store.RemoveWaiter(ctx, *info.WaitingOnQuizID, connID); err != nil {
			s.log.Warn().Str("conn", connID).Err(err).Msg("waiting list cleanup failed")
		}
	}

	if info.JoinedRoom == nil {
		return
	}
	roomID := *info.JoinedRoom

	unlock := s.locks.acquire(roomID)
	defer func() {
		unlock()
		s.locks.dispose(roomID)
	}()

	s.abandonDuel(ctx, roomID, connID)

	if err := s.store.DeleteGame(ctx, roomID); err != nil {
		s.log.Warn().Str("room", roomID).Err(err).Msg("game cleanup failed")
	}
	s.notifier.LeaveRoom(roomID, s.notifier.RoomMembers(roomID)...)
	s.log.Info().Str("room", roomID).Str("conn", connID).Msg("duel abandoned")
}

// abandonDuel awards the surviving peer the win and notifies them. Every step
// tolerates the peer having vanished concurrently.
func (s *DuelService) abandonDuel(ctx context.Context, roomID, leavingConnID string) {
	var peerID string
	for _, member := range s.notifier.RoomMembers(roomID) {
		if member != leavingConnID {
			peerID = member
			break
		}
	}
	if peerID == "" {
		return
	}

	s.notifier.EmitConn(peerID, domain.EventOpponentLeftGame, struct{}{})

	peerInfo, err := s.store.SocketInfo(ctx, peerID)
	if err != nil {
		return
	}
	peerInfo.JoinedRoom = nil
	if err := s.store.SetSocketInfo(ctx, peerID, peerInfo); err != nil {
		s.log.Warn().Str("conn", peerID).Err(err).Msg("peer info cleanup failed")
	}

	duel, err := s.loadGame(ctx, roomID)
	if err != nil {
		return
	}
	result, err := duel.ResultsForDisconnectWinner(peerInfo.User.UserID)
	if err != nil {
		return
	}
	if err := s.results.CreateMatchResult(ctx, result); err != nil {
		s.log.Error().Str("room", roomID).Err(err).Msg("persist abandoned match failed")
	}
}

func (s *DuelService) becomeWaiter(ctx context.Context, connID string, info domain.SocketInfo, quizID string) error {
	if err := s.store.PushWaiter(ctx, quizID, connID); err != nil {
		return fmt.Errorf("push waiter: %w", err)
	}
	info.WaitingOnQuizID = &quizID
	if err := s.store.SetSocketInfo(ctx, connID, info); err != nil {
		return fmt.Errorf("update waiter info: %w", err)
	}
	s.log.Debug().Str("conn", connID).Str("quiz", quizID).Msg("enqueued as waiter")
	return nil
}

func (s *DuelService) resolveWaiter(ctx context.Context, waiterID string) (domain.SocketInfo, error) {
	if !s.notifier.IsConnected(waiterID) {
		return domain.SocketInfo{}, domain.ErrStaleWaiter
	}
	info, err := s.store.SocketInfo(ctx, waiterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotRegistered) {
			return domain.SocketInfo{}, domain.ErrStaleWaiter
		}
		return domain.SocketInfo{}, err
	}
	return info, nil
}

// teardownRoom clears both members' room membership after a normal finish and
// releases the room lock entry.
func (s *DuelService) teardownRoom(ctx context.Context, roomID string) {
	members := s.notifier.RoomMembers(roomID)
	for _, member := range members {
		info, err := s.store.SocketInfo(ctx, member)
		if err != nil {
			continue
		}
		info.JoinedRoom = nil
		if err := s.store.SetSocketInfo(ctx, member, info); err != nil {
			s.log.Warn().Str("conn", member).Err(err).Msg("room membership cleanup failed")
		}
	}
	s.notifier.LeaveRoom(roomID, members...)
	s.locks.dispose(roomID)
}

func (s *DuelService) emitReveal(roomID, correctAnswerID string, reveal domain.ScoreReveal) {
	s.notifier.EmitRoom(roomID, domain.EventSendCorrectAnswer, domain.CorrectAnswerReveal{
		CorrectAnswerID: correctAnswerID,
		Player1:         reveal.Player1,
		Player2:         reveal.Player2,
	})
}

func (s *DuelService) loadGame(ctx context.Context, roomID string) (*game.Game, error) {
	snapshot, err := s.store.LoadGame(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return game.Restore(snapshot, s.clock, s.window, s.grace)
}

func (s *DuelService) saveGame(ctx context.Context, roomID string, duel *game.Game) error {
	snapshot, err := duel.Snapshot()
	if err != nil {
		return err
	}
	if err := s.store.SaveGame(ctx, roomID, snapshot); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// roomID derives a deterministic room identity from both connection handles
// and the quiz being played.
func roomID(firstConnID, secondConnID, quizID string) string {
	return fmt.Sprintf("room:%s:%s:%s", firstConnID, secondConnID, quizID)
}
