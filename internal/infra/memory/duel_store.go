package memory

import (
	"context"
	"sync"

	"quiz-duel-service/internal/domain"
)

// DuelStore is an in-memory implementation of app.DuelStore, used for tests
// and single-process demo mode. All operations take the store lock, so
// pop-or-enqueue on a waiting list is atomic.
type DuelStore struct {
	mu      sync.Mutex
	sockets map[string]domain.SocketInfo
	active  map[string]string // userID -> connID
	waiting map[string][]string
	games   map[string][]byte
}

func NewDuelStore() *DuelStore {
	return &DuelStore{
		sockets: make(map[string]domain.SocketInfo),
		active:  make(map[string]string),
		waiting: make(map[string][]string),
		games:   make(map[string][]byte),
	}
}

func (s *DuelStore) Register(_ context.Context, connID string, user domain.UserData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[user.UserID]; ok {
		return domain.ErrAlreadyActive
	}
	s.active[user.UserID] = connID
	s.sockets[connID] = domain.SocketInfo{User: user}
	return nil
}

func (s *DuelStore) SocketInfo(_ context.Context, connID string) (domain.SocketInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sockets[connID]
	if !ok {
		return domain.SocketInfo{}, domain.ErrNotRegistered
	}
	return info, nil
}

func (s *DuelStore) SetSocketInfo(_ context.Context, connID string, info domain.SocketInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[connID] = info
	return nil
}

func (s *DuelStore) Remove(_ context.Context, connID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, connID)
	if s.active[userID] == connID {
		delete(s.active, userID)
	}
	return nil
}

func (s *DuelStore) PushWaiter(_ context.Context, quizID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting[quizID] = append(s.waiting[quizID], connID)
	return nil
}

func (s *DuelStore) PopWaiter(_ context.Context, quizID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiting[quizID]
	if len(list) == 0 {
		return "", false, nil
	}
	head := list[0]
	s.waiting[quizID] = list[1:]
	return head, true, nil
}

func (s *DuelStore) RemoveWaiter(_ context.Context, quizID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiting[quizID]
	for i, id := range list {
		if id == connID {
			s.waiting[quizID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (s *DuelStore) SaveGame(_ context.Context, roomID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(snapshot))
	copy(stored, snapshot)
	s.games[roomID] = stored
	return nil
}

func (s *DuelStore) LoadGame(_ context.Context, roomID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.games[roomID]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	out := make([]byte, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

func (s *DuelStore) DeleteGame(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, roomID)
	return nil
}
