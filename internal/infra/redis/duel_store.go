package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-duel-service/internal/domain"
)

// DuelStore implements app.DuelStore on Redis so registry entries, waiting
// lists, and game snapshots survive process restarts and are shared between
// server instances.
//
// Key namespace:
//
//	duel:user:{userID}    active-session marker (value: connection id)
//	duel:socket:{connID}  serialized SocketInfo
//	duel:waiting:{quizID} FIFO waiting list (RPUSH/LPOP)
//	duel:room:{roomID}    serialized game snapshot
type DuelStore struct {
	client *redis.Client
}

func NewDuelStore(client *redis.Client) *DuelStore {
	return &DuelStore{client: client}
}

func (s *DuelStore) Register(ctx context.Context, connID string, user domain.UserData) error {
	ok, err := s.client.SetNX(ctx, userKey(user.UserID), connID, 0).Result()
	if err != nil {
		return fmt.Errorf("set active marker: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyActive
	}
	return s.SetSocketInfo(ctx, connID, domain.SocketInfo{User: user})
}

func (s *DuelStore) SocketInfo(ctx context.Context, connID string) (domain.SocketInfo, error) {
	raw, err := s.client.Get(ctx, socketKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.SocketInfo{}, domain.ErrNotRegistered
	}
	if err != nil {
		return domain.SocketInfo{}, fmt.Errorf("get socket info: %w", err)
	}
	var info domain.SocketInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return domain.SocketInfo{}, fmt.Errorf("unmarshal socket info: %w", err)
	}
	return info, nil
}

func (s *DuelStore) SetSocketInfo(ctx context.Context, connID string, info domain.SocketInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal socket info: %w", err)
	}
	if err := s.client.Set(ctx, socketKey(connID), data, 0).Err(); err != nil {
		return fmt.Errorf("set socket info: %w", err)
	}
	return nil
}

func (s *DuelStore) Remove(ctx context.Context, connID, userID string) error {
	if err := s.client.Del(ctx, socketKey(connID)).Err(); err != nil {
		return fmt.Errorf("delete socket info: %w", err)
	}
	// Only clear the marker if it still points at this connection; the user
	// may have re-registered from a new connection already.
	owner, err := s.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get active marker: %w", err)
	}
	if owner == connID {
		if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
			return fmt.Errorf("delete active marker: %w", err)
		}
	}
	return nil
}

func (s *DuelStore) PushWaiter(ctx context.Context, quizID, connID string) error {
	if err := s.client.RPush(ctx, waitingKey(quizID), connID).Err(); err != nil {
		return fmt.Errorf("push waiter: %w", err)
	}
	return nil
}

func (s *DuelStore) PopWaiter(ctx context.Context, quizID string) (string, bool, error) {
	connID, err := s.client.LPop(ctx, waitingKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop waiter: %w", err)
	}
	return connID, true, nil
}

func (s *DuelStore) RemoveWaiter(ctx context.Context, quizID, connID string) error {
	if err := s.client.LRem(ctx, waitingKey(quizID), 0, connID).Err(); err != nil {
		return fmt.Errorf("remove waiter: %w", err)
	}
	return nil
}

func (s *DuelStore) SaveGame(ctx context.Context, roomID string, snapshot []byte) error {
	if err := s.client.Set(ctx, roomKey(roomID), snapshot, 0).Err(); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (s *DuelStore) LoadGame(ctx context.Context, roomID string) ([]byte, error) {
	raw, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return raw, nil
}

func (s *DuelStore) DeleteGame(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, roomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

func userKey(userID string) string    { return "duel:user:" + userID }
func socketKey(connID string) string  { return "duel:socket:" + connID }
func waitingKey(quizID string) string { return "duel:waiting:" + quizID }
func roomKey(roomID string) string    { return "duel:room:" + roomID }
