package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

const (
	messageJoinQuiz         = "joinQuiz"
	messageSendAnswer       = "sendAnswer"
	messageLeaveWaitingList = "leaveWaitingList"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinQuizPayload struct {
	QuizID string `json:"quizId"`
}

type sendAnswerPayload struct {
	AnswerID *string `json:"answerId"`
}

// Handler upgrades HTTP requests to duel websocket sessions. Any service
// error on an inbound message is reported to the client as a sendError event
// and the connection is then closed.
type Handler struct {
	service  *app.DuelService
	auth     app.Authorizer
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(service *app.DuelService, auth app.Authorizer, hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authorize(r.Context(), credentialFrom(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}

	connID := uuid.NewString()
	client := h.hub.add(connID, conn)
	log := h.log.With().Str("conn", connID).Str("user", user.UserID).Logger()

	if err := h.service.Register(r.Context(), connID, user); err != nil {
		h.sendError(connID, err)
		h.hub.remove(connID)
		client.shutdown()
		return
	}
	log.Info().Msg("session opened")

	h.readLoop(r.Context(), connID, conn, log)

	// Disconnect settles the duel first; the hub must still know the room
	// members so the opponent can be notified.
	h.service.Disconnect(context.Background(), connID)
	h.hub.remove(connID)
	client.shutdown()
	log.Info().Msg("session closed")
}

func (h *Handler) readLoop(ctx context.Context, connID string, conn *websocket.Conn, log zerolog.Logger) {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("ws read failed")
			}
			return
		}
		if err := h.dispatch(ctx, connID, msg); err != nil {
			log.Warn().Str("message", msg.Type).Err(err).Msg("message rejected")
			h.sendError(connID, err)
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, connID string, msg inboundMessage) error {
	switch msg.Type {
	case messageJoinQuiz:
		var payload joinQuizPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return h.service.JoinQuiz(ctx, connID, payload.QuizID)
	case messageSendAnswer:
		var payload sendAnswerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return h.service.SubmitAnswer(ctx, connID, payload.AnswerID)
	case messageLeaveWaitingList:
		return h.service.LeaveWaitingList(ctx, connID)
	default:
		return domain.ErrUnsupportedMessage
	}
}

func (h *Handler) sendError(connID string, err error) {
	h.hub.EmitConn(connID, domain.EventSendError, domain.ErrorEvent{Messages: []string{err.Error()}})
}

// credentialFrom accepts either an Authorization bearer header or a token
// query parameter, since browser websocket clients cannot set headers.
func credentialFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return r.URL.Query().Get("token")
}
