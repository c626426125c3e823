package service

import (
	"encoding/json"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/websocket"

	"github.com/sirupsen/logrus"
)

// ChangeNotifier publishes committed changes. origin identifies the session
// that made the change; it is not notified.
type ChangeNotifier interface {
	DayUpdated(origin string, day *domain.CalendarDay)
	AssignmentUpdated(origin string, a *domain.Assignment)
	AssignmentDeleted(origin string, id string)
}

type RealtimeService struct {
	wsManager *websocket.Manager
	logger    *logrus.Logger
}

func NewRealtimeService(wsManager *websocket.Manager, logger *logrus.Logger) *RealtimeService {
	return &RealtimeService{wsManager: wsManager, logger: logger}
}

func (s *RealtimeService) DayUpdated(origin string, day *domain.CalendarDay) {
	s.broadcast(websocket.TypeDayUpdate, &websocket.DayUpdatePayload{Day: day, Origin: origin}, origin)
}

func (s *RealtimeService) AssignmentUpdated(origin string, a *domain.Assignment) {
	s.broadcast(websocket.TypeAssignmentUpdate, &websocket.AssignmentUpdatePayload{Assignment: a, Origin: origin}, origin)
}

func (s *RealtimeService) AssignmentDeleted(origin string, id string) {
	s.broadcast(websocket.TypeAssignmentDelete, &websocket.AssignmentDeletePayload{ID: id, Origin: origin}, origin)
}

func (s *RealtimeService) broadcast(msgType websocket.MessageType, payload interface{}, origin string) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build realtime message")
		return
	}
	if err := s.wsManager.Broadcast(msg, origin); err != nil {
		s.logger.WithField("type", msgType).WithError(err).Warn("Realtime broadcast failed")
	}
}

// HandleWebSocketMessage answers client pings. Clients never mutate state
// over the socket.
func (s *RealtimeService) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		pong, err := websocket.NewMessage(websocket.TypePong, nil)
		if err != nil {
			return err
		}
		b, err := json.Marshal(pong)
		if err != nil {
			return err
		}
		select {
		case client.Send <- b:
		default:
		}
	default:
		s.logger.WithField("type", msg.Type).Debug("Ignoring WebSocket message")
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) DayUpdated(string, *domain.CalendarDay)      {}
func (nopNotifier) AssignmentUpdated(string, *domain.Assignment) {}
func (nopNotifier) AssignmentDeleted(string, string)             {}
