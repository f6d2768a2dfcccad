package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jlcedu/rechtszaal-backend/internal/clients/redis"
	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/sse"
)

// SessionNotifier implements courtroom.Notifier on top of the SSE hub.
// The engine calls it while holding session state, so every path here
// must return without blocking: local delivery goes through the hub's
// drop-on-full broadcast, and bus publishes are queued to a single
// forwarder goroutine. With a redis bus attached, events go through the
// bus and each replica's forwarder delivers them to its connected
// clients, the local one included.
type SessionNotifier struct {
	log      *logger.Logger
	hub      *sse.SSEHub
	bus      redis.SSEBus
	outbound chan sse.SSEMessage
}

func NewSessionNotifier(log *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) *SessionNotifier {
	n := &SessionNotifier{
		log: log.With("service", "SessionNotifier"),
		hub: hub,
		bus: bus,
	}
	if bus != nil {
		n.outbound = make(chan sse.SSEMessage, 64)
		go n.publishLoop()
	}
	return n
}

func (n *SessionNotifier) TurnAppended(userID, sessionID uuid.UUID, turn courtroom.Turn) {
	n.emit(userID, sse.SSEEventSimulationTurn, map[string]any{
		"session_id": sessionID,
		"turn":       turn,
	})
}

func (n *SessionNotifier) PhaseChanged(userID, sessionID uuid.UUID, phase courtroom.Phase) {
	n.emit(userID, sse.SSEEventSimulationPhase, map[string]any{
		"session_id": sessionID,
		"phase":      phase,
	})
}

func (n *SessionNotifier) Completed(userID, sessionID uuid.UUID, score int, achievements []string) {
	badges := make([]courtroom.AchievementInfo, 0, len(achievements))
	for _, t := range achievements {
		if info, ok := courtroom.AchievementByType(t); ok {
			badges = append(badges, info)
		}
	}
	n.emit(userID, sse.SSEEventSimulationCompleted, map[string]any{
		"session_id":   sessionID,
		"score":        score,
		"achievements": badges,
	})
}

func (n *SessionNotifier) Failed(userID, sessionID uuid.UUID, message string) {
	n.emit(userID, sse.SSEEventSimulationError, map[string]any{
		"session_id": sessionID,
		"message":    message,
	})
}

func (n *SessionNotifier) emit(userID uuid.UUID, event sse.SSEEvent, data any) {
	msg := sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   event,
		Data:    data,
	}
	if n.bus == nil {
		n.hub.Broadcast(msg)
		return
	}
	select {
	case n.outbound <- msg:
	default:
		// A stuck bus must not stall the engine; deliver locally and
		// move on, like the hub does for a slow client.
		n.log.Warn("SSE publish queue full, delivering locally", "event", string(event))
		n.hub.Broadcast(msg)
	}
}

// publishLoop drains the queue one message at a time so bus ordering
// matches emit ordering. A failed publish falls back to local delivery.
func (n *SessionNotifier) publishLoop() {
	for msg := range n.outbound {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := n.bus.Publish(ctx, msg)
		cancel()
		if err != nil {
			n.log.Warn("failed to publish SSE message to bus, delivering locally", "error", err)
			n.hub.Broadcast(msg)
		}
	}
}
