package sse

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
)

func testHub() *SSEHub {
	return NewSSEHub(&logger.Logger{SugaredLogger: zap.NewNop().Sugar()})
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := testHub()
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	msg := SSEMessage{Channel: UserChannel(userID), Event: SSEEventSimulationTurn}
	hub.Broadcast(msg)

	select {
	case got := <-client.Outbound:
		if got.Event != SSEEventSimulationTurn {
			t.Fatalf("unexpected event %q", got.Event)
		}
	default:
		t.Fatalf("expected a buffered message")
	}
}

func TestHub_BroadcastSkipsOtherChannels(t *testing.T) {
	hub := testHub()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, UserChannel(client.UserID))

	hub.Broadcast(SSEMessage{Channel: UserChannel(uuid.New()), Event: SSEEventSimulationTurn})

	if len(client.Outbound) != 0 {
		t.Fatalf("message leaked across channels")
	}
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := testHub()
	client := hub.NewSSEClient(uuid.New())
	channel := UserChannel(client.UserID)
	hub.AddChannel(client, channel)

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSimulationTurn})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("expected full buffer, got %d", len(client.Outbound))
	}
}

func TestHub_GetClientAndRemove(t *testing.T) {
	hub := testHub()
	client := hub.NewSSEClient(uuid.New())
	channel := UserChannel(client.UserID)
	hub.AddChannel(client, channel)

	if got, ok := hub.GetClient(client.ID); !ok || got != client {
		t.Fatalf("expected client back")
	}

	hub.RemoveChannel(client, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSimulationTurn})
	if len(client.Outbound) != 0 {
		t.Fatalf("unsubscribed client still receives")
	}

	hub.RemoveClient(client)
	if _, ok := hub.GetClient(client.ID); ok {
		t.Fatalf("removed client still resolvable")
	}
}
