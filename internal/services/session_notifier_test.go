package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/sse"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type stubBus struct {
	mu        sync.Mutex
	published []sse.SSEMessage
	blockOn   chan struct{}
	err       error
}

func (b *stubBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	if b.blockOn != nil {
		<-b.blockOn
	}
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	b.published = append(b.published, msg)
	b.mu.Unlock()
	return nil
}

func (b *stubBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func (b *stubBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	return nil
}

func (b *stubBus) Close() error { return nil }

func TestSessionNotifier_NeverBlocksOnStuckBus(t *testing.T) {
	hub := sse.NewSSEHub(testLogger())
	bus := &stubBus{blockOn: make(chan struct{})}
	notifier := NewSessionNotifier(testLogger(), hub, bus)

	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, sse.UserChannel(userID))

	// Far more events than the publish queue holds; with the bus stuck
	// every call must still return immediately.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			notifier.TurnAppended(userID, uuid.New(), courtroom.Turn{Role: courtroom.RoleStudent})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("notifier blocked on a stuck bus")
	}

	// Overflow past the queue is delivered locally instead of dropped.
	if len(client.Outbound) == 0 {
		t.Fatalf("expected local delivery for overflow messages")
	}

	close(bus.blockOn)
	deadline := time.Now().Add(2 * time.Second)
	for bus.publishedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("queued messages never reached the bus")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionNotifier_BusFailureFallsBackToHub(t *testing.T) {
	hub := sse.NewSSEHub(testLogger())
	bus := &stubBus{err: errors.New("redis down")}
	notifier := NewSessionNotifier(testLogger(), hub, bus)

	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, sse.UserChannel(userID))

	notifier.PhaseChanged(userID, uuid.New(), courtroom.PhaseActive)

	select {
	case msg := <-client.Outbound:
		if msg.Event != sse.SSEEventSimulationPhase {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected local delivery after publish failure")
	}
}

func TestSessionNotifier_NoBusDeliversLocally(t *testing.T) {
	hub := sse.NewSSEHub(testLogger())
	notifier := NewSessionNotifier(testLogger(), hub, nil)

	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, sse.UserChannel(userID))

	notifier.Completed(userID, uuid.New(), 80, []string{courtroom.AchievementFirstCompletion})

	select {
	case msg := <-client.Outbound:
		if msg.Event != sse.SSEEventSimulationCompleted {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	default:
		t.Fatalf("expected synchronous local delivery")
	}
}
