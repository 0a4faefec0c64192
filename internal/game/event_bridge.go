package game

import (
	"context"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/event"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/ws"
)

// GameEvent describes a committed transition. Roll is set for accept and
// roll transitions.
type GameEvent struct {
	Type string             `json:"type"`
	Game model.Game         `json:"game"`
	Roll *model.RollHistory `json:"roll,omitempty"`
	At   time.Time          `json:"at"`
}

// Notifier is told about transitions after they commit. Notifications are
// best effort and never fail the action that caused them.
type Notifier interface {
	Notify(ctx context.Context, e GameEvent)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, GameEvent) {}

type hubPublisher interface {
	Publish(targetTopic string, event any)
}

// EventBridge forwards game events to the pub/sub game topic and to the
// websocket listeners of the game.
type EventBridge struct {
	publisher pubsub.Publisher
	hub       hubPublisher
}

func NewEventBridge(publisher pubsub.Publisher, hub *ws.WebSocketNotificationHub) *EventBridge {
	bridge := &EventBridge{publisher: publisher}
	if hub != nil {
		bridge.hub = hub
	}
	if bridge.publisher == nil {
		bridge.publisher = pubsub.Noop{}
	}
	return bridge
}

func (b *EventBridge) Notify(_ context.Context, e GameEvent) {
	b.publisher.Publish(event.New(event.GameTopic, e.Type, e, e.At))
	if b.hub != nil {
		b.hub.Publish(ws.GameTopic(e.Game.Id), e)
	}
}
