package event

import (
	"time"

	"github.com/google/uuid"
)

const (
	GameTopic = "firebrands.game.events"

	GameCreated   = "GAME_CREATED"
	GameAccepted  = "GAME_ACCEPTED"
	GameRolled    = "GAME_ROLLED"
	GameResolved  = "GAME_RESOLVED"
	GameCancelled = "GAME_CANCELLED"
)

type Event struct {
	Id         string    `json:"id"`
	Type       string    `json:"type"`
	Topic      string    `json:"-"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func (e Event) GetEventTopicName() string {
	return e.Topic
}

func New(topic string, eventType string, payload any, at time.Time) Event {
	return Event{
		Id:         uuid.New().String(),
		Type:       eventType,
		Topic:      topic,
		OccurredAt: at,
		Payload:    payload,
	}
}
