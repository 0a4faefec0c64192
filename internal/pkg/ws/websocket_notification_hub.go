package ws

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketNotificationHub fans events out to the sockets listening on a
// topic. Writes are serialized because a gorilla connection allows only one
// concurrent writer.
type WebSocketNotificationHub struct {
	registrationMutex sync.Mutex
	listeners         map[string][]*websocket.Conn
}

func NewNotificationHub() *WebSocketNotificationHub {
	return &WebSocketNotificationHub{
		listeners: make(map[string][]*websocket.Conn),
	}
}

func (hub *WebSocketNotificationHub) RegisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	hub.listeners[topic] = append(hub.listeners[topic], conn)
}

func (hub *WebSocketNotificationHub) UnregisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	current := hub.listeners[topic]
	for i, listener := range current {
		if listener == conn {
			current = append(current[:i], current[i+1:]...)
			break
		}
	}

	if len(current) == 0 {
		delete(hub.listeners, topic)
		return
	}
	hub.listeners[topic] = current
}

func (hub *WebSocketNotificationHub) Publish(targetTopic string, event any) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	for _, listener := range hub.listeners[targetTopic] {
		if err := listener.WriteJSON(event); err != nil {
			log.Debug().Err(err).Str("topic", targetTopic).Msg("Dropping ws event for listener")
		}
	}
}

func (hub *WebSocketNotificationHub) ListenerCount(topic string) int {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	return len(hub.listeners[topic])
}

// GameTopic is the hub topic that carries updates for one game.
func GameTopic(gameId uint64) string {
	return fmt.Sprintf("game/%d", gameId)
}
