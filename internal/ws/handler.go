package ws

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/ws"
	"github.com/rs/zerolog/log"
)

type wsHandler struct {
	notificationHub *ws.WebSocketNotificationHub
	upgrader        websocket.Upgrader
}

func RegisterRoutes(rg *gin.RouterGroup, hub *ws.WebSocketNotificationHub, auth gin.HandlerFunc) {
	handler := wsHandler{
		notificationHub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	routes := rg.Group("/ws")
	// Browsers cannot set headers on a websocket handshake.
	routes.GET("/game/:id", middleware.TokenFromQuery("access_token"), auth, handler.serveWs)
}

// serveWs streams the events of one game until the client goes away.
// Inbound frames are read only to notice the disconnect.
func (wsh *wsHandler) serveWs(c *gin.Context) {
	gameId, parseErr := strconv.ParseUint(c.Param("id"), 10, 64)
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
		return
	}

	actorId := utils.GetActorId(c)
	conn, err := wsh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Error upgrading ws connection")
		return
	}
	defer conn.Close()

	topic := ws.GameTopic(gameId)
	wsh.notificationHub.RegisterListener(topic, conn)
	defer wsh.notificationHub.UnregisterListener(topic, conn)

	log.Debug().Str("actorId", actorId).Str("topic", topic).Msg("Ws listener joined")

	for {
		var buffer any
		if err := conn.ReadJSON(&buffer); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Error reading ws message")
			}
			return
		}
	}
}
