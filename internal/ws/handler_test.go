package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWsReceivesGameEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewNotificationHub()
	r := gin.New()
	RegisterRoutes(r.Group("/firebrands-api"), hub, func(c *gin.Context) {
		utils.SetAccessTokenCtx(&utils.AccessToken{Token: auth.Token{Subject: "alice"}}, c)
	})

	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/firebrands-api/ws/game/7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	topic := ws.GameTopic(7)
	require.Eventually(t, func() bool { return hub.ListenerCount(topic) == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(topic, map[string]string{"type": "GAME_ROLLED"})
	hub.Publish(ws.GameTopic(8), map[string]string{"type": "GAME_CREATED"})

	var received map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, "GAME_ROLLED", received["type"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.ListenerCount(topic) == 0 }, time.Second, 10*time.Millisecond)
}

type singleTokenVerifier string

func (v singleTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != string(v) {
		return nil, errors.New("unknown token")
	}
	return &auth.Token{Subject: "alice"}, nil
}

func TestServeWsAcceptsTokenInQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewNotificationHub()
	r := gin.New()
	RegisterRoutes(r.Group("/firebrands-api"), hub, middleware.VerifyAuthToken(singleTokenVerifier("alice-token")))

	server := httptest.NewServer(r)
	defer server.Close()
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/firebrands-api/ws/game/7"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?access_token=alice-token", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.ListenerCount(ws.GameTopic(7)) == 1 }, time.Second, 10*time.Millisecond)
}
