package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/store/storetest"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]string

func (tt tokenTable) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if actor, ok := tt[idToken]; ok {
		return &auth.Token{Subject: actor}, nil
	}
	return nil, errors.New("unknown token")
}

func newTestRouter(f fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := middleware.VerifyAuthToken(tokenTable{"a": "alice", "b": "bob"})
	RegisterRoutes(r.Group("/firebrands-api"), f.engine, auth, func(*gin.Context) {})
	return r
}

func do(r http.Handler, method string, path string, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/firebrands-api"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGameRoutes(t *testing.T) {
	f := newFixture(t, 0)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 50)
	r := newTestRouter(f)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/game", "", `{"wager":100}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/game", "a", `{"wager":0}`).Code)

	rec := do(r, http.MethodPost, "/game", "a", `{"wager":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.GameOpen, created.GameStatus)
	path := "/game/" + strconv.FormatUint(created.Id, 10)

	rec = do(r, http.MethodGet, "/game?page_size=10", "b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page utils.PageResponse[model.Game]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.ItemCount)

	rec = do(r, http.MethodPost, path+"/accept", "b", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var problem reject.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "error.ledger.insufficient-funds", problem.Code)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, path+"/roll", "a", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/game/404", "a", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/game/abc", "a", "").Code)

	rec = do(r, http.MethodPost, path+"/cancel", "a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled model.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, model.GameCancelled, cancelled.GameStatus)

	rec = do(r, http.MethodGet, path+"/rolls", "b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
