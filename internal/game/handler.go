package game

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
)

type gameHandler struct {
	engine *Engine
}

func RegisterRoutes(rg *gin.RouterGroup, engine *Engine, auth gin.HandlerFunc, throttle gin.HandlerFunc) {
	handler := gameHandler{engine: engine}

	routes := rg.Group("/game")
	routes.POST("", auth, throttle, handler.createGame)
	routes.GET("", auth, handler.getGames)
	routes.GET("/:id", auth, handler.getGame)
	routes.GET("/:id/rolls", auth, handler.getRolls)

	routes.POST("/:id/accept", auth, throttle, handler.accept)
	routes.POST("/:id/roll", auth, throttle, handler.roll)
	routes.POST("/:id/cancel", auth, throttle, handler.cancel)
}

func (gh *gameHandler) createGame(c *gin.Context) {
	body := CreateGameRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem(err))
		return
	}

	game, err := gh.engine.Create(c.Request.Context(), utils.GetActorId(c), body.Wager, time.Now())
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusCreated, game)
}

func (gh *gameHandler) getGames(c *gin.Context) {
	page, problem := utils.NewPageRequest(c)
	if problem != nil {
		c.JSON(problem.Problem.Status, problem.Problem)
		return
	}

	games, gamesCount, err := gh.engine.ListActive(c.Request.Context(), page)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, utils.NewPage(games, gamesCount, page))
}

func (gh *gameHandler) getGame(c *gin.Context) {
	gameId, ok := parseGameId(c)
	if !ok {
		return
	}

	game, err := gh.engine.Get(c.Request.Context(), gameId)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, game)
}

func (gh *gameHandler) getRolls(c *gin.Context) {
	gameId, ok := parseGameId(c)
	if !ok {
		return
	}

	rolls, err := gh.engine.Rolls(c.Request.Context(), gameId)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, rolls)
}

func (gh *gameHandler) accept(c *gin.Context) {
	gh.transition(c, gh.engine.Accept)
}

func (gh *gameHandler) roll(c *gin.Context) {
	gh.transition(c, gh.engine.Roll)
}

func (gh *gameHandler) cancel(c *gin.Context) {
	gh.transition(c, gh.engine.Cancel)
}

func (gh *gameHandler) transition(c *gin.Context, action func(ctx context.Context, actor string, id uint64, now time.Time) (*model.Game, error)) {
	gameId, ok := parseGameId(c)
	if !ok {
		return
	}

	game, err := action(c.Request.Context(), utils.GetActorId(c), gameId, time.Now())
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, game)
}

func parseGameId(c *gin.Context) (uint64, bool) {
	gameId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
		return 0, false
	}
	return gameId, true
}
