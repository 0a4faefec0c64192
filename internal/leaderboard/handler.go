package leaderboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
)

const maxLimit = 50

type leaderboardHandler struct {
	board *Board
}

func RegisterRoutes(rg *gin.RouterGroup, board *Board, auth gin.HandlerFunc) {
	handler := leaderboardHandler{board: board}

	rg.GET("/leaderboard", auth, handler.getLeaderboard)
}

type LeaderboardResponse struct {
	Points []Standing `json:"points"`
	Wins   []Standing `json:"wins"`
}

func (h leaderboardHandler) getLeaderboard(c *gin.Context) {
	limit, parseErr := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if parseErr != nil || limit <= 0 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
		return
	}

	points, err := h.board.TopByPoints(c.Request.Context(), limit)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	wins, err := h.board.TopWins(c.Request.Context(), limit)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, LeaderboardResponse{Points: points, Wins: wins})
}
