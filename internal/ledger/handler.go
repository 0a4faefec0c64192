package ledger

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

type ledgerHandler struct {
	ledger *Ledger
}

func RegisterRoutes(rg *gin.RouterGroup, ledger *Ledger, auth gin.HandlerFunc, throttle gin.HandlerFunc) {
	handler := ledgerHandler{ledger: ledger}

	routes := rg.Group("/ledger")
	routes.GET("/:id", auth, handler.getBalance)
	routes.GET("/:id/entries", auth, handler.getEntries)
	routes.POST("/transfer", auth, throttle, handler.transfer)
	routes.POST("/:id/adjust", auth, middleware.RequireAdmin, handler.adjust)
}

type BalanceResponse struct {
	ActorId string `json:"actorId"`
	Balance int64  `json:"balance"`
}

func (h *ledgerHandler) getBalance(c *gin.Context) {
	actorId := c.Param("id")
	balance, err := h.ledger.GetBalance(c.Request.Context(), actorId)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{ActorId: actorId, Balance: balance})
}

func (h *ledgerHandler) getEntries(c *gin.Context) {
	actorId := c.Param("id")
	if actorId != utils.GetActorId(c) && !utils.IsAdmin(c) {
		c.JSON(http.StatusForbidden, reject.ForbiddenProblem())
		return
	}

	limit, parseErr := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if parseErr != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
		return
	}

	entries, err := h.ledger.Entries(c.Request.Context(), actorId, limit)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, entries)
}

type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount" binding:"required,min=1"`
}

func (h *ledgerHandler) transfer(c *gin.Context) {
	body := TransferRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem(err))
		return
	}

	from := utils.GetActorId(c)
	result, err := h.ledger.Transfer(c.Request.Context(), from, body.To, body.Amount)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	log.Info().Str("from", from).Str("to", body.To).Int64("amount", body.Amount).Msg("Transferred Firebrands")
	c.JSON(http.StatusOK, result)
}

type AdjustRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

func (h *ledgerHandler) adjust(c *gin.Context) {
	body := AdjustRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem(err))
		return
	}

	actorId := c.Param("id")
	balance, err := h.ledger.ForceAdjust(c.Request.Context(), actorId, body.Delta)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	log.Info().
		Str("admin", utils.GetActorId(c)).
		Str("actorId", actorId).
		Int64("delta", body.Delta).
		Int64("balance", balance).
		Msg("Admin adjusted balance")
	c.JSON(http.StatusOK, BalanceResponse{ActorId: actorId, Balance: balance})
}
