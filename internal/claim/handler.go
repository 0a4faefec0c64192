package claim

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
)

type claimHandler struct {
	gate *Gate
}

func RegisterRoutes(rg *gin.RouterGroup, gate *Gate, auth gin.HandlerFunc, throttle gin.HandlerFunc) {
	handler := claimHandler{gate: gate}

	routes := rg.Group("/claim")
	routes.POST("", auth, throttle, handler.claim)
	routes.GET("", auth, handler.status)
}

func (h *claimHandler) claim(c *gin.Context) {
	now := time.Now().UTC()
	grant, err := h.gate.TryClaim(c.Request.Context(), utils.GetActorId(c), now)
	if err != nil {
		var rl *reject.RateLimitedError
		if errors.As(err, &rl) {
			c.Header("Retry-After", strconv.Itoa(int(rl.NextAt.Sub(now).Seconds())+1))
		}
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, grant)
}

func (h *claimHandler) status(c *gin.Context) {
	status, err := h.gate.Status(c.Request.Context(), utils.GetActorId(c), time.Now().UTC())
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, status)
}
