package profile

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
)

type profileHandler struct {
	profile *ProfileService
}

func RegisterRoutes(rg *gin.RouterGroup, profile *ProfileService, auth gin.HandlerFunc) {
	handler := profileHandler{profile: profile}

	routes := rg.Group("/profile")
	routes.GET("/:id", auth, handler.getProfileById)
}

func (h profileHandler) getProfileById(c *gin.Context) {
	profile, err := h.profile.FindById(c.Request.Context(), c.Param("id"), time.Now())
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, profile)
}
