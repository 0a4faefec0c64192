package roster

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

type rosterHandler struct {
	service *Service
}

// Subscriber is satisfied by the pub/sub client. It is nil when running
// without a google project.
type Subscriber interface {
	Subscribe(subscriptionHandler pubsub.SubscriptionHandler)
}

func RegisterRoutesAndSubscriptions(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc, subscriber Subscriber) {
	handler := rosterHandler{service: service}

	routes := rg.Group("/roster")
	routes.GET("/members", auth, middleware.RequireAdmin, handler.listMembers)
	routes.PUT("/members/:id", auth, middleware.RequireAdmin, handler.upsertMember)
	routes.DELETE("/members/:id", auth, middleware.RequireAdmin, handler.departMember)

	if subscriber != nil {
		bridge := &rosterBridge{service: service}
		go subscriber.Subscribe(pubsub.SubscriptionHandler{
			SubscriptionId: MembersSubscription,
			Handler:        bridge.handleMemberObserved,
		})
	}
}

type UpsertMemberRequest struct {
	DisplayName string  `json:"displayName" binding:"required,max=64"`
	Rank        string  `json:"rank" binding:"max=32"`
	Note        *string `json:"note" binding:"omitempty,max=256"`
}

func (h rosterHandler) listMembers(c *gin.Context) {
	page, problem := utils.NewPageRequest(c)
	if problem != nil {
		c.JSON(problem.Problem.Status, problem.Problem)
		return
	}

	members, count, err := h.service.List(c.Request.Context(), page)
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.JSON(http.StatusOK, utils.NewPage(members, count, page))
}

func (h rosterHandler) upsertMember(c *gin.Context) {
	body := UpsertMemberRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem(err))
		return
	}

	member, err := h.service.Observe(c.Request.Context(), MemberObserved{
		ActorId:     c.Param("id"),
		DisplayName: body.DisplayName,
		Rank:        body.Rank,
		Note:        body.Note,
	}, time.Now())
	if err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	log.Info().Str("admin", utils.GetActorId(c)).Str("actorId", member.ActorId).Msg("Member upserted")
	c.JSON(http.StatusOK, member)
}

func (h rosterHandler) departMember(c *gin.Context) {
	if err := h.service.Depart(c.Request.Context(), c.Param("id")); err != nil {
		p := reject.Trace(err)
		c.JSON(p.Problem.Status, p.Problem)
		return
	}

	c.Status(http.StatusNoContent)
}
