package router

import (
	"meetsync/core/middleware"
	"meetsync/modules/proposal/controller"

	"github.com/labstack/echo/v4"
)

type ProposalRouter struct {
	controller *controller.ProposalController
}

func NewProposalRouter(controller *controller.ProposalController) *ProposalRouter {
	return &ProposalRouter{controller: controller}
}

func (r *ProposalRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/spaces/:spaceId/proposals", mw.AuthMiddleware())
	group.GET("", r.controller.ListProposals)
	group.POST("", r.controller.CreateProposal)
	group.GET("/:proposalId/responses", r.controller.GetResponses)
	group.POST("/:proposalId/responses", r.controller.SubmitResponses)
	group.POST("/:proposalId/confirm", r.controller.ConfirmSlot)
	group.POST("/:proposalId/cancel", r.controller.CancelProposal)
	group.POST("/:proposalId/extend", r.controller.ExtendProposal)
	group.POST("/:proposalId/reminders", r.controller.SendReminders)
}
