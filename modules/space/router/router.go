package router

import (
	"meetsync/core/middleware"
	"meetsync/modules/space/controller"

	"github.com/labstack/echo/v4"
)

type SpaceRouter struct {
	controller *controller.SpaceController
}

func NewSpaceRouter(controller *controller.SpaceController) *SpaceRouter {
	return &SpaceRouter{controller: controller}
}

func (r *SpaceRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/spaces", mw.AuthMiddleware())
	group.POST("", r.controller.CreateSpace)
	group.GET("", r.controller.ListSpaces)
	group.GET("/:id/members", r.controller.ListMembers)
}
