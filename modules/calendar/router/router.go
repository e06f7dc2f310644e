package router

import (
	"meetsync/core/middleware"
	"meetsync/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{controller: controller}
}

func (r *CalendarRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/calendar", mw.AuthMiddleware())
	group.GET("/connections", r.controller.GetConnections)
	group.POST("/connections", r.controller.SaveConnection)
	group.DELETE("/connections/:provider", r.controller.Disconnect)
	group.POST("/suggest-slots", r.controller.SuggestSlots)
}
