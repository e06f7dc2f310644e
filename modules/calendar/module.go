package calendar

import (
	"meetsync/core/cache"
	"meetsync/core/database"
	"meetsync/core/middleware"
	"meetsync/modules/calendar/controller"
	"meetsync/modules/calendar/repository"
	"meetsync/modules/calendar/router"
	"meetsync/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

// Init wires the calendar module. The space gate is injected by the server.
func Init(e *echo.Group, db database.Database, c *cache.Cache, mw *middleware.Middleware, spaces service.SpaceGate) service.CalendarService {
	repo := repository.NewCalendarRepository(db)
	freeBusy := service.NewGoogleFreeBusy(c)
	svc := service.NewCalendarService(repo, spaces, freeBusy)
	ctrl := controller.NewCalendarController(svc)

	router.NewCalendarRouter(ctrl).Register(e, mw)

	return svc
}
