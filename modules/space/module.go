package space

import (
	"meetsync/core/database"
	"meetsync/core/middleware"
	"meetsync/modules/space/controller"
	"meetsync/modules/space/repository"
	"meetsync/modules/space/router"
	"meetsync/modules/space/service"

	"github.com/labstack/echo/v4"
)

// Init wires the space module and returns its service so sibling modules
// can use the authorization gate.
func Init(e *echo.Group, db database.Database, mw *middleware.Middleware) service.SpaceService {
	repo := repository.NewSpaceRepository(db)
	svc := service.NewSpaceService(repo)
	ctrl := controller.NewSpaceController(svc)

	router.NewSpaceRouter(ctrl).Register(e, mw)

	return svc
}
