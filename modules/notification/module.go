package notification

import (
	"meetsync/core/database"
	"meetsync/core/middleware"
	"meetsync/modules/notification/controller"
	"meetsync/modules/notification/repository"
	"meetsync/modules/notification/router"
	"meetsync/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Group, db database.Database, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
