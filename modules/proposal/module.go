package proposal

import (
	"meetsync/core/database"
	"meetsync/core/middleware"
	"meetsync/core/storage"
	"meetsync/modules/proposal/controller"
	"meetsync/modules/proposal/repository"
	"meetsync/modules/proposal/router"
	"meetsync/modules/proposal/service"
	"meetsync/modules/video"

	"github.com/labstack/echo/v4"
)

// Init wires the proposal module. The space gate, notifier, video registry
// and object storage are injected by the server so module order stays
// explicit; storage may be nil when no bucket is configured.
func Init(e *echo.Group, db database.Database, mw *middleware.Middleware, spaces service.SpaceGate, notifier service.Notifier, videos *video.Registry, store storage.ObjectStorage) service.ProposalService {
	repo := repository.NewProposalRepository(db)
	svc := service.NewProposalService(repo, spaces, notifier, videos, store)
	ctrl := controller.NewProposalController(svc)

	router.NewProposalRouter(ctrl).Register(e, mw)

	return svc
}
