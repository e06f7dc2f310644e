package controller

import (
	"meetsync/core/constants"
	"meetsync/core/controller"
	"meetsync/core/errors"
	"meetsync/core/utils"
	"meetsync/modules/space/dto"
	"meetsync/modules/space/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SpaceController struct {
	service service.SpaceService
	controller.BaseController
}

func NewSpaceController(service service.SpaceService) *SpaceController {
	return &SpaceController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// CreateSpace creates a scheduling space
// @Summary Create a space
// @Description Creates a space and adds the caller as its owner
// @Tags Space
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateSpaceRequest true "Space details"
// @Success 200 {object} dto.SpaceResponse
// @Failure 400 {object} errors.AppError
// @Failure 401 {object} errors.AppError
// @Router /private/spaces [post]
func (c *SpaceController) CreateSpace(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	req := new(dto.CreateSpaceRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.CreateSpace(ctx.Request().Context(), userID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Space created successfully")
}

// ListSpaces lists the caller's spaces
// @Summary List spaces
// @Description Returns every space the caller is a member of
// @Tags Space
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SpaceResponse
// @Failure 401 {object} errors.AppError
// @Router /private/spaces [get]
func (c *SpaceController) ListSpaces(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	result, appErr := c.service.ListSpaces(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Spaces retrieved successfully")
}

// ListMembers lists a space's members
// @Summary List space members
// @Description Returns the members of a space the caller belongs to
// @Tags Space
// @Security BearerAuth
// @Produce json
// @Param id path string true "Space ID"
// @Success 200 {array} dto.MemberResponse
// @Failure 401 {object} errors.AppError
// @Failure 403 {object} errors.AppError
// @Router /private/spaces/{id}/members [get]
func (c *SpaceController) ListMembers(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	spaceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid space ID")
	}

	result, appErr := c.service.ListMembers(ctx.Request().Context(), userID, spaceID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Members retrieved successfully")
}

// Helper function to get user ID from JWT context
func getUserIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "No token provided", nil)
	}
	return claims.UserID, nil
}
