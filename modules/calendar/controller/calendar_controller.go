package controller

import (
	"meetsync/core/constants"
	"meetsync/core/controller"
	"meetsync/core/errors"
	"meetsync/core/utils"
	"meetsync/modules/calendar/dto"
	"meetsync/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	service service.CalendarService
	controller.BaseController
}

func NewCalendarController(service service.CalendarService) *CalendarController {
	return &CalendarController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// SaveConnection stores calendar provider tokens for the caller
// @Summary Save a calendar connection
// @Description Stores provider OAuth tokens obtained by the client-side exchange
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SaveConnectionRequest true "Connection tokens"
// @Success 200 {object} dto.CalendarConnectionResponse
// @Failure 400 {object} errors.AppError
// @Router /private/calendar/connections [post]
func (c *CalendarController) SaveConnection(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	req := new(dto.SaveConnectionRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.SaveConnection(ctx.Request().Context(), userID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Calendar connected successfully")
}

// GetConnections lists the caller's calendar connections
// @Summary List calendar connections
// @Description Returns the caller's active calendar connections
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.CalendarConnectionResponse
// @Failure 401 {object} errors.AppError
// @Router /private/calendar/connections [get]
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	result, appErr := c.service.GetConnections(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Connections retrieved successfully")
}

// Disconnect deactivates a calendar provider connection
// @Summary Disconnect a calendar
// @Description Deactivates the caller's connection for the given provider
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.AppError
// @Router /private/calendar/connections/{provider} [delete]
func (c *CalendarController) Disconnect(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	if appErr := c.service.Disconnect(ctx.Request().Context(), userID, ctx.Param("provider")); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Calendar disconnected successfully")
}

// SuggestSlots computes open candidate slots across users' calendars
// @Summary Suggest open slots
// @Description Scans the requested members' busy periods and returns open weekday business-hour slots
// @Tags Calendar
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SuggestSlotsRequest true "Suggestion parameters"
// @Success 200 {object} dto.SuggestSlotsResponse
// @Failure 400 {object} errors.AppError
// @Failure 403 {object} errors.AppError
// @Router /private/calendar/suggest-slots [post]
func (c *CalendarController) SuggestSlots(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	req := new(dto.SuggestSlotsRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	spaceID, parseErr := uuid.Parse(req.SpaceID)
	if parseErr != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid space ID")
	}

	result, appErr := c.service.SuggestSlots(ctx.Request().Context(), userID, spaceID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Slots suggested successfully")
}

// Helper function to get user ID from JWT context
func getUserIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "No token provided", nil)
	}
	return claims.UserID, nil
}
