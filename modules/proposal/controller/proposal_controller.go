package controller

import (
	"strconv"

	"meetsync/core/constants"
	"meetsync/core/controller"
	"meetsync/core/errors"
	"meetsync/core/utils"
	"meetsync/modules/proposal/dto"
	"meetsync/modules/proposal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ProposalController struct {
	service service.ProposalService
	controller.BaseController
}

func NewProposalController(service service.ProposalService) *ProposalController {
	return &ProposalController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// ListProposals lists a space's proposals
// @Summary List proposals
// @Description Returns a space's proposals, newest first, optionally filtered by status
// @Tags Proposal
// @Security BearerAuth
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param status query string false "Status filter"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {array} dto.ProposalResponse
// @Failure 401 {object} errors.AppError
// @Failure 403 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals [get]
func (c *ProposalController) ListProposals(ctx echo.Context) error {
	userID, spaceID, err := pathIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var status *string
	if raw := ctx.QueryParam("status"); raw != "" {
		status = &raw
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	result, appErr := c.service.ListProposals(ctx.Request().Context(), userID, spaceID, status, limit)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposals retrieved successfully")
}

// CreateProposal creates a proposal with candidate slots and respondents
// @Summary Create a proposal
// @Description Creates an open proposal with 2-5 candidate slots and its respondent list
// @Tags Proposal
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param request body dto.CreateProposalRequest true "Proposal details"
// @Success 200 {object} dto.ProposalResponse
// @Failure 400 {object} errors.AppError
// @Failure 403 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals [post]
func (c *ProposalController) CreateProposal(ctx echo.Context) error {
	userID, spaceID, err := pathIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	req := new(dto.CreateProposalRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.CreateProposal(ctx.Request().Context(), userID, spaceID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposal created successfully")
}

// GetResponses returns the proposal read model with per-slot aggregates
// @Summary Get proposal responses
// @Description Returns the proposal, its slots with response aggregates, and each respondent's answers
// @Tags Proposal
// @Security BearerAuth
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Success 200 {object} dto.ProposalDetailResponse
// @Failure 403 {object} errors.AppError
// @Failure 404 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/responses [get]
func (c *ProposalController) GetResponses(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.service.GetResponses(ctx.Request().Context(), userID, spaceID, proposalID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Responses retrieved successfully")
}

// SubmitResponses records the caller's availability answers
// @Summary Submit slot responses
// @Description Records a batch of per-slot availability answers for the caller; re-answering overwrites
// @Tags Proposal
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Param request body dto.SubmitResponsesRequest true "Responses"
// @Success 200 {object} dto.SubmitResponsesResponse
// @Failure 400 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/responses [post]
func (c *ProposalController) SubmitResponses(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	req := new(dto.SubmitResponsesRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.SubmitResponses(ctx.Request().Context(), userID, spaceID, proposalID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Responses recorded successfully")
}

// ConfirmSlot confirms the proposal on one slot
// @Summary Confirm a slot
// @Description Atomically confirms an open proposal on the chosen slot and provisions the meeting
// @Tags Proposal
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Param request body dto.ConfirmSlotRequest true "Slot selection"
// @Success 200 {object} dto.ConfirmSlotResponse
// @Failure 403 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/confirm [post]
func (c *ProposalController) ConfirmSlot(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	req := new(dto.ConfirmSlotRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.ConfirmSlot(ctx.Request().Context(), userID, spaceID, proposalID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposal confirmed successfully")
}

// CancelProposal cancels an open proposal
// @Summary Cancel a proposal
// @Description Moves an open proposal to cancelled; decided proposals conflict
// @Tags Proposal
// @Security BearerAuth
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Success 200 {object} dto.ProposalResponse
// @Failure 403 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/cancel [post]
func (c *ProposalController) CancelProposal(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.service.CancelProposal(ctx.Request().Context(), userID, spaceID, proposalID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposal cancelled successfully")
}

// ExtendProposal moves the expiry deadline forward
// @Summary Extend a proposal
// @Description Sets a new future expiry on an open proposal
// @Tags Proposal
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Param request body dto.ExtendProposalRequest true "New expiry"
// @Success 200 {object} dto.ProposalResponse
// @Failure 400 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/extend [post]
func (c *ProposalController) ExtendProposal(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	req := new(dto.ExtendProposalRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, appErr := c.service.ExtendProposal(ctx.Request().Context(), userID, spaceID, proposalID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposal extended successfully")
}

// SendReminders nudges respondents who have not answered
// @Summary Send reminders
// @Description Sends a deduped reminder notification to every respondent with no answers yet
// @Tags Proposal
// @Security BearerAuth
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param proposalId path string true "Proposal ID"
// @Success 200 {object} dto.SendRemindersResponse
// @Failure 403 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/spaces/{spaceId}/proposals/{proposalId}/reminders [post]
func (c *ProposalController) SendReminders(ctx echo.Context) error {
	userID, spaceID, proposalID, err := pathProposalIdentity(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.service.SendReminders(ctx.Request().Context(), userID, spaceID, proposalID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Reminders dispatched")
}

func pathIdentity(ctx echo.Context) (userID, spaceID uuid.UUID, err *errors.AppError) {
	claims, ok := ctx.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return uuid.Nil, uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "No token provided", nil)
	}
	spaceID, parseErr := uuid.Parse(ctx.Param("spaceId"))
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid space ID", parseErr)
	}
	return claims.UserID, spaceID, nil
}

func pathProposalIdentity(ctx echo.Context) (userID, spaceID, proposalID uuid.UUID, err *errors.AppError) {
	userID, spaceID, err = pathIdentity(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	proposalID, parseErr := uuid.Parse(ctx.Param("proposalId"))
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid proposal ID", parseErr)
	}
	return userID, spaceID, proposalID, nil
}
