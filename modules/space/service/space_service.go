package service

import (
	"context"
	"fmt"
	"strings"

	"meetsync/core/errors"
	"meetsync/core/logger"
	"meetsync/core/utils"
	"meetsync/modules/space/dto"
	"meetsync/modules/space/entity"
	"meetsync/modules/space/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type SpaceService interface {
	CreateSpace(ctx context.Context, userID uuid.UUID, req *dto.CreateSpaceRequest) (*dto.SpaceResponse, *errors.AppError)
	ListSpaces(ctx context.Context, userID uuid.UUID) ([]dto.SpaceResponse, *errors.AppError)
	ListMembers(ctx context.Context, userID, spaceID uuid.UUID) ([]dto.MemberResponse, *errors.AppError)
	CheckAuthorization(ctx context.Context, userID, spaceID uuid.UUID, action string) (*dto.AuthDecision, *errors.AppError)
	ResolveOrg(ctx context.Context, spaceID uuid.UUID) (uuid.UUID, *errors.AppError)
	FilterMembers(ctx context.Context, spaceID uuid.UUID, userIDs []uuid.UUID) (members []uuid.UUID, rejected []uuid.UUID, appErr *errors.AppError)
	GetUserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, *errors.AppError)
}

type spaceService struct {
	repo repository.SpaceRepositoryInterface
}

func NewSpaceService(repo repository.SpaceRepositoryInterface) SpaceService {
	return &spaceService{repo: repo}
}

// manageActions require an admin or owner role; every other known action
// only requires membership.
var manageActions = map[string]bool{
	dto.ActionProposalCreate:  true,
	dto.ActionProposalConfirm: true,
	dto.ActionProposalCancel:  true,
	dto.ActionProposalExtend:  true,
	dto.ActionProposalRemind:  true,
}

var memberActions = map[string]bool{
	dto.ActionProposalRead:    true,
	dto.ActionProposalRespond: true,
	dto.ActionCalendarSuggest: true,
}

func (s *spaceService) CreateSpace(ctx context.Context, userID uuid.UUID, req *dto.CreateSpaceRequest) (*dto.SpaceResponse, *errors.AppError) {
	logger.Info("SpaceService:CreateSpace:Start", "user_id", userID, "name", req.Name)

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "org_id must be a valid UUID", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "name is required", nil)
	}

	suffix := utils.GenerateRandomString(6)

	space := &entity.Space{
		OrgID:     orgID,
		Name:      name,
		Slug:      fmt.Sprintf("%s-%s", slug.Make(name), strings.ToLower(suffix)),
		CreatedBy: userID,
	}

	created, err := s.repo.CreateSpace(ctx, space)
	if err != nil {
		logger.Error("SpaceService:CreateSpace:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create space", err)
	}

	logger.Info("SpaceService:CreateSpace:Success", "space_id", created.ID)
	return toSpaceResponse(created), nil
}

func (s *spaceService) ListSpaces(ctx context.Context, userID uuid.UUID) ([]dto.SpaceResponse, *errors.AppError) {
	spaces, err := s.repo.ListSpacesForUser(ctx, userID)
	if err != nil {
		logger.Error("SpaceService:ListSpaces:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list spaces", err)
	}

	responses := make([]dto.SpaceResponse, 0, len(spaces))
	for i := range spaces {
		responses = append(responses, *toSpaceResponse(&spaces[i]))
	}
	return responses, nil
}

func (s *spaceService) ListMembers(ctx context.Context, userID, spaceID uuid.UUID) ([]dto.MemberResponse, *errors.AppError) {
	decision, appErr := s.CheckAuthorization(ctx, userID, spaceID, dto.ActionProposalRead)
	if appErr != nil {
		return nil, appErr
	}
	if !decision.Allowed {
		return nil, errors.NewAppError(errors.ErrForbidden, decision.Reason, nil)
	}

	members, err := s.repo.ListMembers(ctx, spaceID)
	if err != nil {
		logger.Error("SpaceService:ListMembers:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list members", err)
	}

	responses := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, dto.MemberResponse{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.CreatedAt,
		})
	}
	return responses, nil
}

// CheckAuthorization decides whether userID may perform action within the
// space. Read and respond actions need membership; proposal management
// actions need an admin or owner role. A non-member is never allowed.
func (s *spaceService) CheckAuthorization(ctx context.Context, userID, spaceID uuid.UUID, action string) (*dto.AuthDecision, *errors.AppError) {
	if !manageActions[action] && !memberActions[action] {
		return nil, errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("Unknown action: %s", action), nil)
	}

	member, err := s.repo.GetMember(ctx, spaceID, userID)
	if err != nil {
		logger.Error("SpaceService:CheckAuthorization:GetMember:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to check authorization", err)
	}
	if member == nil {
		return &dto.AuthDecision{Allowed: false, Reason: "User is not a member of this space"}, nil
	}

	if manageActions[action] && !member.Role.CanManageProposals() {
		return &dto.AuthDecision{
			Allowed: false,
			Role:    string(member.Role),
			Reason:  fmt.Sprintf("Role %s may not perform %s", member.Role, action),
		}, nil
	}

	return &dto.AuthDecision{Allowed: true, Role: string(member.Role)}, nil
}

func (s *spaceService) ResolveOrg(ctx context.Context, spaceID uuid.UUID) (uuid.UUID, *errors.AppError) {
	space, err := s.repo.GetSpaceByID(ctx, spaceID)
	if err != nil {
		logger.Error("SpaceService:ResolveOrg:Repository:Error:", err)
		return uuid.Nil, errors.NewAppError(errors.ErrInternalServer, "Failed to resolve space", err)
	}
	if space == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrNotFound, "Space not found", nil)
	}
	return space.OrgID, nil
}

// FilterMembers splits userIDs into space members and everyone else.
func (s *spaceService) FilterMembers(ctx context.Context, spaceID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, []uuid.UUID, *errors.AppError) {
	members, err := s.repo.FilterMembers(ctx, spaceID, userIDs)
	if err != nil {
		logger.Error("SpaceService:FilterMembers:Repository:Error:", err)
		return nil, nil, errors.NewAppError(errors.ErrInternalServer, "Failed to filter members", err)
	}

	memberSet := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}

	rejected := make([]uuid.UUID, 0)
	for _, id := range userIDs {
		if !memberSet[id] {
			rejected = append(rejected, id)
		}
	}

	return members, rejected, nil
}

func (s *spaceService) GetUserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, *errors.AppError) {
	emails, err := s.repo.GetUserEmails(ctx, userIDs)
	if err != nil {
		logger.Error("SpaceService:GetUserEmails:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to resolve user emails", err)
	}
	return emails, nil
}

func toSpaceResponse(space *entity.Space) *dto.SpaceResponse {
	return &dto.SpaceResponse{
		ID:        space.ID.String(),
		OrgID:     space.OrgID.String(),
		Name:      space.Name,
		Slug:      space.Slug,
		CreatedAt: space.CreatedAt,
	}
}
