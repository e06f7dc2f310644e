package service

import (
	"context"
	"testing"

	"meetsync/core/errors"
	"meetsync/modules/space/dto"
	"meetsync/modules/space/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpaceRepo struct {
	space   *entity.Space
	members map[uuid.UUID]entity.MemberRole
	emails  map[uuid.UUID]string

	created *entity.Space
}

func (f *fakeSpaceRepo) CreateSpace(_ context.Context, space *entity.Space) (*entity.Space, error) {
	space.ID = uuid.New()
	f.created = space
	return space, nil
}

func (f *fakeSpaceRepo) GetSpaceByID(_ context.Context, id uuid.UUID) (*entity.Space, error) {
	if f.space == nil || f.space.ID != id {
		return nil, nil
	}
	return f.space, nil
}

func (f *fakeSpaceRepo) ListSpacesForUser(_ context.Context, _ uuid.UUID) ([]entity.Space, error) {
	if f.space == nil {
		return nil, nil
	}
	return []entity.Space{*f.space}, nil
}

func (f *fakeSpaceRepo) GetMember(_ context.Context, spaceID, userID uuid.UUID) (*entity.SpaceMember, error) {
	role, ok := f.members[userID]
	if !ok {
		return nil, nil
	}
	return &entity.SpaceMember{SpaceID: spaceID, UserID: userID, Role: role}, nil
}

func (f *fakeSpaceRepo) ListMembers(_ context.Context, spaceID uuid.UUID) ([]entity.SpaceMember, error) {
	members := make([]entity.SpaceMember, 0, len(f.members))
	for userID, role := range f.members {
		members = append(members, entity.SpaceMember{SpaceID: spaceID, UserID: userID, Role: role})
	}
	return members, nil
}

func (f *fakeSpaceRepo) FilterMembers(_ context.Context, _ uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	matched := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := f.members[id]; ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func (f *fakeSpaceRepo) GetUserEmails(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	resolved := make(map[uuid.UUID]string, len(userIDs))
	for _, id := range userIDs {
		if email, ok := f.emails[id]; ok {
			resolved[id] = email
		}
	}
	return resolved, nil
}

func TestCheckAuthorization_RolePolicy(t *testing.T) {
	spaceID := uuid.New()
	owner, admin, member := uuid.New(), uuid.New(), uuid.New()
	repo := &fakeSpaceRepo{members: map[uuid.UUID]entity.MemberRole{
		owner:  entity.RoleOwner,
		admin:  entity.RoleAdmin,
		member: entity.RoleMember,
	}}
	svc := NewSpaceService(repo)

	cases := []struct {
		name    string
		userID  uuid.UUID
		action  string
		allowed bool
	}{
		{"owner may create", owner, dto.ActionProposalCreate, true},
		{"admin may confirm", admin, dto.ActionProposalConfirm, true},
		{"admin may cancel", admin, dto.ActionProposalCancel, true},
		{"admin may extend", admin, dto.ActionProposalExtend, true},
		{"admin may remind", admin, dto.ActionProposalRemind, true},
		{"member may not create", member, dto.ActionProposalCreate, false},
		{"member may not confirm", member, dto.ActionProposalConfirm, false},
		{"member may read", member, dto.ActionProposalRead, true},
		{"member may respond", member, dto.ActionProposalRespond, true},
		{"member may suggest", member, dto.ActionCalendarSuggest, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, appErr := svc.CheckAuthorization(context.Background(), tc.userID, spaceID, tc.action)
			require.Nil(t, appErr)
			assert.Equal(t, tc.allowed, decision.Allowed)
			if !tc.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestCheckAuthorization_NonMemberDenied(t *testing.T) {
	repo := &fakeSpaceRepo{members: map[uuid.UUID]entity.MemberRole{}}
	svc := NewSpaceService(repo)

	decision, appErr := svc.CheckAuthorization(context.Background(), uuid.New(), uuid.New(), dto.ActionProposalRead)

	require.Nil(t, appErr)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "not a member")
}

func TestCheckAuthorization_UnknownAction(t *testing.T) {
	repo := &fakeSpaceRepo{members: map[uuid.UUID]entity.MemberRole{}}
	svc := NewSpaceService(repo)

	decision, appErr := svc.CheckAuthorization(context.Background(), uuid.New(), uuid.New(), "proposal:delete")

	assert.Nil(t, decision)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestCreateSpace_SlugFromName(t *testing.T) {
	repo := &fakeSpaceRepo{}
	svc := NewSpaceService(repo)
	orgID := uuid.New()

	resp, appErr := svc.CreateSpace(context.Background(), uuid.New(), &dto.CreateSpaceRequest{
		OrgID: orgID.String(),
		Name:  "Client Onboarding",
	})

	require.Nil(t, appErr)
	assert.Equal(t, "Client Onboarding", resp.Name)
	require.NotNil(t, repo.created)
	assert.Regexp(t, `^client-onboarding-[a-z0-9_=-]{6}$`, repo.created.Slug)
	assert.Equal(t, orgID, repo.created.OrgID)
}

func TestCreateSpace_Validation(t *testing.T) {
	svc := NewSpaceService(&fakeSpaceRepo{})

	_, appErr := svc.CreateSpace(context.Background(), uuid.New(), &dto.CreateSpaceRequest{OrgID: "nope", Name: "x"})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)

	_, appErr = svc.CreateSpace(context.Background(), uuid.New(), &dto.CreateSpaceRequest{OrgID: uuid.New().String(), Name: "  "})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestResolveOrg(t *testing.T) {
	orgID := uuid.New()
	spaceID := uuid.New()
	repo := &fakeSpaceRepo{space: &entity.Space{OrgID: orgID}}
	repo.space.ID = spaceID
	svc := NewSpaceService(repo)

	resolved, appErr := svc.ResolveOrg(context.Background(), spaceID)
	require.Nil(t, appErr)
	assert.Equal(t, orgID, resolved)

	_, appErr = svc.ResolveOrg(context.Background(), uuid.New())
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestFilterMembers_SplitsRejected(t *testing.T) {
	inside := uuid.New()
	outside := uuid.New()
	repo := &fakeSpaceRepo{members: map[uuid.UUID]entity.MemberRole{inside: entity.RoleMember}}
	svc := NewSpaceService(repo)

	members, rejected, appErr := svc.FilterMembers(context.Background(), uuid.New(), []uuid.UUID{inside, outside})

	require.Nil(t, appErr)
	assert.Equal(t, []uuid.UUID{inside}, members)
	assert.Equal(t, []uuid.UUID{outside}, rejected)
}

func TestListMembers_RequiresMembership(t *testing.T) {
	repo := &fakeSpaceRepo{members: map[uuid.UUID]entity.MemberRole{}}
	svc := NewSpaceService(repo)

	_, appErr := svc.ListMembers(context.Background(), uuid.New(), uuid.New())

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}
