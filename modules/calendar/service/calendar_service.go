package service

import (
	"context"
	"sync"
	"time"

	"meetsync/core/config"
	"meetsync/core/constants"
	"meetsync/core/errors"
	"meetsync/core/logger"
	"meetsync/modules/calendar/dto"
	"meetsync/modules/calendar/entity"
	"meetsync/modules/calendar/repository"
	spacedto "meetsync/modules/space/dto"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SpaceGate is the slice of the space service the calendar flow depends on
type SpaceGate interface {
	CheckAuthorization(ctx context.Context, userID, spaceID uuid.UUID, action string) (*spacedto.AuthDecision, *errors.AppError)
	FilterMembers(ctx context.Context, spaceID uuid.UUID, userIDs []uuid.UUID) (members []uuid.UUID, rejected []uuid.UUID, appErr *errors.AppError)
}

type CalendarService interface {
	SaveConnection(ctx context.Context, userID uuid.UUID, req *dto.SaveConnectionRequest) (*dto.CalendarConnectionResponse, *errors.AppError)
	GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError)
	Disconnect(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError
	SuggestSlots(ctx context.Context, userID, spaceID uuid.UUID, req *dto.SuggestSlotsRequest) (*dto.SuggestSlotsResponse, *errors.AppError)
}

type calendarService struct {
	repo     repository.CalendarRepository
	spaces   SpaceGate
	freeBusy FreeBusySource
}

func NewCalendarService(repo repository.CalendarRepository, spaces SpaceGate, freeBusy FreeBusySource) CalendarService {
	return &calendarService{
		repo:     repo,
		spaces:   spaces,
		freeBusy: freeBusy,
	}
}

func (s *calendarService) SaveConnection(ctx context.Context, userID uuid.UUID, req *dto.SaveConnectionRequest) (*dto.CalendarConnectionResponse, *errors.AppError) {
	if req.Provider != entity.ProviderGoogle {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Unsupported calendar provider", nil)
	}

	conn := &entity.CalendarConnection{
		UserID:         userID,
		Provider:       req.Provider,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		TokenExpiresAt: req.TokenExpiresAt,
		CalendarEmail:  req.CalendarEmail,
		IsActive:       true,
	}
	created, err := s.repo.CreateConnection(ctx, conn)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to save calendar connection", err)
	}

	return toConnectionResponse(created), nil
}

func (s *calendarService) GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError) {
	connections, err := s.repo.GetConnectionsByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list calendar connections", err)
	}

	result := make([]dto.CalendarConnectionResponse, 0, len(connections))
	for i := range connections {
		result = append(result, *toConnectionResponse(&connections[i]))
	}
	return result, nil
}

func (s *calendarService) Disconnect(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError {
	if err := s.repo.DeactivateConnection(ctx, userID, provider); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to disconnect calendar", err)
	}
	return nil
}

// SuggestSlots scans the requested users' calendars and returns open
// candidate slots. Non-members are rejected up front, per-user provider
// failures are isolated, and when every free/busy query fails the result is
// an empty slot list: suggesting times that silently ignore someone's
// calendar would be worse than suggesting nothing.
func (s *calendarService) SuggestSlots(ctx context.Context, userID, spaceID uuid.UUID, req *dto.SuggestSlotsRequest) (*dto.SuggestSlotsResponse, *errors.AppError) {
	logger.Info("CalendarService:SuggestSlots:Start", "user_id", userID, "space_id", spaceID, "requested", len(req.UserIDs))

	decision, appErr := s.spaces.CheckAuthorization(ctx, userID, spaceID, spacedto.ActionCalendarSuggest)
	if appErr != nil {
		return nil, appErr
	}
	if !decision.Allowed {
		return nil, errors.NewAppError(errors.ErrForbidden, decision.Reason, nil)
	}

	if len(req.UserIDs) == 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "At least one user ID is required", nil)
	}
	if len(req.UserIDs) > constants.SuggestionMaxUserIDs {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Too many user IDs requested", nil)
	}

	requested := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid user ID: "+raw, err)
		}
		requested = append(requested, id)
	}

	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "start_date must be YYYY-MM-DD", err)
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "end_date must be YYYY-MM-DD", err)
	}
	if startDate.After(endDate) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "start_date must not be after end_date", nil)
	}

	params := dto.SlotComputeParams{
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		DurationMinutes:   req.DurationMinutes,
		BusinessHourStart: req.BusinessHourStart,
		BusinessHourEnd:   req.BusinessHourEnd,
	}
	if params.DurationMinutes <= 0 {
		params.DurationMinutes = 60
	}
	if params.BusinessHourStart == 0 && params.BusinessHourEnd == 0 {
		params.BusinessHourStart = 9
		params.BusinessHourEnd = 18
	}

	members, rejected, appErr := s.spaces.FilterMembers(ctx, spaceID, requested)
	if appErr != nil {
		return nil, appErr
	}

	result := &dto.SuggestSlotsResponse{
		Slots:               []dto.SuggestedSlot{},
		ConnectedUserIDs:    []string{},
		DisconnectedUserIDs: []string{},
		FailedUserIDs:       []string{},
		RejectedUserIDs:     idStrings(rejected),
	}

	connections, err := s.repo.GetConnectionsByUserIDs(ctx, members)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load calendar connections", err)
	}

	connected := make(map[uuid.UUID]bool, len(connections))
	for _, conn := range connections {
		connected[conn.UserID] = true
	}
	for _, id := range members {
		if connected[id] {
			result.ConnectedUserIDs = append(result.ConnectedUserIDs, id.String())
		} else {
			result.DisconnectedUserIDs = append(result.DisconnectedUserIDs, id.String())
		}
	}

	if len(connections) == 0 {
		result.Slots = ComputeAvailableSlots(nil, params)
		return result, nil
	}

	timeMin := startDate
	timeMax := endDate.AddDate(0, 0, 1)

	// One free/busy query per connection, in parallel. A failing user is
	// recorded and skipped so one broken calendar does not sink the request.
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		allBusy []dto.BusyPeriod
		failed  []uuid.UUID
	)
	for i := range connections {
		conn := connections[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			token, err := s.ensureValidToken(ctx, &conn)
			if err != nil {
				logger.Warn("CalendarService:SuggestSlots:TokenRefresh:Failed", "user_id", conn.UserID, "error", err)
				mu.Lock()
				failed = append(failed, conn.UserID)
				mu.Unlock()
				return
			}

			busy, err := s.freeBusy.QueryFreeBusy(ctx, token, conn.CalendarEmail, timeMin, timeMax)
			if err != nil {
				logger.Warn("CalendarService:SuggestSlots:FreeBusy:Failed", "user_id", conn.UserID, "error", err)
				mu.Lock()
				failed = append(failed, conn.UserID)
				mu.Unlock()
				return
			}

			mu.Lock()
			allBusy = append(allBusy, busy...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	result.FailedUserIDs = idStrings(failed)

	// Fail closed: when nothing could be read, slots computed from no data
	// would pretend everyone is free.
	if len(failed) == len(connections) {
		logger.Warn("CalendarService:SuggestSlots:AllQueriesFailed", "space_id", spaceID, "connections", len(connections))
		return result, nil
	}

	result.Slots = ComputeAvailableSlots(allBusy, params)
	logger.Info("CalendarService:SuggestSlots:Success", "space_id", spaceID, "slots", len(result.Slots))
	return result, nil
}

// ensureValidToken returns a usable access token for the connection,
// refreshing through the provider's OAuth endpoint when it is near expiry
// and persisting whatever rotated credentials come back.
func (s *calendarService) ensureValidToken(ctx context.Context, conn *entity.CalendarConnection) (string, error) {
	if time.Now().Before(conn.TokenExpiresAt.Add(-constants.FreeBusyTokenEarlySkew)) {
		return conn.AccessToken, nil
	}

	logger.Info("CalendarService:EnsureValidToken:Refreshing", "user_id", conn.UserID)

	cfg, ok := config.GetSafe()
	if !ok {
		return "", errors.NewAppError(errors.ErrInternalServer, "Server configuration error", nil)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	token, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		return "", err
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	if err := s.repo.UpdateConnection(ctx, conn); err != nil {
		logger.Error("CalendarService:EnsureValidToken:Persist:Error:", err)
	}

	return token.AccessToken, nil
}

func toConnectionResponse(conn *entity.CalendarConnection) *dto.CalendarConnectionResponse {
	return &dto.CalendarConnectionResponse{
		ID:            conn.ID.String(),
		Provider:      conn.Provider,
		CalendarEmail: conn.CalendarEmail,
		IsActive:      conn.IsActive,
		ConnectedAt:   conn.CreatedAt,
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
