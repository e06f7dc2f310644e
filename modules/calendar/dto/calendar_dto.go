package dto

import "time"

// BusyPeriod is one busy interval as reported by a calendar provider.
// Bounds stay as RFC3339 strings until the slot computer parses them;
// unparseable entries are discarded there, not here.
type BusyPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SlotComputeParams bound the slot availability computation
type SlotComputeParams struct {
	StartDate         string `json:"start_date"` // YYYY-MM-DD, local
	EndDate           string `json:"end_date"`   // YYYY-MM-DD, local
	DurationMinutes   int    `json:"duration_minutes"`
	BusinessHourStart int    `json:"business_hour_start"`
	BusinessHourEnd   int    `json:"business_hour_end"`
}

// SuggestedSlot is one open candidate slot. Times are local-naive strings;
// the caller supplies timezone context. DateKey and DayOfWeek exist for UI
// grouping only.
type SuggestedSlot struct {
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	DayOfWeek string `json:"day_of_week"`
	DateKey   string `json:"date_key"`
}

// SuggestSlotsRequest asks for open slots across a set of users' calendars
type SuggestSlotsRequest struct {
	SpaceID           string   `json:"space_id" validate:"required"`
	UserIDs           []string `json:"user_ids" validate:"required"`
	StartDate         string   `json:"start_date" validate:"required"`
	EndDate           string   `json:"end_date" validate:"required"`
	DurationMinutes   int      `json:"duration_minutes"`
	BusinessHourStart int      `json:"business_hour_start"`
	BusinessHourEnd   int      `json:"business_hour_end"`
}

// SuggestSlotsResponse reports the computed slots and how each requested
// user was handled.
type SuggestSlotsResponse struct {
	Slots               []SuggestedSlot `json:"slots"`
	ConnectedUserIDs    []string        `json:"connected_user_ids"`
	DisconnectedUserIDs []string        `json:"disconnected_user_ids"`
	FailedUserIDs       []string        `json:"failed_user_ids"`
	RejectedUserIDs     []string        `json:"rejected_user_ids"`
}

// CalendarConnectionResponse for connection listings
type CalendarConnectionResponse struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	CalendarEmail string    `json:"calendar_email"`
	IsActive      bool      `json:"is_active"`
	ConnectedAt   time.Time `json:"connected_at"`
}

// SaveConnectionRequest stores provider tokens obtained by the caller's
// OAuth exchange.
type SaveConnectionRequest struct {
	Provider       string    `json:"provider" validate:"required"`
	AccessToken    string    `json:"access_token" validate:"required"`
	RefreshToken   string    `json:"refresh_token" validate:"required"`
	TokenExpiresAt time.Time `json:"token_expires_at" validate:"required"`
	CalendarEmail  string    `json:"calendar_email" validate:"required"`
}
