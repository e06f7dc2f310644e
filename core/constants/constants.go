package constants

import "time"

// Context keys
const (
	ContextTokenData = "token_data"
)

// Token scopes
const (
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"
)

// Database settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Timeouts
const (
	DefaultTimeout       = 10 * time.Second
	VideoProviderTimeout = 15 * time.Second
	FreeBusyTimeout      = 30 * time.Second
)

// Proposal rules
const (
	ProposalMinSlots       = 2
	ProposalMaxSlots       = 5
	ProposalMinDuration    = 15  // minutes
	ProposalMaxDuration    = 480 // minutes
	ProposalListLimitMax   = 50
	SuggestionMaxUserIDs   = 10
	SuggestionSlotCap      = 100
	SuggestionStepMinutes  = 30
	FreeBusyCacheTTL       = 2 * time.Minute
	FreeBusyTokenEarlySkew = 5 * time.Minute
)

// Reminder types. Only manual dispatch exists today; the dedup key keeps a
// type segment so a scheduled type can be added without a schema change.
const (
	ReminderTypeManual = "manual"
)

// Background task names
const (
	TaskProposalExpire = "proposal:expire"
)

// Notification types
const (
	NotificationTypeReminder  = "proposal_reminder"
	NotificationTypeConfirmed = "proposal_confirmed"
	NotificationTypeCancelled = "proposal_cancelled"
)
