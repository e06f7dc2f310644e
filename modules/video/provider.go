// Package video exposes the video-conference capability consumed by the
// proposal confirmation flow. Providers are resolved by name through an
// explicit registry injected at wiring time; there is no process-global
// registration.
package video

import (
	"context"
	"fmt"
	"time"
)

// CreateMeetingParams carries everything a provider needs to schedule a
// meeting. IdempotencyKey is derived from (proposalID, slotID) so retried
// confirmations do not create duplicate external meetings.
type CreateMeetingParams struct {
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	Participants   []string // email addresses
	IdempotencyKey string
}

// Meeting is the provider's handle for a created meeting
type Meeting struct {
	MeetingURL        string
	ExternalMeetingID string
}

// Provider is the capability interface for one conferencing vendor
type Provider interface {
	Name() string
	CreateMeeting(ctx context.Context, params CreateMeetingParams) (*Meeting, error)
	CancelMeeting(ctx context.Context, externalMeetingID string) error
}

// Registry resolves providers by name
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Resolve returns the provider registered under name
func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("video provider %q is not configured", name)
	}
	return p, nil
}

// Has reports whether a provider is registered under name
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}
