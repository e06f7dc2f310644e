package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meetsync/core/config"
	"meetsync/core/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleEventsAPI = "https://www.googleapis.com/calendar/v3/calendars/primary/events"

// MeetProvider creates Google Meet links by inserting a calendar event with
// a conference request on the organization's scheduling account.
type MeetProvider struct {
	tokenSource oauth2.TokenSource
	client      *http.Client
}

// NewMeetProvider builds the provider from the organization account's
// refresh token.
func NewMeetProvider(cfg config.GoogleAPIConfig, refreshToken string) *MeetProvider {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	return &MeetProvider{
		tokenSource: conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken}),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *MeetProvider) Name() string {
	return "google_meet"
}

// CreateMeeting inserts a calendar event with a Meet conference. The
// conference requestId is the idempotency key: Google returns the same
// conference for a repeated requestId instead of creating a new one.
func (p *MeetProvider) CreateMeeting(ctx context.Context, params CreateMeetingParams) (*Meeting, error) {
	token, err := p.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("google token refresh failed: %w", err)
	}

	attendees := make([]map[string]string, 0, len(params.Participants))
	for _, email := range params.Participants {
		attendees = append(attendees, map[string]string{"email": email})
	}

	event := map[string]any{
		"summary": params.Title,
		"start": map[string]string{
			"dateTime": params.StartAt.UTC().Format(time.RFC3339),
			"timeZone": "UTC",
		},
		"end": map[string]string{
			"dateTime": params.EndAt.UTC().Format(time.RFC3339),
			"timeZone": "UTC",
		},
		"attendees": attendees,
		"conferenceData": map[string]any{
			"createRequest": map[string]any{
				"requestId": params.IdempotencyKey,
				"conferenceSolutionKey": map[string]string{
					"type": "hangoutsMeet",
				},
			},
		},
	}

	eventJSON, _ := json.Marshal(event)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		googleEventsAPI+"?conferenceDataVersion=1", strings.NewReader(string(eventJSON)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google events API error: %s", string(body))
	}

	var result struct {
		ID          string `json:"id"`
		HangoutLink string `json:"hangoutLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	logger.Info("MeetProvider:CreateMeeting:Success", "event_id", result.ID)
	return &Meeting{
		MeetingURL:        result.HangoutLink,
		ExternalMeetingID: result.ID,
	}, nil
}

// CancelMeeting deletes the backing calendar event
func (p *MeetProvider) CancelMeeting(ctx context.Context, externalMeetingID string) error {
	token, err := p.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("google token refresh failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/%s", googleEventsAPI, externalMeetingID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google delete event API error: %s", string(body))
	}

	return nil
}
