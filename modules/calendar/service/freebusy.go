package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meetsync/core/cache"
	"meetsync/core/constants"
	"meetsync/core/logger"
	"meetsync/modules/calendar/dto"
)

const (
	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
	googleFreeBusyAPI     = googleCalendarAPIBase + "/freeBusy"
)

// FreeBusySource is the capability of asking a calendar provider which
// intervals are busy for one calendar.
type FreeBusySource interface {
	QueryFreeBusy(ctx context.Context, accessToken, email string, timeMin, timeMax time.Time) ([]dto.BusyPeriod, error)
}

type googleFreeBusy struct {
	cache  *cache.Cache
	client *http.Client
}

// NewGoogleFreeBusy builds the Google free/busy client. Responses are kept
// in Redis for a short window so repeated suggestion calls over the same
// range do not hammer the API; a nil cache disables that.
func NewGoogleFreeBusy(c *cache.Cache) FreeBusySource {
	return &googleFreeBusy{
		cache:  c,
		client: &http.Client{Timeout: constants.FreeBusyTimeout},
	}
}

func (g *googleFreeBusy) QueryFreeBusy(ctx context.Context, accessToken, email string, timeMin, timeMax time.Time) ([]dto.BusyPeriod, error) {
	cacheKey := fmt.Sprintf("freebusy:%s:%s:%s", email, timeMin.UTC().Format(time.RFC3339), timeMax.UTC().Format(time.RFC3339))
	if g.cache != nil {
		var cached []dto.BusyPeriod
		if found, err := g.cache.GetJSON(ctx, cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	payload := map[string]interface{}{
		"timeMin": timeMin.Format(time.RFC3339),
		"timeMax": timeMax.Format(time.RFC3339),
		"items": []map[string]string{
			{"id": email},
		},
	}
	payloadJSON, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleFreeBusyAPI, bytes.NewReader(payloadJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google freebusy api error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	busy := []dto.BusyPeriod{}
	if cal, ok := result.Calendars[email]; ok {
		for _, b := range cal.Busy {
			busy = append(busy, dto.BusyPeriod{Start: b.Start, End: b.End})
		}
	}

	if g.cache != nil {
		if err := g.cache.SetJSON(ctx, cacheKey, busy, constants.FreeBusyCacheTTL); err != nil {
			logger.Warn("GoogleFreeBusy:CacheSet:Failed", "key", cacheKey, "error", err)
		}
	}
	return busy, nil
}
