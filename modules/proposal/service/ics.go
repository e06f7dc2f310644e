package service

import (
	"bytes"
	"fmt"
	"time"

	"meetsync/modules/proposal/entity"

	"github.com/emersion/go-ical"
)

// buildInviteICS renders a single-event iCalendar invite for a confirmed
// proposal. Times are emitted in UTC.
func buildInviteICS(proposal *entity.Proposal, slot *entity.ProposalSlot, meetingURL string) ([]byte, error) {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@meetsync", proposal.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, slot.StartAt.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, slot.EndAt.UTC())
	event.Props.SetText(ical.PropSummary, proposal.Title)
	if proposal.Description != nil && *proposal.Description != "" {
		event.Props.SetText(ical.PropDescription, *proposal.Description)
	}
	if meetingURL != "" {
		event.Props.SetText(ical.PropLocation, meetingURL)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//meetsync//scheduling//EN")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode invite: %w", err)
	}
	return buf.Bytes(), nil
}
