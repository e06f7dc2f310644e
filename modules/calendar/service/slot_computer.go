package service

import (
	"time"

	"meetsync/core/constants"
	"meetsync/modules/calendar/dto"
)

// localNaive is the timezone-less layout suggested slots are reported in.
// The caller owns timezone context; attaching a zone here would be a lie.
const localNaive = "2006-01-02T15:04:05"

type busyInterval struct {
	start, end time.Time
}

// ComputeAvailableSlots walks every business day in the requested range on a
// fixed 30-minute grid and returns the grid points where a meeting of the
// requested duration fits without touching any busy period. The grid step is
// independent of the duration so short and long meetings share a half-hour
// cadence. Production stops at the global slot cap.
//
// Invalid parameters produce an empty result rather than an error; busy
// periods that fail to parse are skipped as carrying no constraint.
func ComputeAvailableSlots(busyPeriods []dto.BusyPeriod, params dto.SlotComputeParams) []dto.SuggestedSlot {
	slots := []dto.SuggestedSlot{}

	if params.DurationMinutes <= 0 || params.BusinessHourStart >= params.BusinessHourEnd {
		return slots
	}

	// Dates are calendar-local: parsing as local midnight keeps the "which
	// day" grouping stable across timezones.
	startDate, err := time.ParseInLocation("2006-01-02", params.StartDate, time.Local)
	if err != nil {
		return slots
	}
	endDate, err := time.ParseInLocation("2006-01-02", params.EndDate, time.Local)
	if err != nil {
		return slots
	}
	if startDate.After(endDate) {
		return slots
	}

	busy := make([]busyInterval, 0, len(busyPeriods))
	for _, p := range busyPeriods {
		start, err1 := time.Parse(time.RFC3339, p.Start)
		end, err2 := time.Parse(time.RFC3339, p.End)
		if err1 != nil || err2 != nil {
			continue
		}
		busy = append(busy, busyInterval{start: start, end: end})
	}

	duration := time.Duration(params.DurationMinutes) * time.Minute
	step := time.Duration(constants.SuggestionStepMinutes) * time.Minute

	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		dayStart := time.Date(day.Year(), day.Month(), day.Day(), params.BusinessHourStart, 0, 0, 0, day.Location())
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), params.BusinessHourEnd, 0, 0, 0, day.Location())

		// Narrow to the busy periods that can matter for this day.
		dayBusy := make([]busyInterval, 0, len(busy))
		for _, b := range busy {
			if b.start.Before(dayEnd) && b.end.After(dayStart) {
				dayBusy = append(dayBusy, b)
			}
		}

		for slotStart := dayStart; !slotStart.Add(duration).After(dayEnd); slotStart = slotStart.Add(step) {
			slotEnd := slotStart.Add(duration)

			conflict := false
			for _, b := range dayBusy {
				// Half-open intervals: touching endpoints do not conflict.
				if b.start.Before(slotEnd) && b.end.After(slotStart) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}

			slots = append(slots, dto.SuggestedSlot{
				StartAt:   slotStart.Format(localNaive),
				EndAt:     slotEnd.Format(localNaive),
				DayOfWeek: slotStart.Weekday().String(),
				DateKey:   slotStart.Format("2006-01-02"),
			})
			if len(slots) >= constants.SuggestionSlotCap {
				return slots
			}
		}
	}

	return slots
}
