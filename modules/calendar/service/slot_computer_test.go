package service

import (
	"testing"
	"time"

	"meetsync/modules/calendar/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() dto.SlotComputeParams {
	return dto.SlotComputeParams{
		StartDate:         "2024-06-03", // a Monday
		EndDate:           "2024-06-03",
		DurationMinutes:   60,
		BusinessHourStart: 9,
		BusinessHourEnd:   18,
	}
}

func localRFC3339(day string, hour, minute int) string {
	d, _ := time.ParseInLocation("2006-01-02", day, time.Local)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.Local).Format(time.RFC3339)
}

func slotStarts(slots []dto.SuggestedSlot) []string {
	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.StartAt[11:16])
	}
	return starts
}

func TestComputeAvailableSlots_EmptyBusyDay(t *testing.T) {
	slots := ComputeAvailableSlots(nil, defaultParams())

	// 09:00 through 17:00 on a 30-minute grid, each ending by 18:00.
	require.Len(t, slots, 17)
	starts := slotStarts(slots)
	assert.Equal(t, "09:00", starts[0])
	assert.Equal(t, "09:30", starts[1])
	assert.Equal(t, "17:00", starts[16])

	first := slots[0]
	assert.Equal(t, "Monday", first.DayOfWeek)
	assert.Equal(t, "2024-06-03", first.DateKey)
	assert.Equal(t, "2024-06-03T09:00:00", first.StartAt)
	assert.Equal(t, "2024-06-03T10:00:00", first.EndAt)
}

func TestComputeAvailableSlots_BusyOverlapExclusion(t *testing.T) {
	busy := []dto.BusyPeriod{{
		Start: localRFC3339("2024-06-03", 10, 0),
		End:   localRFC3339("2024-06-03", 11, 0),
	}}

	slots := ComputeAvailableSlots(busy, defaultParams())
	starts := slotStarts(slots)

	// Half-open semantics: a slot ending exactly at 10:00 and a slot
	// starting exactly at 11:00 both survive.
	assert.Contains(t, starts, "09:00")
	assert.Contains(t, starts, "11:00")
	assert.NotContains(t, starts, "09:30")
	assert.NotContains(t, starts, "10:00")
	assert.NotContains(t, starts, "10:30")
}

func TestComputeAvailableSlots_WeekendExclusion(t *testing.T) {
	params := defaultParams()
	params.StartDate = "2024-06-07" // Friday
	params.EndDate = "2024-06-10"   // Monday

	slots := ComputeAvailableSlots(nil, params)

	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.NotEqual(t, "Saturday", s.DayOfWeek)
		assert.NotEqual(t, "Sunday", s.DayOfWeek)
	}
	// Friday + Monday only.
	assert.Len(t, slots, 34)
}

func TestComputeAvailableSlots_GlobalCap(t *testing.T) {
	params := defaultParams()
	params.StartDate = "2024-06-03"
	params.EndDate = "2024-07-31"

	slots := ComputeAvailableSlots(nil, params)
	assert.Len(t, slots, 100)
}

func TestComputeAvailableSlots_InvalidParams(t *testing.T) {
	cases := map[string]func(*dto.SlotComputeParams){
		"zero duration":           func(p *dto.SlotComputeParams) { p.DurationMinutes = 0 },
		"negative duration":       func(p *dto.SlotComputeParams) { p.DurationMinutes = -30 },
		"inverted business hours": func(p *dto.SlotComputeParams) { p.BusinessHourStart = 18; p.BusinessHourEnd = 9 },
		"bad start date":          func(p *dto.SlotComputeParams) { p.StartDate = "June 3rd" },
		"bad end date":            func(p *dto.SlotComputeParams) { p.EndDate = "2024-13-40" },
		"range inverted":          func(p *dto.SlotComputeParams) { p.StartDate = "2024-06-04"; p.EndDate = "2024-06-03" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := defaultParams()
			mutate(&params)
			assert.Empty(t, ComputeAvailableSlots(nil, params))
		})
	}
}

func TestComputeAvailableSlots_UnparseableBusyDiscarded(t *testing.T) {
	busy := []dto.BusyPeriod{
		{Start: "not-a-time", End: localRFC3339("2024-06-03", 12, 0)},
		{Start: localRFC3339("2024-06-03", 12, 0), End: "also-not-a-time"},
	}

	// Broken entries carry no constraint; the day stays fully open.
	slots := ComputeAvailableSlots(busy, defaultParams())
	assert.Len(t, slots, 17)
}

func TestComputeAvailableSlots_DurationLongerThanDay(t *testing.T) {
	params := defaultParams()
	params.DurationMinutes = 10 * 60

	assert.Empty(t, ComputeAvailableSlots(nil, params))
}

func TestComputeAvailableSlots_ShortDurationKeepsGrid(t *testing.T) {
	params := defaultParams()
	params.DurationMinutes = 15

	slots := ComputeAvailableSlots(nil, params)

	// The grid stays on half hours regardless of duration: 09:00..17:30.
	require.Len(t, slots, 18)
	assert.Equal(t, "2024-06-03T09:15:00", slots[0].EndAt)
	assert.Equal(t, "17:30", slots[17].StartAt[11:16])
}
