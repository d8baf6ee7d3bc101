package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// History is the day-by-day view over an owner's sales.
type History struct {
	Days        []string        `json:"days"`
	SelectedDay string          `json:"selectedDay"`
	Sales       []Sale          `json:"sales"`
	DayTotal    decimal.Decimal `json:"dayTotal"`
	Month       string          `json:"month"`
	MonthTotal  decimal.Decimal `json:"monthTotal"`
}

// Summarize groups sales by calendar day in loc. Days are newest first. When
// selectedDay is empty or unknown the newest day is selected. The month total
// covers the calendar month of now.
func Summarize(all []Sale, selectedDay string, now time.Time, loc *time.Location) History {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	byDay := map[string][]Sale{}
	monthTotal := decimal.Zero
	for _, s := range all {
		at := s.CreatedAt.In(loc)
		key := at.Format(dayLayout)
		byDay[key] = append(byDay[key], s)
		if at.Year() == now.Year() && at.Month() == now.Month() {
			monthTotal = monthTotal.Add(s.Total)
		}
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	h := History{
		Days:       days,
		Sales:      []Sale{},
		DayTotal:   decimal.Zero,
		Month:      now.Format("2006-01"),
		MonthTotal: monthTotal,
	}
	if _, ok := byDay[selectedDay]; ok {
		h.SelectedDay = selectedDay
	} else if len(days) > 0 {
		h.SelectedDay = days[0]
	}
	if h.SelectedDay == "" {
		return h
	}

	h.Sales = append(h.Sales, byDay[h.SelectedDay]...)
	sort.SliceStable(h.Sales, func(i, j int) bool { return h.Sales[i].CreatedAt.Before(h.Sales[j].CreatedAt) })
	for _, s := range h.Sales {
		h.DayTotal = h.DayTotal.Add(s.Total)
	}
	return h
}

// ParseDay parses a YYYY-MM-DD day in loc.
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dayLayout, day, loc)
}
