package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"

	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
)

const (
	DefaultTarget = 1000
	breakdownDays = 14
	dateLayout    = "2006-01-02"
	day           = 24 * time.Hour
)

type Rate struct {
	Signups int     `json:"signups"`
	PerDay  float64 `json:"perDay"`
}

type AllTimeRate struct {
	PerDay float64 `json:"perDay"`
}

type Rates struct {
	Last7Days  Rate        `json:"last7Days"`
	Last14Days Rate        `json:"last14Days"`
	Last30Days Rate        `json:"last30Days"`
	AllTime    AllTimeRate `json:"allTime"`
}

// Projections hold days-to-target per window. A nil value means the target is
// already met or the window had no signups.
type Projections struct {
	BasedOn7Days  *int    `json:"basedOn7Days"`
	BasedOn14Days *int    `json:"basedOn14Days"`
	BasedOn30Days *int    `json:"basedOn30Days"`
	Weighted      *int    `json:"weighted"`
	ProjectedDate *string `json:"projectedDate"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Projection struct {
	Total          int                        `json:"total"`
	Target         int                        `json:"target"`
	Remaining      int                        `json:"remaining"`
	DaysSinceStart int                        `json:"daysSinceStart"`
	Rates          Rates                      `json:"rates"`
	Projections    Projections                `json:"projections"`
	DailyBreakdown []DailyCount               `json:"dailyBreakdown"`
	Sources        []signupdomain.SourceCount `json:"sources,omitempty"`
}

// MarshalJSON collapses the empty waitlist to its short form.
func (p Projection) MarshalJSON() ([]byte, error) {
	if p.Total == 0 {
		return json.Marshal(struct {
			Total         int     `json:"total"`
			Target        int     `json:"target"`
			DaysRemaining *int    `json:"daysRemaining"`
			ProjectedDate *string `json:"projectedDate"`
		}{Target: p.Target})
	}
	type plain Projection
	return json.Marshal(plain(p))
}

type Service interface {
	Analyze(ctx context.Context) (Projection, error)
}

// Project extrapolates how long the waitlist needs to reach target from signup
// creation times. Trailing windows are rolling (now minus N days); the daily
// breakdown uses calendar days in loc.
func Project(timestamps []time.Time, target int, now time.Time, loc *time.Location) Projection {
	if loc == nil {
		loc = time.Local
	}
	total := len(timestamps)
	if total == 0 {
		return Projection{Target: target}
	}

	first := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Before(first) {
			first = ts
		}
	}
	daysSinceStart := max(1, int(math.Floor(float64(now.Sub(first))/float64(day))))

	last7 := countSince(timestamps, now.Add(-7*day))
	last14 := countSince(timestamps, now.Add(-14*day))
	last30 := countSince(timestamps, now.Add(-30*day))

	avg7 := float64(last7) / 7
	avg14 := float64(last14) / 14
	avg30 := float64(last30) / 30
	avgAllTime := float64(total) / float64(daysSinceStart)
	weighted := (avg7*3 + avg14*2 + avg30*1) / 6

	remaining := target - total
	projections := Projections{
		BasedOn7Days:  daysToTarget(remaining, avg7),
		BasedOn14Days: daysToTarget(remaining, avg14),
		BasedOn30Days: daysToTarget(remaining, avg30),
		Weighted:      daysToTarget(remaining, weighted),
	}
	if projections.Weighted != nil {
		date := now.Add(time.Duration(*projections.Weighted) * day).In(loc).Format(dateLayout)
		projections.ProjectedDate = &date
	}

	return Projection{
		Total:          total,
		Target:         target,
		Remaining:      remaining,
		DaysSinceStart: daysSinceStart,
		Rates: Rates{
			Last7Days:  Rate{Signups: last7, PerDay: round2(avg7)},
			Last14Days: Rate{Signups: last14, PerDay: round2(avg14)},
			Last30Days: Rate{Signups: last30, PerDay: round2(avg30)},
			AllTime:    AllTimeRate{PerDay: round2(avgAllTime)},
		},
		Projections:    projections,
		DailyBreakdown: dailyBreakdown(timestamps, now, loc),
	}
}

func countSince(timestamps []time.Time, from time.Time) int {
	count := 0
	for _, ts := range timestamps {
		if !ts.Before(from) {
			count++
		}
	}
	return count
}

func daysToTarget(remaining int, perDay float64) *int {
	if remaining <= 0 || perDay <= 0 {
		return nil
	}
	days := int(math.Ceil(float64(remaining) / perDay))
	return &days
}

func dailyBreakdown(timestamps []time.Time, now time.Time, loc *time.Location) []DailyCount {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	out := make([]DailyCount, 0, breakdownDays)
	for i := breakdownDays - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		count := 0
		for _, ts := range timestamps {
			if !ts.Before(start) && ts.Before(end) {
				count++
			}
		}
		out = append(out, DailyCount{Date: start.Format(dateLayout), Count: count})
	}
	return out
}

// round2 rounds half away from zero for the non-negative rates produced here.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
