package services

import (
	"github.com/tbourn/go-streak-bot/internal/domain"
)

// EngineInput is everything the state machine needs to decide one event.
type EngineInput struct {
	// Existing is the stored record, nil when the user has no history.
	Existing *domain.StreakRecord
	// Day is the declared day number; HasDay is false when none was given.
	Day    int
	HasDay bool
	// LoggedToday and LoggedDay describe today's DailyLogEntry, if any.
	LoggedToday bool
	LoggedDay   int
	Today       domain.Date
}

// Decision is the outcome of Advance. Record is the state to persist for
// advancing and breaking actions; LogDay is the day number to log today for
// advancing actions.
type Decision struct {
	Action domain.Action
	Record domain.StreakRecord
	LogDay int

	DaysSince      int
	Expected       int
	Received       int
	PreviousStreak int
}

// noHistoryGap stands in for "days since" when the last date is unknown.
const noHistoryGap = 999

// Advance is the streak state machine. It is pure: the caller loads the
// inputs and persists the returned Decision.
//
//	logged today                         -> Duplicate
//	no record, day absent or 1           -> Start
//	no record, day > 1                   -> RejectNotDayOne
//	gap >= 3                             -> Reset
//	gap == 2, day absent or expected     -> GraceContinue
//	day == expected, or absent & gap <= 1 -> Continue
//	otherwise                            -> DayMismatch
func Advance(in EngineInput) Decision {
	if in.LoggedToday {
		d := Decision{Action: domain.ActionDuplicate, LogDay: in.LoggedDay}
		if in.Existing != nil {
			d.Record = *in.Existing
		}
		return d
	}

	if in.Existing == nil {
		if in.HasDay && in.Day != 1 {
			return Decision{Action: domain.ActionRejectNotDayOne, Received: in.Day, Expected: 1}
		}
		return Decision{
			Action: domain.ActionStart,
			LogDay: 1,
			Record: domain.StreakRecord{
				CurrentStreak: 1,
				LongestStreak: 1,
				LastLogDate:   in.Today,
				LastDayNumber: 1,
			},
		}
	}

	cur := *in.Existing
	gap, ok := domain.DaysBetween(cur.LastLogDate, in.Today)
	if !ok {
		gap = noHistoryGap
	}
	if gap < 0 {
		gap = 0
	}
	expected := cur.LastDayNumber + 1

	switch {
	case gap >= 3:
		return broken(domain.ActionReset, cur, in.Today, gap, expected, in.Day)
	case gap == 2 && (!in.HasDay || in.Day == expected):
		return advanced(domain.ActionGraceContinue, cur, in.Today, gap, expected)
	case (in.HasDay && in.Day == expected) || (!in.HasDay && gap <= 1):
		return advanced(domain.ActionContinue, cur, in.Today, gap, expected)
	default:
		return broken(domain.ActionDayMismatch, cur, in.Today, gap, expected, in.Day)
	}
}

func advanced(action domain.Action, cur domain.StreakRecord, today domain.Date, gap, expected int) Decision {
	next := cur
	next.CurrentStreak++
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	next.LastDayNumber = expected
	next.LastLogDate = today
	return Decision{Action: action, Record: next, LogDay: expected, DaysSince: gap, Expected: expected}
}

func broken(action domain.Action, cur domain.StreakRecord, today domain.Date, gap, expected, received int) Decision {
	next := cur
	next.CurrentStreak = 0
	next.LastDayNumber = 0
	next.LastLogDate = today
	return Decision{
		Action:         action,
		Record:         next,
		DaysSince:      gap,
		Expected:       expected,
		Received:       received,
		PreviousStreak: cur.CurrentStreak,
	}
}

// Badge returns the achievement title for a streak length.
func Badge(streak int) string {
	switch {
	case streak >= 365:
		return "🏆 Legend"
	case streak >= 100:
		return "💎 Master"
	case streak >= 30:
		return "🥇 Champion"
	case streak >= 7:
		return "🌟 Rising Star"
	default:
		return "🌱 Beginner"
	}
}

// NextGoal returns the next badge threshold above streak, or 0 past the last.
func NextGoal(streak int) int {
	for _, g := range []int{7, 30, 100, 365} {
		if streak < g {
			return g
		}
	}
	return 0
}
