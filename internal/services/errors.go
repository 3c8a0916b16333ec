// Package services defines the business logic of the streak bot. This file
// centralizes service-level error values so callers (slash commands, the
// dashboard, the CLI) can branch on them with errors.Is and translate them
// into user-facing messages at their own layer.
package services

import "errors"

// Streak errors.
var (
	// ErrInvalidDayNumber is returned when a declared or restored day number
	// is outside 1..MaxDayNumber.
	ErrInvalidDayNumber = errors.New("day number out of range")

	// ErrNoStreak is returned when an operation needs an existing streak
	// record and the user has none.
	ErrNoStreak = errors.New("no streak recorded")
)

// Freeze errors.
var (
	// ErrNoFreezes is returned when the user's freeze balance is zero.
	ErrNoFreezes = errors.New("no streak freezes left")

	// ErrFreezeNotNeeded is returned when the streak is not at risk (the user
	// logged today or yesterday). The balance is not touched.
	ErrFreezeNotNeeded = errors.New("streak is safe, freeze not needed")

	// ErrStreakBroken is returned when the streak already lapsed; a freeze
	// cannot rescue it.
	ErrStreakBroken = errors.New("streak already broken")

	// ErrInvalidAmount is returned for freeze grants outside the allowed range.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Settings errors.
var (
	// ErrInvalidReminderTime is returned when a reminder time is not HH:MM.
	ErrInvalidReminderTime = errors.New("reminder time must be HH:MM (24h)")

	// ErrInvalidTimezone is returned for unknown IANA zone names.
	ErrInvalidTimezone = errors.New("unknown timezone")
)
