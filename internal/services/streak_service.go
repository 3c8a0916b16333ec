// Package services – StreakService
//
// This file implements StreakService, which applies Advance decisions to the
// ledger. For each (user, guild) it holds a keyed mutex and writes the
// streak record and today's log entry in one transaction, so a Start,
// Continue, GraceContinue or Break is either fully applied or not at all.
// The daily_logs primary key is a second line of defense: if another process
// logged the same date first, the insert fails and the event is reported as a
// duplicate.
//
// It also serves the out-of-band operations: freezes, admin restores and the
// read side (leaderboard, user stats, history).
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/observability"
	"github.com/tbourn/go-streak-bot/internal/repo"
)

// DefaultMaxDayNumber bounds accepted day numbers.
const DefaultMaxDayNumber = 10000

// MaxFreezeGrant bounds a single /addfreeze.
const MaxFreezeGrant = 10

// StreakService owns every mutation of streak state.
type StreakService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Now returns the current instant; tests pin it.
	Now func() time.Time
	// MaxDayNumber caps accepted day numbers (default DefaultMaxDayNumber).
	MaxDayNumber int

	initOnce sync.Once
	locks    *keyedMutex
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewStreakService returns a StreakService using the wall clock.
func NewStreakService(db *gorm.DB, maxDay int) *StreakService {
	if maxDay <= 0 {
		maxDay = DefaultMaxDayNumber
	}
	s := &StreakService{DB: db, Now: time.Now, MaxDayNumber: maxDay}
	s.init()
	return s
}

func (s *StreakService) init() {
	s.initOnce.Do(func() {
		s.locks = newKeyedMutex()
		s.validate = validator.New()
		s.logger = log.With().Str("component", "streaks").Logger()
	})
}

func (s *StreakService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Today returns the current UTC calendar date.
func (s *StreakService) Today() domain.Date { return domain.DateOf(s.now()) }

func (s *StreakService) lock(userID, guildID string) func() {
	s.init()
	return s.locks.Lock(streakKey(userID, guildID))
}

// ValidDay reports whether day is within 1..MaxDayNumber.
func (s *StreakService) ValidDay(day int) bool {
	max := s.MaxDayNumber
	if max <= 0 {
		max = DefaultMaxDayNumber
	}
	return day >= 1 && day <= max
}

// Submit applies one qualifying event dated today for (userID, guildID).
// hasDay/day carry the declared day token. The returned notification
// describes what happened; an error means nothing was written.
func (s *StreakService) Submit(ctx context.Context, userID, guildID string, day int, hasDay bool) (domain.Notification, error) {
	ctx, span := observability.Tracer("services").Start(ctx, "StreakService.Submit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("guild.id", guildID),
			attribute.Int("day", day),
		),
	)
	defer span.End()

	if hasDay && !s.ValidDay(day) {
		return domain.Notification{Kind: domain.ActionInvalidDay, UserID: userID, GuildID: guildID, Received: day}, nil
	}

	unlock := s.lock(userID, guildID)
	defer unlock()

	now := s.now()
	today := domain.DateOf(now)

	var dec Decision
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in := EngineInput{Day: day, HasDay: hasDay, Today: today}

		entry, err := repo.GetDailyEntry(ctx, tx, userID, guildID, today)
		switch {
		case err == nil:
			in.LoggedToday, in.LoggedDay = true, entry.DayNumber
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		rec, err := repo.GetStreak(ctx, tx, userID, guildID)
		switch {
		case err == nil:
			in.Existing = rec
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		dec = Advance(in)
		return s.apply(ctx, tx, userID, guildID, dec, now)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race with another writer for today's entry.
		d, _, lerr := repo.GetTodaysDayNumber(ctx, s.DB, userID, guildID, now)
		if lerr != nil {
			return domain.Notification{}, lerr
		}
		dec = Decision{Action: domain.ActionDuplicate, LogDay: d}
		if rec, gerr := repo.GetStreak(ctx, s.DB, userID, guildID); gerr == nil {
			dec.Record = *rec
		}
		err = nil
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("user_id", userID).Str("guild_id", guildID).Msg("streak update failed")
		return domain.Notification{}, fmt.Errorf("submit streak: %w", err)
	}

	observability.RecordTransition(dec.Action.String())
	s.logger.Info().
		Str("user_id", userID).
		Str("guild_id", guildID).
		Str("action", dec.Action.String()).
		Int("day", dec.LogDay).
		Int("streak", dec.Record.CurrentStreak).
		Msg("streak event")
	return notificationFor(userID, guildID, dec), nil
}

func (s *StreakService) apply(ctx context.Context, tx *gorm.DB, userID, guildID string, dec Decision, now time.Time) error {
	switch {
	case dec.Action.Advances():
		r := dec.Record
		if err := repo.UpsertStreak(ctx, tx, userID, guildID, r.CurrentStreak, r.LongestStreak, r.LastDayNumber, now); err != nil {
			return err
		}
		return repo.InsertDailyEntry(ctx, tx, userID, guildID, domain.DateOf(now), dec.LogDay)
	case dec.Action.Breaks():
		return repo.ResetStreak(ctx, tx, userID, guildID, now)
	default:
		return nil
	}
}

func notificationFor(userID, guildID string, dec Decision) domain.Notification {
	n := domain.Notification{
		Kind:           dec.Action,
		UserID:         userID,
		GuildID:        guildID,
		CurrentStreak:  dec.Record.CurrentStreak,
		LongestStreak:  dec.Record.LongestStreak,
		DayNumber:      dec.LogDay,
		PreviousStreak: dec.PreviousStreak,
		DaysInactive:   dec.DaysSince,
		Expected:       dec.Expected,
		Received:       dec.Received,
	}
	switch {
	case dec.Action.Advances(), dec.Action == domain.ActionDuplicate:
		n.NextDay = dec.LogDay + 1
	default:
		n.NextDay = 1
	}
	return n
}

// RecordHistorical writes a DailyLogEntry for a past date without touching
// the streak record. Without a day token the day is inferred from the
// previous entry: its day + 1 when it is at most two days earlier, else 1.
// An existing entry for date is kept and reported as a duplicate.
func (s *StreakService) RecordHistorical(ctx context.Context, userID, guildID string, date domain.Date, day int, hasDay bool) (domain.Notification, error) {
	if hasDay && !s.ValidDay(day) {
		return domain.Notification{Kind: domain.ActionInvalidDay, UserID: userID, GuildID: guildID, Received: day}, nil
	}

	unlock := s.lock(userID, guildID)
	defer unlock()

	n := domain.Notification{Kind: domain.ActionHistorical, UserID: userID, GuildID: guildID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.GetDailyEntry(ctx, tx, userID, guildID, date)
		if err == nil {
			n.Kind, n.DayNumber = domain.ActionDuplicate, existing.DayNumber
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		if !hasDay {
			day = 1
			prev, err := repo.LatestEntryBefore(ctx, tx, userID, guildID, date)
			switch {
			case err == nil:
				if gap, ok := domain.DaysBetween(prev.LogDate, date); ok && gap <= 2 {
					day = prev.DayNumber + 1
				}
			case !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}
		n.DayNumber = day
		return repo.LogHistoricalEntry(ctx, tx, userID, guildID, date, day)
	})
	if err != nil {
		return domain.Notification{}, fmt.Errorf("record historical entry: %w", err)
	}
	observability.RecordTransition(n.Kind.String())
	return n, nil
}

// UseFreeze spends one freeze to bridge a two-day gap: last_log_date moves
// to yesterday so today's post continues the streak normally. A streak that
// is still safe (gap <= 1) returns ErrFreezeNotNeeded and the balance is
// untouched; a broken one (gap >= 3) returns ErrStreakBroken.
func (s *StreakService) UseFreeze(ctx context.Context, userID, guildID string) (remaining int, err error) {
	unlock := s.lock(userID, guildID)
	defer unlock()

	today := s.Today()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := repo.GetStreak(ctx, tx, userID, guildID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoStreak
		}
		if err != nil {
			return err
		}
		gap, ok := domain.DaysBetween(rec.LastLogDate, today)
		if !ok {
			gap = noHistoryGap
		}
		switch {
		case gap >= 3 || rec.CurrentStreak == 0:
			return ErrStreakBroken
		case gap <= 1:
			return ErrFreezeNotNeeded
		}

		remaining, err = repo.ConsumeFreeze(ctx, tx, userID, guildID, today)
		if errors.Is(err, repo.ErrExhausted) {
			return ErrNoFreezes
		}
		if err != nil {
			return err
		}
		return repo.SetLastLogDate(ctx, tx, userID, guildID, today.AddDays(-1))
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("user_id", userID).Str("guild_id", guildID).Int("remaining", remaining).Msg("freeze used")
	return remaining, nil
}

// FreezeGrant is the validated input of AddFreeze.
type FreezeGrant struct {
	UserID  string `validate:"required,numeric"`
	GuildID string `validate:"required,numeric"`
	Amount  int    `validate:"min=1,max=10"`
}

// AddFreeze grants freezes to a user and returns the new balance.
func (s *StreakService) AddFreeze(ctx context.Context, g FreezeGrant) (int, error) {
	if err := s.validator().Struct(g); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return repo.AddFreezes(ctx, s.DB, g.UserID, g.GuildID, g.Amount)
}

// FreezeCount returns the user's freeze balance.
func (s *StreakService) FreezeCount(ctx context.Context, userID, guildID string) (int, error) {
	return repo.GetFreezeCount(ctx, s.DB, userID, guildID)
}

// Restore sets a user's streak to day, bypassing the state machine:
// current = day, longest = max(longest, day), last_day_number = day and
// last_log_date = today.
func (s *StreakService) Restore(ctx context.Context, userID, guildID string, day int) (*domain.StreakRecord, error) {
	if !s.ValidDay(day) {
		return nil, ErrInvalidDayNumber
	}
	unlock := s.lock(userID, guildID)
	defer unlock()

	now := s.now()
	var out domain.StreakRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		longest := day
		rec, err := repo.GetStreak(ctx, tx, userID, guildID)
		switch {
		case err == nil:
			longest = max(rec.LongestStreak, day)
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		if err := repo.UpsertStreak(ctx, tx, userID, guildID, day, longest, day, now); err != nil {
			return err
		}
		out = domain.StreakRecord{
			UserID: userID, GuildID: guildID,
			CurrentStreak: day, LongestStreak: longest,
			LastLogDate: domain.DateOf(now), LastDayNumber: day,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn().Str("user_id", userID).Str("guild_id", guildID).Int("day", day).Msg("streak restored by admin")
	return &out, nil
}

func (s *StreakService) validator() *validator.Validate {
	s.init()
	return s.validate
}
