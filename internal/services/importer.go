package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/observability"
	"github.com/tbourn/go-streak-bot/internal/repo"
)

// DefaultLookback bounds how far back a channel without a cursor is read.
const DefaultLookback = 7 * 24 * time.Hour

// HistorySource lists channel messages posted after afterID (exclusive,
// empty for none) and not before notBefore, oldest first.
type HistorySource interface {
	MessagesAfter(ctx context.Context, channelID, afterID string, notBefore time.Time) ([]domain.Event, error)
}

// SourceChannel identifies one channel to backfill.
type SourceChannel struct {
	GuildID   string
	ChannelID string
}

// ImportReport summarizes a backfill run.
type ImportReport struct {
	Channels   int `json:"channels"`
	Failed     int `json:"failed"`
	Messages   int `json:"messages"`
	Live       int `json:"live"`
	Historical int `json:"historical"`
	Duplicates int `json:"duplicates"`
}

// Importer replays missed channel history through the live pipeline rules.
// Events dated today go through StreakService.Submit; older ones only add a
// DailyLogEntry for their date.
type Importer struct {
	Streaks    *StreakService
	Classifier ContentClassifier
	Source     HistorySource
	// IsStreakChannel mirrors Processor.IsStreakChannel.
	IsStreakChannel ChannelPredicate
	Lookback        time.Duration
	PairingCapacity int
	PairingTTL      time.Duration
	// MaxRetries bounds fetch retries per channel.
	MaxRetries uint64
}

// Run backfills every channel. A failing channel is logged and skipped with
// its cursor untouched; the returned error is non-nil only when ctx ends.
func (im *Importer) Run(ctx context.Context, channels []SourceChannel) (ImportReport, error) {
	logger := log.With().Str("component", "backfill").Logger()
	var rep ImportReport
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Channels++
		if err := im.channel(ctx, ch, &rep, logger); err != nil {
			rep.Failed++
			logger.Error().Err(err).
				Str("guild_id", ch.GuildID).
				Str("channel_id", ch.ChannelID).
				Msg("backfill channel failed")
			observability.RecordBackfill("failed")
			continue
		}
	}
	logger.Info().
		Int("channels", rep.Channels).
		Int("failed", rep.Failed).
		Int("messages", rep.Messages).
		Int("live", rep.Live).
		Int("historical", rep.Historical).
		Msg("backfill complete")
	return rep, nil
}

func (im *Importer) channel(ctx context.Context, ch SourceChannel, rep *ImportReport, logger zerolog.Logger) error {
	after, err := repo.GetCursor(ctx, im.Streaks.DB, ch.GuildID, ch.ChannelID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	lookback := im.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	notBefore := im.Streaks.now().Add(-lookback)

	msgs, err := im.fetch(ctx, ch.ChannelID, after, notBefore)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	buf := NewPairingBuffer(im.PairingCapacity, im.PairingTTL)
	today := im.Streaks.Today()
	for _, ev := range msgs {
		rep.Messages++
		ev.GuildID = ch.GuildID
		res, status := resolve(ctx, im.Classifier, buf, im.IsStreakChannel, im.Streaks.ValidDay, ev)
		if status != resolveReady {
			continue
		}

		var n domain.Notification
		if res.Event.Date() == today {
			n, err = im.Streaks.Submit(ctx, ev.AuthorID, ev.GuildID, res.Day, res.HasDay)
			rep.Live++
		} else {
			n, err = im.Streaks.RecordHistorical(ctx, ev.AuthorID, ev.GuildID, res.Event.Date(), res.Day, res.HasDay)
			rep.Historical++
		}
		if err != nil {
			return err
		}
		if n.Kind == domain.ActionDuplicate {
			rep.Duplicates++
		}
		observability.RecordBackfill(n.Kind.String())
	}

	last := msgs[len(msgs)-1].MessageID
	if err := repo.SetCursor(ctx, im.Streaks.DB, ch.GuildID, ch.ChannelID, last); err != nil {
		return err
	}
	logger.Debug().Str("channel_id", ch.ChannelID).Str("cursor", last).Int("messages", len(msgs)).Msg("channel backfilled")
	return nil
}

func (im *Importer) fetch(ctx context.Context, channelID, after string, notBefore time.Time) ([]domain.Event, error) {
	var out []domain.Event
	op := func() error {
		msgs, err := im.Source.MessagesAfter(ctx, channelID, after, notBefore)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = msgs
		return nil
	}
	retries := im.MaxRetries
	if retries == 0 {
		retries = 3
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
	return out, err
}
