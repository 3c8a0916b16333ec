package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/classifier"
	"github.com/tbourn/go-streak-bot/internal/daytoken"
	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/observability"
)

// ContentClassifier decides whether a message is proof of coding work.
type ContentClassifier interface {
	Classify(ctx context.Context, text string, attachments []domain.Attachment) classifier.Result
}

// ChannelPredicate reports whether a channel is a guild's streak channel.
type ChannelPredicate func(guildID, channelID string) bool

// Processor is the live message pipeline: day token, classification,
// pairing, then the streak engine.
type Processor struct {
	Streaks    *StreakService
	Classifier ContentClassifier
	Pairing    *PairingBuffer
	// IsStreakChannel enables standalone proof-only resolution. Nil means
	// proof-only messages always wait for a day declaration.
	IsStreakChannel ChannelPredicate
}

// Handle runs one inbound event. A nil notification means the message was
// ignored or, for proof without a day token, buffered silently; ActionPending
// means a day declaration is waiting for proof.
func (p *Processor) Handle(ctx context.Context, ev domain.Event) (*domain.Notification, error) {
	res, status := resolve(ctx, p.Classifier, p.Pairing, p.IsStreakChannel, p.Streaks.ValidDay, ev)
	switch status {
	case resolveIgnored, resolveBuffered:
		return nil, nil
	case resolveInvalidDay:
		n := domain.Notification{Kind: domain.ActionInvalidDay, Received: res.Day}
		return p.address(n, ev), nil
	case resolvePending:
		n := domain.Notification{Kind: domain.ActionPending}
		return p.address(n, ev), nil
	}

	n, err := p.Streaks.Submit(ctx, ev.AuthorID, ev.GuildID, res.Day, res.HasDay)
	if err != nil {
		return nil, err
	}
	return p.address(n, res.Event), nil
}

func (p *Processor) address(n domain.Notification, ev domain.Event) *domain.Notification {
	n.UserID, n.GuildID = ev.AuthorID, ev.GuildID
	n.ChannelID, n.MessageID = ev.ChannelID, ev.MessageID
	return &n
}

type resolveStatus int

const (
	resolveIgnored resolveStatus = iota
	resolveInvalidDay
	resolvePending
	resolveBuffered
	resolveReady
)

// resolve is shared by the live pipeline and the backfill importer so both
// apply identical extraction, classification and pairing rules.
func resolve(ctx context.Context, cls ContentClassifier, buf *PairingBuffer, isStreak ChannelPredicate, validDay func(int) bool, ev domain.Event) (Resolution, resolveStatus) {
	if ev.IsBot || ev.IsReply {
		return Resolution{}, resolveIgnored
	}

	day, hasDay := daytoken.Extract(ev.Text)
	if hasDay && !validDay(day) {
		return Resolution{Event: ev, Day: day}, resolveInvalidDay
	}

	if !hasDay && strings.TrimSpace(ev.Text) == "" && len(ev.Attachments) == 0 {
		return Resolution{}, resolveIgnored
	}
	standalone := isStreak != nil && isStreak(ev.GuildID, ev.ChannelID)

	var proof bool
	if cls != nil {
		r := cls.Classify(ctx, ev.Text, ev.Attachments)
		observability.RecordClassification(string(r.Reason), r.Qualifies)
		proof = r.Qualifies
		log.Debug().
			Str("message_id", ev.MessageID).
			Str("reason", string(r.Reason)).
			Bool("qualifies", r.Qualifies).
			Msg("classified message")
	}

	res, ok := buf.Observe(Observation{Event: ev, Day: day, HasDay: hasDay, Proof: proof, Standalone: standalone})
	if ok {
		return res, resolveReady
	}
	if hasDay {
		return Resolution{Event: ev}, resolvePending
	}
	if proof {
		return Resolution{Event: ev}, resolveBuffered
	}
	return Resolution{}, resolveIgnored
}
