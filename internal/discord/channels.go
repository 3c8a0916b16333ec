package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/tbourn/go-streak-bot/internal/classifier"
	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/scheduler"
	"github.com/tbourn/go-streak-bot/internal/services"
)

const (
	// PageSize is the Discord maximum for one message history request.
	PageSize = 100
	// MaxSnippetLen truncates snippets handed to the challenge writer.
	MaxSnippetLen = 1500
	snippetScan   = 50
)

var (
	_ scheduler.Sender        = (*Bot)(nil)
	_ scheduler.SnippetSource = (*Bot)(nil)
	_ services.HistorySource  = (*Bot)(nil)
)

// SendReminder posts the daily reminder. Users who opted out of mentions are
// counted but not pinged.
func (b *Bot) SendReminder(ctx context.Context, _ string, channelID string, targets []repo.ReminderTarget) error {
	ch := parseID(channelID)
	if ch == 0 {
		return fmt.Errorf("reminder channel %q: invalid id", channelID)
	}
	msg := discord.NewMessageCreateBuilder().
		SetContent(ReminderContent(targets)).
		SetAllowedMentions(&discord.AllowedMentions{
			Parse: []discord.AllowedMentionType{discord.AllowedMentionTypeUsers},
		}).
		Build()
	_, err := b.Client.Rest().CreateMessage(ch, msg, rest.WithCtx(ctx))
	return err
}

// SendChallenge posts the weekly challenge.
func (b *Bot) SendChallenge(ctx context.Context, _ string, channelID, text string) error {
	return b.sendEmbed(ctx, channelID, ChallengeEmbed(text))
}

// SendSummary posts the weekly leaderboard summary.
func (b *Bot) SendSummary(ctx context.Context, _ string, channelID string, s scheduler.Summary) error {
	return b.sendEmbed(ctx, channelID, SummaryEmbed(s))
}

func (b *Bot) sendEmbed(ctx context.Context, channelID string, e discord.Embed) error {
	ch := parseID(channelID)
	if ch == 0 {
		return fmt.Errorf("channel %q: invalid id", channelID)
	}
	_, err := b.Client.Rest().CreateMessage(ch, discord.NewMessageCreateBuilder().AddEmbeds(e).Build(), rest.WithCtx(ctx))
	return err
}

// MessagesAfter pages through channel history newer than afterID and not
// older than notBefore. Messages are returned oldest first.
func (b *Bot) MessagesAfter(ctx context.Context, channelID, afterID string, notBefore time.Time) ([]domain.Event, error) {
	ch := parseID(channelID)
	if ch == 0 {
		return nil, fmt.Errorf("channel %q: invalid id", channelID)
	}
	after := parseID(afterID)
	if !notBefore.IsZero() {
		if floor := snowflake.New(notBefore); floor > after {
			after = floor
		}
	}

	var out []domain.Event
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := b.Client.Rest().GetMessages(ch, 0, 0, after, PageSize, rest.WithCtx(ctx))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		sortOldestFirst(page)
		for _, m := range page {
			var guildID snowflake.ID
			if m.GuildID != nil {
				guildID = *m.GuildID
			}
			out = append(out, ToEvent(guildID, m))
		}
		after = page[len(page)-1].ID
		if len(page) < PageSize {
			break
		}
	}
	return out, nil
}

// RecentSnippets extracts fenced code blocks from the latest messages in a
// channel, newest first.
func (b *Bot) RecentSnippets(ctx context.Context, channelID string, limit int) ([]string, error) {
	ch := parseID(channelID)
	if ch == 0 {
		return nil, nil
	}
	msgs, err := b.Client.Rest().GetMessages(ch, 0, 0, 0, snippetScan, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range msgs {
		for _, block := range classifier.CodeBlocks(m.Content) {
			if len(block) > MaxSnippetLen {
				block = block[:MaxSnippetLen]
			}
			out = append(out, block)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// BackfillChannels lists the known streak channels.
func (b *Bot) BackfillChannels() []services.SourceChannel {
	all := b.Channels.All()
	out := make([]services.SourceChannel, 0, len(all))
	for guildID, channelID := range all {
		out = append(out, services.SourceChannel{GuildID: guildID, ChannelID: channelID})
	}
	return out
}
