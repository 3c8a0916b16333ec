package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
)

// MaxTimeout is Discord's upper bound for a member timeout.
const MaxTimeout = 28 * 24 * time.Hour

// MaxPollOptions matches the number of keycap emojis.
const MaxPollOptions = 10

const defaultReason = "No reason provided"

// PollEmojis label poll options in order.
var PollEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

var (
	ErrPollTooFew  = errors.New("poll needs at least 2 options")
	ErrPollTooMany = fmt.Errorf("poll allows at most %d options", MaxPollOptions)
)

// Moderator is the REST surface the moderation commands need. bot.Client's
// Rest() satisfies it.
type Moderator interface {
	RemoveMember(guildID snowflake.ID, userID snowflake.ID, opts ...rest.RequestOpt) error
	AddBan(guildID snowflake.ID, userID snowflake.ID, deleteMessageDuration time.Duration, opts ...rest.RequestOpt) error
	UpdateMember(guildID snowflake.ID, userID snowflake.ID, memberUpdate discord.MemberUpdate, opts ...rest.RequestOpt) (*discord.Member, error)
	AddMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// target resolves the guild and member of a moderation command. ok is false
// with a ready-made reply when the call cannot proceed.
func (b *Bot) target(inv Invocation) (guildID, userID snowflake.ID, refuse Reply, ok bool) {
	if b.Moderation == nil {
		return 0, 0, textReply("❌ Moderation is unavailable right now."), false
	}
	guildID, userID = parseID(inv.GuildID), parseID(inv.Users["member"])
	if guildID == 0 || userID == 0 {
		return 0, 0, textReply("❌ I couldn't find that member."), false
	}
	if inv.Users["member"] == inv.UserID {
		return 0, 0, textReply("❌ You can't use this on yourself."), false
	}
	return guildID, userID, Reply{}, true
}

func reasonOf(inv Invocation) string {
	if r := strings.TrimSpace(inv.Strings["reason"]); r != "" {
		return r
	}
	return defaultReason
}

func (b *Bot) cmdKick(ctx context.Context, inv Invocation) Reply {
	guildID, userID, refuse, ok := b.target(inv)
	if !ok {
		return refuse
	}
	reason := reasonOf(inv)
	if err := b.Moderation.RemoveMember(guildID, userID, rest.WithCtx(ctx), rest.WithReason(reason)); err != nil {
		return b.moderationFailed(inv, "kick", err)
	}
	b.logger.Info().Str("guild_id", inv.GuildID).Str("moderator", inv.UserID).Str("member", userID.String()).Str("reason", reason).Msg("member kicked")
	return embedReply(ModerationEmbed("👢 Member Kicked", Mention(userID.String())+" has been kicked from the server.", ColorWarning, inv.UserID, reason, ""))
}

func (b *Bot) cmdBan(ctx context.Context, inv Invocation) Reply {
	guildID, userID, refuse, ok := b.target(inv)
	if !ok {
		return refuse
	}
	reason := reasonOf(inv)
	if err := b.Moderation.AddBan(guildID, userID, 0, rest.WithCtx(ctx), rest.WithReason(reason)); err != nil {
		return b.moderationFailed(inv, "ban", err)
	}
	b.logger.Info().Str("guild_id", inv.GuildID).Str("moderator", inv.UserID).Str("member", userID.String()).Str("reason", reason).Msg("member banned")
	return embedReply(ModerationEmbed("🔨 Member Banned", Mention(userID.String())+" has been banned from the server.", ColorAlert, inv.UserID, reason, ""))
}

func (b *Bot) cmdMute(ctx context.Context, inv Invocation) Reply {
	minutes := inv.Ints["duration"]
	d := time.Duration(minutes) * time.Minute
	if minutes <= 0 || d > MaxTimeout {
		return textReply("❌ Duration must be between 1 minute and 28 days.")
	}
	guildID, userID, refuse, ok := b.target(inv)
	if !ok {
		return refuse
	}
	reason := reasonOf(inv)
	update := discord.MemberUpdate{CommunicationDisabledUntil: json.NewNullablePtr(time.Now().Add(d))}
	if _, err := b.Moderation.UpdateMember(guildID, userID, update, rest.WithCtx(ctx), rest.WithReason(reason)); err != nil {
		return b.moderationFailed(inv, "timeout", err)
	}
	b.logger.Info().Str("guild_id", inv.GuildID).Str("moderator", inv.UserID).Str("member", userID.String()).Int("minutes", minutes).Msg("member timed out")
	return embedReply(ModerationEmbed("🔇 Member Timed Out", Mention(userID.String())+" has been timed out.", ColorInfo, inv.UserID, reason, fmt.Sprintf("%d minutes", minutes)))
}

func (b *Bot) cmdGiveRole(ctx context.Context, inv Invocation) Reply {
	guildID, userID, refuse, ok := b.target(inv)
	if !ok {
		return refuse
	}
	roleID := parseID(inv.Roles["role"])
	if roleID == 0 {
		return textReply("❌ I couldn't find that role.")
	}
	if err := b.Moderation.AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		return b.moderationFailed(inv, "give role", err)
	}
	b.logger.Info().Str("guild_id", inv.GuildID).Str("moderator", inv.UserID).Str("member", userID.String()).Str("role_id", roleID.String()).Msg("role assigned")
	return embedReply(discord.NewEmbedBuilder().
		SetTitle("✅ Role Assigned").
		SetDescriptionf("<@&%s> has been given to %s", roleID, Mention(userID.String())).
		SetColor(ColorOk).
		AddField("Moderator", Mention(inv.UserID), true).
		Build())
}

// moderationFailed keeps Discord's error text out of the channel; the API
// refuses targets above the bot's highest role.
func (b *Bot) moderationFailed(inv Invocation, action string, err error) Reply {
	b.logger.Error().Err(err).Str("command", inv.Name).Str("guild_id", inv.GuildID).Str("member", inv.Users["member"]).Msg("moderation failed")
	return textReply(fmt.Sprintf("❌ Failed to %s %s. Check that my role is above theirs.", action, Mention(inv.Users["member"])))
}

// ParsePollOptions splits a comma separated option list.
func ParsePollOptions(s string) ([]string, error) {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	switch {
	case len(out) < 2:
		return nil, ErrPollTooFew
	case len(out) > MaxPollOptions:
		return nil, ErrPollTooMany
	}
	return out, nil
}

func (b *Bot) cmdPoll(_ context.Context, inv Invocation) Reply {
	question := strings.TrimSpace(inv.Strings["question"])
	if question == "" {
		return textReply("❌ A poll needs a question.")
	}
	opts, err := ParsePollOptions(inv.Strings["options"])
	if err != nil {
		return textReply("❌ " + strings.ToUpper(err.Error()[:1]) + err.Error()[1:] + ".")
	}
	r := embedReply(PollEmbed(question, opts, inv.Username))
	r.Reactions = PollEmojis[:len(opts)]
	return r
}
