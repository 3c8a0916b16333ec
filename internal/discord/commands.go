package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-streak-bot/internal/oracle"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// Command categories, in /help order.
const (
	CategoryStreaks    = "streaks"
	CategorySettings   = "settings"
	CategoryFun        = "fun"
	CategoryModeration = "moderation"
	CategoryUtility    = "utility"
)

var categoryOrder = []string{CategoryStreaks, CategorySettings, CategoryModeration, CategoryUtility, CategoryFun}

// HistoryLimit is how many entries /history shows.
const HistoryLimit = 30

// LeaderboardLimit is how many entries /leaderboard shows.
const LeaderboardLimit = 10

// Invocation is a slash command call, decoupled from the gateway event.
type Invocation struct {
	Name      string
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Admin     bool

	Ints     map[string]int
	Strings  map[string]string
	Bools    map[string]bool
	Users    map[string]string // option → user ID
	Channels map[string]string // option → channel ID
	Roles    map[string]string // option → role ID
}

// Reply is what a command answers with.
type Reply struct {
	Content   string
	Embeds    []discord.Embed
	Ephemeral bool
	// Reactions are added to the posted reply, in order.
	Reactions []string
}

func textReply(s string) Reply { return Reply{Content: s, Ephemeral: true} }
func embedReply(e discord.Embed) Reply { return Reply{Embeds: []discord.Embed{e}} }

// Handler runs a command.
type Handler func(b *Bot, ctx context.Context, inv Invocation) Reply

// Command is one entry of the static command table.
type Command struct {
	Name        string
	Description string
	Category    string
	Admin       bool
	// Deferred commands acknowledge first and answer with a follow-up.
	Deferred bool
	Options  []discord.ApplicationCommandOption
	Handler  Handler
}

// Commands is the bot's command table. /help is rendered from it.
var Commands []Command

var commandIndex map[string]*Command

func init() {
	Commands = commandTable()
	commandIndex = make(map[string]*Command, len(Commands))
	for i := range Commands {
		commandIndex[Commands[i].Name] = &Commands[i]
	}
}

func commandTable() []Command {
	return []Command{
		{Name: "leaderboard", Description: "Show the top coding streaks in this server", Category: CategoryStreaks, Handler: (*Bot).cmdLeaderboard},
		{Name: "mystats", Description: "View your personal coding statistics", Category: CategoryStreaks, Handler: (*Bot).cmdMyStats},
		{Name: "history", Description: "Show your last 30 logged days", Category: CategoryStreaks, Handler: (*Bot).cmdHistory},
		{Name: "serverstats", Description: "Show this server's streak activity", Category: CategoryStreaks, Handler: (*Bot).cmdServerStats},
		{Name: "freeze", Description: "Use a streak freeze to cover a missed day", Category: CategoryStreaks, Handler: (*Bot).cmdFreeze},
		{
			Name: "addfreeze", Description: "Give a user streak freezes (Admin only)", Category: CategoryStreaks, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Who receives the freezes", Required: true},
				discord.ApplicationCommandOptionInt{Name: "amount", Description: "How many (1-10)", Required: true},
			},
			Handler: (*Bot).cmdAddFreeze,
		},
		{
			Name: "restore", Description: "Restore a user's streak (Admin only)", Category: CategoryStreaks, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Whose streak to restore", Required: true},
				discord.ApplicationCommandOptionInt{Name: "day", Description: "Day number to restore to", Required: true},
			},
			Handler: (*Bot).cmdRestore,
		},
		{
			Name: "setreminder", Description: "Set the daily reminder time (Admin only)", Category: CategorySettings, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "time", Description: "24h time, e.g. 18:00", Required: true},
				discord.ApplicationCommandOptionString{Name: "timezone", Description: "IANA timezone, e.g. Europe/Athens"},
			},
			Handler: (*Bot).cmdSetReminder,
		},
		{
			Name: "setreminderchannel", Description: "Set the channel for daily reminders (Admin only)", Category: CategorySettings, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{Name: "channel", Description: "Reminder channel", Required: true},
			},
			Handler: channelSetter(services.ChannelReminder),
		},
		{
			Name: "setchallengechannel", Description: "Set the channel for weekly challenges (Admin only)", Category: CategorySettings, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{Name: "channel", Description: "Challenge channel", Required: true},
			},
			Handler: channelSetter(services.ChannelChallenge),
		},
		{
			Name: "setstreakchannel", Description: "Set the channel where streaks are posted (Admin only)", Category: CategorySettings, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{Name: "channel", Description: "Streak channel", Required: true},
			},
			Handler: channelSetter(services.ChannelStreak),
		},
		{
			Name: "mentions", Description: "Turn streak mentions on or off for you", Category: CategorySettings,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{Name: "enabled", Description: "Receive embeds that mention you", Required: true},
			},
			Handler: (*Bot).cmdMentions,
		},
		{
			Name: "kick", Description: "Kick a member from the server (Admin only)", Category: CategoryModeration, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "member", Description: "The member to kick", Required: true},
				discord.ApplicationCommandOptionString{Name: "reason", Description: "Reason for kicking"},
			},
			Handler: (*Bot).cmdKick,
		},
		{
			Name: "ban", Description: "Ban a member from the server (Admin only)", Category: CategoryModeration, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "member", Description: "The member to ban", Required: true},
				discord.ApplicationCommandOptionString{Name: "reason", Description: "Reason for banning"},
			},
			Handler: (*Bot).cmdBan,
		},
		{
			Name: "mute", Description: "Timeout a member (Admin only)", Category: CategoryModeration, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "member", Description: "The member to timeout", Required: true},
				discord.ApplicationCommandOptionInt{Name: "duration", Description: "Duration in minutes", Required: true},
				discord.ApplicationCommandOptionString{Name: "reason", Description: "Reason for timeout"},
			},
			Handler: (*Bot).cmdMute,
		},
		{
			Name: "giverole", Description: "Give a role to a member (Admin only)", Category: CategoryModeration, Admin: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "member", Description: "The member to give a role to", Required: true},
				discord.ApplicationCommandOptionRole{Name: "role", Description: "The role to give", Required: true},
			},
			Handler: (*Bot).cmdGiveRole,
		},
		{
			Name: "poll", Description: "Create a reaction poll", Category: CategoryUtility, Deferred: true,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "question", Description: "The poll question", Required: true},
				discord.ApplicationCommandOptionString{Name: "options", Description: "Options separated by commas (max 10)", Required: true},
			},
			Handler: (*Bot).cmdPoll,
		},
		{Name: "challenge", Description: "Get a random coding challenge", Category: CategoryFun, Handler: (*Bot).cmdChallenge},
		{Name: "meme", Description: "Get a random programming meme", Category: CategoryFun, Deferred: true, Handler: (*Bot).cmdMeme},
		{Name: "quote", Description: "Get an inspiring quote", Category: CategoryFun, Deferred: true, Handler: (*Bot).cmdQuote},
		{Name: "joke", Description: "Get a programming joke", Category: CategoryFun, Deferred: true, Handler: (*Bot).cmdJoke},
		{Name: "help", Description: "List every command", Category: CategoryFun, Handler: (*Bot).cmdHelp},
	}
}

// Lookup returns the command named name.
func Lookup(name string) (*Command, bool) {
	c, ok := commandIndex[name]
	return c, ok
}

// ApplicationCommands converts the table for registration.
func ApplicationCommands() []discord.ApplicationCommandCreate {
	out := make([]discord.ApplicationCommandCreate, 0, len(Commands))
	for _, c := range Commands {
		out = append(out, discord.SlashCommandCreate{
			Name:        c.Name,
			Description: c.Description,
			Options:     c.Options,
		})
	}
	return out
}

// Dispatch runs inv through the command table, enforcing admin checks.
func (b *Bot) Dispatch(ctx context.Context, inv Invocation) Reply {
	c, ok := Lookup(inv.Name)
	if !ok {
		return textReply("Unknown command.")
	}
	if c.Admin && !inv.Admin {
		return textReply("⛔ This command is for server administrators.")
	}
	if inv.GuildID == "" {
		return textReply("Commands only work inside a server.")
	}
	return c.Handler(b, ctx, inv)
}

// HelpEmbed renders /help from the command table.
func HelpEmbed() discord.Embed {
	title := cases.Title(language.English)
	eb := discord.NewEmbedBuilder().
		SetTitle("📖 Streak Bot Help").
		SetDescription("Post your daily code with `#DAY-N` (for example `#DAY-1`). " +
			"A code block, a source file, or a screenshot of code counts as proof. " +
			"You can send the day tag and the proof as two messages.\n\n" +
			"Note: when image checking is unavailable, screenshots are accepted without review.").
		SetColor(ColorInfo)
	for _, cat := range categoryOrder {
		var sb strings.Builder
		for _, c := range Commands {
			if c.Category != cat {
				continue
			}
			fmt.Fprintf(&sb, "`/%s` %s\n", c.Name, c.Description)
		}
		if sb.Len() > 0 {
			eb.AddField(title.String(cat), sb.String(), false)
		}
	}
	return eb.SetFooterText("Missing one day is covered by a grace period; missing two resets your streak.").Build()
}

// ---- handlers ----

func (b *Bot) cmdHelp(_ context.Context, _ Invocation) Reply {
	r := embedReply(HelpEmbed())
	r.Ephemeral = true
	return r
}

func (b *Bot) cmdLeaderboard(ctx context.Context, inv Invocation) Reply {
	entries, err := b.Streaks.Leaderboard(ctx, inv.GuildID, LeaderboardLimit)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(LeaderboardEmbed(b.guildName(ctx, inv.GuildID), entries))
}

func (b *Bot) cmdMyStats(ctx context.Context, inv Invocation) Reply {
	st, err := b.Streaks.Stats(ctx, inv.UserID, inv.GuildID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(StatsEmbed(inv.Username, st))
}

func (b *Bot) cmdHistory(ctx context.Context, inv Invocation) Reply {
	items, total, err := b.Streaks.History(ctx, inv.UserID, inv.GuildID, 0, HistoryLimit)
	if err != nil {
		return b.fail(inv, err)
	}
	r := embedReply(HistoryEmbed(inv.Username, items, total))
	r.Ephemeral = true
	return r
}

func (b *Bot) cmdServerStats(ctx context.Context, inv Invocation) Reply {
	s, err := b.Streaks.ServerStats(ctx, inv.GuildID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(ServerStatsEmbed(b.guildName(ctx, inv.GuildID), s))
}

func (b *Bot) cmdFreeze(ctx context.Context, inv Invocation) Reply {
	left, err := b.Streaks.UseFreeze(ctx, inv.UserID, inv.GuildID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(discord.NewEmbedBuilder().
		SetTitle("🧊 Streak Frozen").
		SetDescriptionf("%s used a freeze. Post today to keep the streak going!", Mention(inv.UserID)).
		SetColor(ColorFrozen).
		AddField("Freezes Left", fmt.Sprintf("%d", left), true).
		Build())
}

func (b *Bot) cmdAddFreeze(ctx context.Context, inv Invocation) Reply {
	user := inv.Users["user"]
	n, err := b.Streaks.AddFreeze(ctx, services.FreezeGrant{UserID: user, GuildID: inv.GuildID, Amount: inv.Ints["amount"]})
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(discord.NewEmbedBuilder().
		SetTitle("🧊 Freezes Added").
		SetDescriptionf("%s now has %d freeze(s).", Mention(user), n).
		SetColor(ColorOk).
		Build())
}

func (b *Bot) cmdRestore(ctx context.Context, inv Invocation) Reply {
	user := inv.Users["user"]
	rec, err := b.Streaks.Restore(ctx, user, inv.GuildID, inv.Ints["day"])
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(discord.NewEmbedBuilder().
		SetTitle("✅ Streak Restored").
		SetDescriptionf("Successfully restored %s's streak", Mention(user)).
		SetColor(ColorOk).
		AddField("Current Streak", days(rec.CurrentStreak), true).
		AddField("Longest Streak", days(rec.LongestStreak), true).
		AddField("Next", dayTag(rec.LastDayNumber+1), true).
		Build())
}

func (b *Bot) cmdSetReminder(ctx context.Context, inv Invocation) Reply {
	hhmm, tz := inv.Strings["time"], inv.Strings["timezone"]
	if err := b.Settings.SetReminder(ctx, inv.GuildID, hhmm, tz); err != nil {
		return b.fail(inv, err)
	}
	gs, err := b.Settings.Guild(ctx, inv.GuildID)
	if err != nil {
		return b.fail(inv, err)
	}
	return textReply(fmt.Sprintf("⏰ Daily reminder set to %s (%s).", gs.ReminderTime, gs.Timezone))
}

func channelSetter(kind services.ChannelKind) Handler {
	return func(b *Bot, ctx context.Context, inv Invocation) Reply {
		ch := inv.Channels["channel"]
		if err := b.Settings.SetChannel(ctx, inv.GuildID, kind, ch); err != nil {
			return b.fail(inv, err)
		}
		if kind == services.ChannelStreak {
			b.Channels.Set(inv.GuildID, ch)
		}
		return textReply(fmt.Sprintf("✅ %s channel set to %s.", cases.Title(language.English).String(string(kind)), ChannelMention(ch)))
	}
}

func (b *Bot) cmdMentions(ctx context.Context, inv Invocation) Reply {
	on := inv.Bools["enabled"]
	if err := b.Settings.SetMentions(ctx, inv.UserID, inv.GuildID, on); err != nil {
		return b.fail(inv, err)
	}
	if on {
		return textReply("🔔 You'll get streak embeds that mention you.")
	}
	return textReply("🔕 Got it. I'll only react to your streak posts.")
}

func (b *Bot) cmdChallenge(_ context.Context, _ Invocation) Reply {
	return embedReply(ChallengeEmbed(oracle.Random()))
}

func (b *Bot) cmdMeme(ctx context.Context, inv Invocation) Reply {
	if b.Fun == nil {
		return textReply(ErrorText(errors.New("fun disabled")))
	}
	m, err := b.Fun.Meme(ctx, inv.UserID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(MemeEmbed(m))
}

func (b *Bot) cmdQuote(ctx context.Context, inv Invocation) Reply {
	if b.Fun == nil {
		return textReply(ErrorText(errors.New("fun disabled")))
	}
	q, err := b.Fun.Quote(ctx, inv.UserID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(QuoteEmbed(q))
}

func (b *Bot) cmdJoke(ctx context.Context, inv Invocation) Reply {
	if b.Fun == nil {
		return textReply(ErrorText(errors.New("fun disabled")))
	}
	j, err := b.Fun.Joke(ctx, inv.UserID)
	if err != nil {
		return b.fail(inv, err)
	}
	return embedReply(JokeEmbed(j))
}

// fail logs unexpected errors and returns the user-facing text.
func (b *Bot) fail(inv Invocation, err error) Reply {
	if isUserError(err) {
		return textReply(ErrorText(err))
	}
	b.logger.Error().Err(err).Str("command", inv.Name).Str("guild_id", inv.GuildID).Str("user_id", inv.UserID).Msg("command failed")
	return textReply(ErrorText(err))
}

func isUserError(err error) bool {
	for _, target := range []error{
		services.ErrNoStreak, services.ErrNoFreezes, services.ErrFreezeNotNeeded, services.ErrStreakBroken,
		services.ErrInvalidDayNumber, services.ErrInvalidAmount, services.ErrInvalidReminderTime, services.ErrInvalidTimezone,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (b *Bot) guildName(ctx context.Context, guildID string) string {
	if b.Settings != nil {
		if gs, err := b.Settings.Guild(ctx, guildID); err == nil && gs.Name != "" {
			return gs.Name
		}
	}
	return "this server"
}
