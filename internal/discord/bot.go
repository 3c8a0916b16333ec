package discord

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/fun"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// HandlerTimeout bounds the work done for one gateway event.
const HandlerTimeout = 30 * time.Second

// Bot wires Discord events to the streak services.
type Bot struct {
	Client    bot.Client
	Processor *services.Processor
	Streaks   *services.StreakService
	Settings  *services.SettingsService
	Fun       *fun.Client
	Channels  *ChannelDirectory
	Ops       *OpsNotifier

	// Moderation defaults to the client's REST API.
	Moderation Moderator

	// CommandGuildID registers commands for one guild (instant updates)
	// instead of globally.
	CommandGuildID string

	logger zerolog.Logger
}

// Options configures New.
type Options struct {
	Token          string
	CommandGuildID string
}

// New creates the disgo client and registers event listeners. The gateway
// is not opened until Run.
func New(opts Options, b *Bot) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	b.CommandGuildID = opts.CommandGuildID
	b.logger = log.With().Str("component", "discord").Logger()

	client, err := disgo.New(opts.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListenerFunc(b.onGuildReady),
		bot.WithEventListenerFunc(b.onGuildJoin),
		bot.WithEventListenerFunc(b.onMessage),
		bot.WithEventListenerFunc(b.onCommand),
	)
	if err != nil {
		return nil, err
	}
	b.Client = client
	if b.Moderation == nil {
		b.Moderation = client.Rest()
	}
	return b, nil
}

// Run registers slash commands, opens the gateway and blocks until ctx is
// done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.RegisterCommands(ctx); err != nil {
		b.logger.Error().Err(err).Msg("register commands")
	}
	if err := b.Client.OpenGateway(ctx); err != nil {
		return err
	}
	b.logger.Info().Msg("gateway connected")
	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.Client.Close(closeCtx)
	b.logger.Info().Msg("gateway closed")
	return nil
}

// RegisterCommands publishes the command table.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	cmds := ApplicationCommands()
	appID := b.Client.ApplicationID()
	if gid := parseID(b.CommandGuildID); gid != 0 {
		_, err := b.Client.Rest().SetGuildCommands(appID, gid, cmds, rest.WithCtx(ctx))
		return err
	}
	_, err := b.Client.Rest().SetGlobalCommands(appID, cmds, rest.WithCtx(ctx))
	return err
}

func (b *Bot) onGuildReady(e *events.GuildReady) {
	b.trackGuild(e.Guild)
}

func (b *Bot) onGuildJoin(e *events.GuildJoin) {
	b.trackGuild(e.Guild)
}

// trackGuild records the guild and resolves its streak channel: the stored
// setting wins, otherwise a text channel named after the fallback name is
// adopted and persisted.
func (b *Bot) trackGuild(g discord.GatewayGuild) {
	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()
	guildID := g.ID.String()

	if err := b.Settings.TrackGuild(ctx, guildID, g.Name); err != nil {
		b.logger.Error().Err(err).Str("guild_id", guildID).Msg("track guild")
		return
	}
	gs, err := b.Settings.Guild(ctx, guildID)
	if err != nil {
		b.logger.Error().Err(err).Str("guild_id", guildID).Msg("load guild settings")
		return
	}
	if gs.StreakChannelID != "" {
		b.Channels.Set(guildID, gs.StreakChannelID)
		return
	}
	for _, ch := range g.Channels {
		if ch.Type() != discord.ChannelTypeGuildText || !b.Channels.MatchesName(ch.Name()) {
			continue
		}
		id := ch.ID().String()
		b.Channels.Set(guildID, id)
		if err := b.Settings.SetChannel(ctx, guildID, services.ChannelStreak, id); err != nil {
			b.logger.Warn().Err(err).Str("guild_id", guildID).Msg("persist streak channel")
		}
		b.logger.Info().Str("guild_id", guildID).Str("channel_id", id).Msg("streak channel discovered")
		return
	}
}

func (b *Bot) onMessage(e *events.GuildMessageCreate) {
	ev := ToEvent(e.GuildID, e.Message)
	if ev.IsBot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()

	profile := domain.UserProfile{
		UserID:      ev.AuthorID,
		Username:    e.Message.Author.Username,
		DisplayName: DisplayName(e.Message.Author),
	}
	if u := e.Message.Author.AvatarURL(); u != nil {
		profile.AvatarURL = *u
	}

	out := b.process(ctx, ev, b.mentionsBot(e.Message), profile)
	if out.Greet {
		b.reply(ctx, e.ChannelID, e.MessageID, GreetingEmbed())
	}
	if out.Notification == nil {
		return
	}
	n := out.Notification
	channelID, messageID := e.ChannelID, e.MessageID
	if id := parseID(n.MessageID); id != 0 {
		messageID = id
		if ch := parseID(n.ChannelID); ch != 0 {
			channelID = ch
		}
	}
	b.Deliver(ctx, channelID, messageID, *n)
}

// messageOutcome is what the bot owes one inbound message.
type messageOutcome struct {
	Greet        bool
	Notification *domain.Notification
}

// process runs a guild message through the streak pipeline. A bot mention
// adds a greeting but never replaces the streak update.
func (b *Bot) process(ctx context.Context, ev domain.Event, mentioned bool, profile domain.UserProfile) messageOutcome {
	out := messageOutcome{Greet: mentioned}
	if err := b.Settings.TouchProfile(ctx, profile); err != nil {
		b.logger.Debug().Err(err).Str("user_id", ev.AuthorID).Msg("profile upsert")
	}
	n, err := b.Processor.Handle(ctx, ev)
	if err != nil {
		b.logger.Error().Err(err).Str("message_id", ev.MessageID).Msg("handle message")
		b.Ops.Alert("Streak update failed", err.Error())
		return out
	}
	out.Notification = n
	return out
}

// Deliver acknowledges a notification on the message it refers to.
func (b *Bot) Deliver(ctx context.Context, channelID, messageID snowflake.ID, n domain.Notification) {
	if emoji := Reaction(n.Kind); emoji != "" {
		if err := b.Client.Rest().AddReaction(channelID, messageID, emoji, rest.WithCtx(ctx)); err != nil {
			b.logger.Warn().Err(err).Str("message_id", messageID.String()).Msg("add reaction")
		}
	}
	embed, ok := NotificationEmbed(n)
	if !ok || !b.wantsEmbed(ctx, n.UserID, n.GuildID) {
		return
	}
	b.reply(ctx, channelID, messageID, embed)
}

// wantsEmbed reports the user's mention preference. A failed lookup shows
// the embed, the same as a user who never changed the setting.
func (b *Bot) wantsEmbed(ctx context.Context, userID, guildID string) bool {
	on, err := b.Settings.MentionsEnabled(ctx, userID, guildID)
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("load mention preference")
		return true
	}
	return on
}

func (b *Bot) reply(ctx context.Context, channelID, messageID snowflake.ID, embed discord.Embed) {
	msg := discord.NewMessageCreateBuilder().
		AddEmbeds(embed).
		SetMessageReferenceByID(messageID).
		Build()
	if _, err := b.Client.Rest().CreateMessage(channelID, msg, rest.WithCtx(ctx)); err != nil {
		b.logger.Warn().Err(err).Str("channel_id", channelID.String()).Msg("send reply")
	}
}

func (b *Bot) mentionsBot(m discord.Message) bool {
	self := b.Client.ID()
	for _, u := range m.Mentions {
		if u.ID == self {
			return true
		}
	}
	return false
}

func (b *Bot) onCommand(e *events.ApplicationCommandInteractionCreate) {
	data := e.SlashCommandInteractionData()
	cmd, ok := Lookup(data.CommandName())
	if !ok {
		return
	}
	inv := invocationFrom(e, data, cmd)

	if cmd.Deferred {
		if err := e.DeferCreateMessage(false); err != nil {
			b.logger.Warn().Err(err).Str("command", cmd.Name).Msg("defer interaction")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
		defer cancel()
		r := b.Dispatch(ctx, inv)
		m, err := e.Client().Rest().CreateFollowupMessage(e.ApplicationID(), e.Token(), messageFor(r), rest.WithCtx(ctx))
		if err != nil {
			b.logger.Warn().Err(err).Str("command", cmd.Name).Msg("send follow-up")
			return
		}
		for _, emoji := range r.Reactions {
			if err := e.Client().Rest().AddReaction(m.ChannelID, m.ID, emoji, rest.WithCtx(ctx)); err != nil {
				b.logger.Warn().Err(err).Str("command", cmd.Name).Msg("add reaction")
				return
			}
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()
	r := b.Dispatch(ctx, inv)
	if err := e.CreateMessage(messageFor(r)); err != nil {
		b.logger.Warn().Err(err).Str("command", cmd.Name).Msg("respond to interaction")
	}
}

func invocationFrom(e *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData, cmd *Command) Invocation {
	inv := Invocation{
		Name:      cmd.Name,
		ChannelID: e.ChannelID().String(),
		UserID:    e.User().ID.String(),
		Username:  DisplayName(e.User()),
		Ints:      map[string]int{},
		Strings:   map[string]string{},
		Bools:     map[string]bool{},
		Users:     map[string]string{},
		Channels:  map[string]string{},
		Roles:     map[string]string{},
	}
	if gid := e.GuildID(); gid != nil {
		inv.GuildID = gid.String()
	}
	if m := e.Member(); m != nil {
		inv.Admin = m.Permissions.Has(discord.PermissionAdministrator) || m.Permissions.Has(discord.PermissionManageGuild)
	}
	for _, opt := range cmd.Options {
		switch o := opt.(type) {
		case discord.ApplicationCommandOptionInt:
			if v, ok := data.OptInt(o.Name); ok {
				inv.Ints[o.Name] = v
			}
		case discord.ApplicationCommandOptionString:
			if v, ok := data.OptString(o.Name); ok {
				inv.Strings[o.Name] = strings.TrimSpace(v)
			}
		case discord.ApplicationCommandOptionBool:
			if v, ok := data.OptBool(o.Name); ok {
				inv.Bools[o.Name] = v
			}
		case discord.ApplicationCommandOptionUser:
			if v, ok := data.OptUser(o.Name); ok {
				inv.Users[o.Name] = v.ID.String()
			}
		case discord.ApplicationCommandOptionChannel:
			if v, ok := data.OptChannel(o.Name); ok {
				inv.Channels[o.Name] = v.ID.String()
			}
		case discord.ApplicationCommandOptionRole:
			if v, ok := data.OptRole(o.Name); ok {
				inv.Roles[o.Name] = v.ID.String()
			}
		}
	}
	return inv
}

func messageFor(r Reply) discord.MessageCreate {
	mb := discord.NewMessageCreateBuilder().
		SetContent(r.Content).
		SetEphemeral(r.Ephemeral)
	if len(r.Embeds) > 0 {
		mb.AddEmbeds(r.Embeds...)
	}
	return mb.Build()
}
