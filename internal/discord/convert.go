package discord

import (
	"sort"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/sysutil"
)

// ToEvent converts a Discord message into a pipeline event.
func ToEvent(guildID snowflake.ID, m discord.Message) domain.Event {
	ev := domain.Event{
		MessageID: m.ID.String(),
		AuthorID:  m.Author.ID.String(),
		GuildID:   guildID.String(),
		ChannelID: m.ChannelID.String(),
		Text:      m.Content,
		CreatedAt: m.CreatedAt.UTC(),
		IsBot:     m.Author.Bot || m.WebhookID != nil,
		IsReply:   m.Type == discord.MessageTypeReply,
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = m.ID.Time().UTC()
	}
	for _, a := range m.Attachments {
		ct := ""
		if a.ContentType != nil {
			ct = *a.ContentType
		}
		ev.Attachments = append(ev.Attachments, domain.Attachment{
			Filename:    a.Filename,
			ContentType: ct,
			URL:         a.URL,
			Size:        a.Size,
		})
	}
	return ev
}

// DisplayName returns the user's global display name or username.
func DisplayName(u discord.User) string {
	global := ""
	if u.GlobalName != nil {
		global = *u.GlobalName
	}
	return sysutil.FirstNonEmpty(global, u.Username)
}

// sortOldestFirst orders messages by snowflake (creation time).
func sortOldestFirst(msgs []discord.Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
}

// parseID parses a snowflake, returning 0 for empty or invalid input.
func parseID(s string) snowflake.ID {
	if s == "" {
		return 0
	}
	id, err := snowflake.Parse(s)
	if err != nil {
		return 0
	}
	return id
}
