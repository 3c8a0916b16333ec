package discord

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

func TestChannelDirectory(t *testing.T) {
	d := NewChannelDirectory("Daily-Code")
	if !d.MatchesName("#daily-code") || d.MatchesName("general") {
		t.Fatal("name matching")
	}
	d.Set("g1", "c1")
	if !d.IsStreakChannel("g1", "c1") || d.IsStreakChannel("g1", "c2") || d.IsStreakChannel("g2", "c1") {
		t.Fatal("IsStreakChannel")
	}
	snap := d.All()
	snap["g9"] = "x"
	if _, ok := d.Get("g9"); ok {
		t.Fatal("All must return a copy")
	}
	d.Set("g1", "")
	if _, ok := d.Get("g1"); ok {
		t.Fatal("empty channel should remove the guild")
	}
}

func TestBackfillChannels(t *testing.T) {
	b := &Bot{Channels: NewChannelDirectory("daily-code")}
	b.Channels.Set("g1", "c1")
	b.Channels.Set("g2", "c2")
	got := b.BackfillChannels()
	if len(got) != 2 {
		t.Fatalf("channels: %+v", got)
	}
	for _, sc := range got {
		if (sc.GuildID == "g1" && sc.ChannelID != "c1") || (sc.GuildID == "g2" && sc.ChannelID != "c2") {
			t.Fatalf("mismatched pair %+v", sc)
		}
	}
}

func TestToEvent(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ct := "image/png"
	webhookID := snowflake.ID(9)
	m := discord.Message{
		ID:        snowflake.New(created),
		ChannelID: 77,
		Content:   "#DAY-3",
		Author:    discord.User{ID: 5, Username: "ada"},
		CreatedAt: created,
		Type:      discord.MessageTypeReply,
		Attachments: []discord.Attachment{
			{Filename: "shot.png", ContentType: &ct, URL: "https://cdn/x.png", Size: 10},
		},
	}
	ev := ToEvent(100, m)
	if ev.GuildID != "100" || ev.ChannelID != "77" || ev.AuthorID != "5" || ev.Text != "#DAY-3" {
		t.Fatalf("ids: %+v", ev)
	}
	if !ev.IsReply || ev.IsBot {
		t.Fatalf("flags: %+v", ev)
	}
	if len(ev.Attachments) != 1 || ev.Attachments[0].ContentType != "image/png" {
		t.Fatalf("attachments: %+v", ev.Attachments)
	}

	m.WebhookID = &webhookID
	if !ToEvent(100, m).IsBot {
		t.Fatal("webhook messages count as bot messages")
	}
}

func TestSortOldestFirst(t *testing.T) {
	msgs := []discord.Message{{ID: 30}, {ID: 10}, {ID: 20}}
	sortOldestFirst(msgs)
	if msgs[0].ID != 10 || msgs[2].ID != 30 {
		t.Fatalf("order: %v", msgs)
	}
}

func TestDisplayNameAndParseID(t *testing.T) {
	g := "Ada L."
	if DisplayName(discord.User{Username: "ada", GlobalName: &g}) != "Ada L." {
		t.Fatal("global name should win")
	}
	if DisplayName(discord.User{Username: "ada"}) != "ada" {
		t.Fatal("username fallback")
	}
	if parseID("abc") != 0 || parseID("") != 0 || parseID("123") != 123 {
		t.Fatal("parseID")
	}
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := parseWebhookURL("https://discord.com/api/webhooks/123456/tok-en")
	if err != nil || id != 123456 || token != "tok-en" {
		t.Fatalf("got %v %q %v", id, token, err)
	}
	if _, _, err := parseWebhookURL("https://discord.com/api/webhooks/notanid/tok"); err == nil {
		t.Fatal("expected error for a bad id")
	}
	n, err := NewOpsNotifier("", "streakbot")
	if err != nil || n != nil {
		t.Fatalf("empty url should disable: %v %v", n, err)
	}
	n.Alert("ignored", "nil notifier drops alerts")
}
