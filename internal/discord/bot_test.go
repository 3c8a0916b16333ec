package discord

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-streak-bot/internal/classifier"
	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/services"
)

type fencedCode struct{}

func (fencedCode) Classify(_ context.Context, text string, _ []domain.Attachment) classifier.Result {
	if strings.Contains(text, "```") {
		return classifier.Result{Qualifies: true, Reason: classifier.ReasonCodeSpan}
	}
	return classifier.Result{Reason: classifier.ReasonNone}
}

func withProcessor(b *Bot) *Bot {
	b.Processor = &services.Processor{
		Streaks:    b.Streaks,
		Classifier: fencedCode{},
		Pairing:    services.NewPairingBuffer(5, 0),
	}
	return b
}

func TestProcess_MentionStillCountsStreak(t *testing.T) {
	b := withProcessor(newTestBot(t))
	ev := domain.Event{
		MessageID: "10", AuthorID: "1", GuildID: "100", ChannelID: "7",
		Text:      "<@999> #day 1 ```go\nfmt.Println(1)\n```",
		CreatedAt: time.Now().UTC(),
	}
	out := b.process(context.Background(), ev, true, domain.UserProfile{UserID: "1", Username: "ada"})
	if !out.Greet {
		t.Fatal("mention should greet")
	}
	if out.Notification == nil || out.Notification.Kind != domain.ActionStart {
		t.Fatalf("notification: %+v", out.Notification)
	}
}

func TestProcess_PlainChatter(t *testing.T) {
	b := withProcessor(newTestBot(t))
	ev := domain.Event{MessageID: "11", AuthorID: "1", GuildID: "100", ChannelID: "7", Text: "hello", CreatedAt: time.Now().UTC()}
	out := b.process(context.Background(), ev, false, domain.UserProfile{UserID: "1"})
	if out.Greet || out.Notification != nil {
		t.Fatalf("got %+v", out)
	}
}

func TestWantsEmbed(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	if !b.wantsEmbed(ctx, "1", "100") {
		t.Fatal("default should show embeds")
	}
	if err := b.Settings.SetMentions(ctx, "1", "100", false); err != nil {
		t.Fatalf("SetMentions: %v", err)
	}
	if b.wantsEmbed(ctx, "1", "100") {
		t.Fatal("opt-out ignored")
	}

	sqlDB, err := b.Settings.DB.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	_ = sqlDB.Close()
	if !b.wantsEmbed(ctx, "1", "100") {
		t.Fatal("lookup failure should show embeds")
	}
}
