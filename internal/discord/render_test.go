package discord

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
)

func TestReaction(t *testing.T) {
	cases := map[domain.Action]string{
		domain.ActionStart:           EmojiFire,
		domain.ActionContinue:        EmojiFire,
		domain.ActionGraceContinue:   EmojiFrozen,
		domain.ActionReset:           EmojiReset,
		domain.ActionDayMismatch:     EmojiReset,
		domain.ActionRejectNotDayOne: EmojiWarning,
		domain.ActionInvalidDay:      EmojiWarning,
		domain.ActionDuplicate:       EmojiDone,
		domain.ActionPending:         EmojiPending,
		domain.ActionHistorical:      "",
		domain.ActionNone:            "",
	}
	for a, want := range cases {
		if got := Reaction(a); got != want {
			t.Errorf("Reaction(%v)=%q want %q", a, got, want)
		}
	}
}

func TestNotificationEmbed(t *testing.T) {
	n := domain.Notification{Kind: domain.ActionContinue, UserID: "42", CurrentStreak: 5, LongestStreak: 9, NextDay: 6}
	e, ok := NotificationEmbed(n)
	if !ok {
		t.Fatal("continue should render")
	}
	if !strings.Contains(e.Description, "<@42>") {
		t.Fatalf("description missing mention: %q", e.Description)
	}
	if len(e.Fields) != 3 || e.Fields[2].Value != "#DAY-6" {
		t.Fatalf("fields: %+v", e.Fields)
	}

	mm, ok := NotificationEmbed(domain.Notification{Kind: domain.ActionDayMismatch, UserID: "1", Expected: 4, Received: 7, PreviousStreak: 3})
	if !ok || mm.Fields[0].Value != "#DAY-4" || mm.Fields[1].Value != "#DAY-7" {
		t.Fatalf("mismatch: ok=%v %+v", ok, mm.Fields)
	}

	for _, a := range []domain.Action{domain.ActionPending, domain.ActionHistorical, domain.ActionNone} {
		if _, ok := NotificationEmbed(domain.Notification{Kind: a}); ok {
			t.Errorf("%v should not render an embed", a)
		}
	}
}

func TestReminderContent(t *testing.T) {
	yes, no := true, false
	got := ReminderContent([]repo.ReminderTarget{
		{UserID: "1"},
		{UserID: "2", OptOutMentions: &yes},
		{UserID: "3", OptOutMentions: &no},
	})
	if !strings.Contains(got, "<@1> <@3>") {
		t.Fatalf("mentions missing: %q", got)
	}
	if strings.Contains(got, "<@2>") {
		t.Fatalf("opted-out user pinged: %q", got)
	}
	if !strings.Contains(got, "1 more") {
		t.Fatalf("quiet count missing: %q", got)
	}
}

func TestErrorText(t *testing.T) {
	wrapped := fmt.Errorf("use freeze: %w", services.ErrNoFreezes)
	if got := ErrorText(wrapped); !strings.Contains(got, "no streak freezes") {
		t.Fatalf("wrapped: %q", got)
	}
	if got := ErrorText(errors.New("boom")); !strings.Contains(got, "Something went wrong") {
		t.Fatalf("fallback: %q", got)
	}
}

func TestLeaderboardEmbed(t *testing.T) {
	e := LeaderboardEmbed("Gophers", []services.LeaderboardEntry{
		{Rank: 1, UserID: "1", Username: "ada", CurrentStreak: 12},
		{Rank: 2, UserID: "2", Username: "bob", CurrentStreak: 3},
	})
	if !strings.Contains(e.Title+e.Description, "Gophers") {
		t.Fatalf("guild name missing: %+v", e)
	}
	body := e.Description
	for _, f := range e.Fields {
		body += f.Name + f.Value
	}
	if !strings.Contains(body, "<@1>") || !strings.Contains(body, "<@2>") {
		t.Fatalf("entries missing: %q", body)
	}
}
