package discord

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/services"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), fmt.Sprintf("bot_%d.db", time.Now().UnixNano())))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return &Bot{
		Streaks:  services.NewStreakService(db, 0),
		Settings: &services.SettingsService{DB: db},
		Channels: NewChannelDirectory("daily-code"),
	}
}

func inv(name string) Invocation {
	return Invocation{
		Name:     name,
		GuildID:  "100",
		UserID:   "1",
		Username: "ada",
		Ints:     map[string]int{},
		Strings:  map[string]string{},
		Bools:    map[string]bool{},
		Users:    map[string]string{},
		Channels: map[string]string{},
		Roles:    map[string]string{},
	}
}

func TestCommandTable(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Commands {
		if seen[c.Name] {
			t.Fatalf("duplicate command %q", c.Name)
		}
		seen[c.Name] = true
		if c.Handler == nil || c.Description == "" {
			t.Fatalf("incomplete command %+v", c)
		}
		if got, ok := Lookup(c.Name); !ok || got.Name != c.Name {
			t.Fatalf("Lookup(%q) failed", c.Name)
		}
	}
	if len(ApplicationCommands()) != len(Commands) {
		t.Fatal("registration payload does not match table")
	}

	help := HelpEmbed()
	var body strings.Builder
	for _, f := range help.Fields {
		body.WriteString(f.Value)
	}
	for _, c := range Commands {
		if !strings.Contains(body.String(), "/"+c.Name) {
			t.Errorf("help is missing /%s", c.Name)
		}
	}
}

func TestDispatch_Guards(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	if r := b.Dispatch(ctx, inv("nope")); !strings.Contains(r.Content, "Unknown") {
		t.Fatalf("unknown: %+v", r)
	}

	i := inv("addfreeze")
	i.Users["user"] = "2"
	i.Ints["amount"] = 2
	if r := b.Dispatch(ctx, i); !strings.Contains(r.Content, "administrators") {
		t.Fatalf("non-admin should be refused: %+v", r)
	}

	dm := inv("mystats")
	dm.GuildID = ""
	if r := b.Dispatch(ctx, dm); !strings.Contains(r.Content, "inside a server") {
		t.Fatalf("DM should be refused: %+v", r)
	}
}

func TestDispatch_StreakCommands(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	if r := b.Dispatch(ctx, inv("mystats")); !strings.Contains(r.Content, "don't have a streak") {
		t.Fatalf("mystats without streak: %+v", r)
	}

	if _, err := b.Streaks.Submit(ctx, "1", "100", 1, true); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r := b.Dispatch(ctx, inv("mystats")); len(r.Embeds) != 1 {
		t.Fatalf("mystats: %+v", r)
	}
	if r := b.Dispatch(ctx, inv("leaderboard")); len(r.Embeds) != 1 {
		t.Fatalf("leaderboard: %+v", r)
	}
	if r := b.Dispatch(ctx, inv("history")); len(r.Embeds) != 1 || !r.Ephemeral {
		t.Fatalf("history: %+v", r)
	}

	grant := inv("addfreeze")
	grant.Admin = true
	grant.Users["user"] = "1"
	grant.Ints["amount"] = 2
	if r := b.Dispatch(ctx, grant); len(r.Embeds) != 1 || !strings.Contains(r.Embeds[0].Description, "2 freeze") {
		t.Fatalf("addfreeze: %+v", r)
	}

	grant.Ints["amount"] = 0
	if r := b.Dispatch(ctx, grant); !strings.Contains(r.Content, "between 1 and") {
		t.Fatalf("addfreeze validation: %+v", r)
	}

	if r := b.Dispatch(ctx, inv("freeze")); !strings.Contains(r.Content, "No freeze needed") {
		t.Fatalf("freeze on a safe streak: %+v", r)
	}
}

func TestDispatch_Settings(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	set := inv("setreminder")
	set.Admin = true
	set.Strings["time"] = "18:30"
	set.Strings["timezone"] = "UTC"
	if r := b.Dispatch(ctx, set); !strings.Contains(r.Content, "18:30") {
		t.Fatalf("setreminder: %+v", r)
	}

	set.Strings["time"] = "25:00"
	if r := b.Dispatch(ctx, set); !strings.Contains(r.Content, "HH:MM") {
		t.Fatalf("bad time: %+v", r)
	}

	ch := inv("setstreakchannel")
	ch.Admin = true
	ch.Channels["channel"] = "555"
	if r := b.Dispatch(ctx, ch); !strings.Contains(r.Content, "<#555>") {
		t.Fatalf("setstreakchannel: %+v", r)
	}
	if got, ok := b.Channels.Get("100"); !ok || got != "555" {
		t.Fatalf("directory not updated: %q %v", got, ok)
	}
	gs, err := b.Settings.Guild(ctx, "100")
	if err != nil || gs.StreakChannelID != "555" {
		t.Fatalf("settings: %+v %v", gs, err)
	}

	m := inv("mentions")
	m.Bools["enabled"] = false
	b.Dispatch(ctx, m)
	on, err := b.Settings.MentionsEnabled(ctx, "1", "100")
	if err != nil || on {
		t.Fatalf("mentions should be off: %v %v", on, err)
	}
}

func TestDispatch_FunWithoutClient(t *testing.T) {
	b := newTestBot(t)
	r := b.Dispatch(context.Background(), inv("meme"))
	if r.Content == "" {
		t.Fatalf("expected an unavailable message, got %+v", r)
	}
	if r := b.Dispatch(context.Background(), inv("challenge")); len(r.Embeds) != 1 {
		t.Fatalf("challenge: %+v", r)
	}
}
