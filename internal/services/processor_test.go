package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-streak-bot/internal/classifier"
	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/repo"
)

// fakeClassifier qualifies any text containing "code" and counts calls.
type fakeClassifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeClassifier) Classify(_ context.Context, text string, _ []domain.Attachment) classifier.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if strings.Contains(text, "code") {
		return classifier.Result{Qualifies: true, Reason: classifier.ReasonCodeSpan}
	}
	return classifier.Result{Reason: classifier.ReasonNone}
}

func newProcessor(t *testing.T, streakChannel string) (*Processor, *fakeClassifier, *clock) {
	t.Helper()
	svc, c := newTestService(t)
	fc := &fakeClassifier{}
	return &Processor{
		Streaks:    svc,
		Classifier: fc,
		Pairing:    NewPairingBuffer(5, 0),
		IsStreakChannel: func(_, channelID string) bool {
			return channelID == streakChannel
		},
	}, fc, c
}

func msg(id, channel, text string, at time.Time) domain.Event {
	return domain.Event{MessageID: id, AuthorID: "1", GuildID: "100", ChannelID: channel, Text: text, CreatedAt: at}
}

func TestProcessor_DayAndProofInOneMessage(t *testing.T) {
	p, _, c := newProcessor(t, "")
	n, err := p.Handle(context.Background(), msg("m1", "c", "day 1 code", c.Now()))
	if err != nil || n == nil {
		t.Fatalf("Handle: %v %v", n, err)
	}
	if n.Kind != domain.ActionStart || n.MessageID != "m1" || n.ChannelID != "c" {
		t.Fatalf("got %+v", n)
	}
}

func TestProcessor_PairsAcrossMessages(t *testing.T) {
	p, _, c := newProcessor(t, "")
	ctx := context.Background()
	n, err := p.Handle(ctx, msg("m1", "c", "Day 1!", c.Now()))
	if err != nil || n == nil || n.Kind != domain.ActionPending {
		t.Fatalf("first: %+v %v", n, err)
	}
	n, err = p.Handle(ctx, msg("m2", "c", "here is my code", c.Now().Add(time.Minute)))
	if err != nil || n == nil || n.Kind != domain.ActionStart || n.MessageID != "m2" {
		t.Fatalf("second: %+v %v", n, err)
	}
}

func TestProcessor_PairsProofThenDay(t *testing.T) {
	p, _, c := newProcessor(t, "streaks")
	ctx := context.Background()
	n, err := p.Handle(ctx, msg("m1", "general", "here is my code", c.Now()))
	if err != nil || n != nil {
		t.Fatalf("proof: %+v %v", n, err)
	}
	if p.Pairing.Len() != 1 {
		t.Fatalf("proof not buffered: len=%d", p.Pairing.Len())
	}
	n, err = p.Handle(ctx, msg("m2", "general", "day 1", c.Now().Add(time.Minute)))
	if err != nil || n == nil || n.Kind != domain.ActionStart || n.MessageID != "m2" {
		t.Fatalf("day: %+v %v", n, err)
	}
	if p.Pairing.Len() != 0 {
		t.Fatalf("buffer not drained: len=%d", p.Pairing.Len())
	}
}

func TestProcessor_IgnoresChatter(t *testing.T) {
	p, fc, c := newProcessor(t, "streaks")
	ctx := context.Background()
	n, err := p.Handle(ctx, msg("m1", "general", "hello there", c.Now()))
	if err != nil || n != nil {
		t.Fatalf("chatter: %+v %v", n, err)
	}
	if p.Pairing.Len() != 0 {
		t.Fatalf("chatter buffered: len=%d", p.Pairing.Len())
	}

	// Empty messages never reach the classifier.
	calls := fc.calls
	if n, _ := p.Handle(ctx, msg("m2", "general", "  ", c.Now())); n != nil || fc.calls != calls {
		t.Fatalf("empty: %+v calls=%d", n, fc.calls-calls)
	}
}

func TestProcessor_IgnoresBotsAndReplies(t *testing.T) {
	p, _, c := newProcessor(t, "")
	ev := msg("m1", "c", "day 1 code", c.Now())
	ev.IsBot = true
	if n, _ := p.Handle(context.Background(), ev); n != nil {
		t.Fatalf("bot message handled: %+v", n)
	}
	ev.IsBot, ev.IsReply = false, true
	if n, _ := p.Handle(context.Background(), ev); n != nil {
		t.Fatalf("reply handled: %+v", n)
	}
}

func TestProcessor_StandaloneProofInStreakChannel(t *testing.T) {
	p, _, c := newProcessor(t, "streaks")
	n, err := p.Handle(context.Background(), msg("m1", "streaks", "my code", c.Now()))
	if err != nil || n == nil || n.Kind != domain.ActionStart {
		t.Fatalf("got %+v %v", n, err)
	}
}

func TestProcessor_StreakChannelProofResolvesBeforeLaterDay(t *testing.T) {
	p, _, c := newProcessor(t, "streaks")
	ctx := context.Background()
	if n, err := p.Handle(ctx, msg("m1", "streaks", "my code", c.Now())); err != nil || n == nil || n.Kind != domain.ActionStart {
		t.Fatalf("proof: %+v %v", n, err)
	}
	n, err := p.Handle(ctx, msg("m2", "streaks", "day 3", c.Now().Add(time.Minute)))
	if err != nil || n == nil || n.Kind != domain.ActionPending {
		t.Fatalf("day after standalone proof: %+v %v", n, err)
	}
	n, err = p.Handle(ctx, msg("m3", "streaks", "more code", c.Now().Add(2*time.Minute)))
	if err != nil || n == nil || n.Kind != domain.ActionDuplicate {
		t.Fatalf("second proof: %+v %v", n, err)
	}
}

func TestProcessor_InvalidDay(t *testing.T) {
	p, fc, c := newProcessor(t, "")
	n, err := p.Handle(context.Background(), msg("m1", "c", "day 0 code", c.Now()))
	if err != nil || n == nil || n.Kind != domain.ActionInvalidDay {
		t.Fatalf("got %+v %v", n, err)
	}
	if fc.calls != 0 {
		t.Fatal("classifier called for invalid day")
	}
}

// ---------- importer ----------

type fakeSource struct {
	msgs map[string][]domain.Event
	fail map[string]error
	seen map[string]string
}

func (f *fakeSource) MessagesAfter(_ context.Context, channelID, afterID string, notBefore time.Time) ([]domain.Event, error) {
	if f.seen == nil {
		f.seen = map[string]string{}
	}
	f.seen[channelID] = afterID
	if err := f.fail[channelID]; err != nil {
		return nil, err
	}
	var out []domain.Event
	past := afterID == ""
	for _, m := range f.msgs[channelID] {
		if past && !m.CreatedAt.Before(notBefore) {
			out = append(out, m)
		}
		if m.MessageID == afterID {
			past = true
		}
	}
	return out, nil
}

func TestImporter_ReplaysHistory(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()
	now := c.Now()
	old := now.AddDate(0, 0, -3)

	src := &fakeSource{
		msgs: map[string][]domain.Event{
			"c1": {
				msg("1", "c1", "day 3", old),
				msg("2", "c1", "code", old.Add(time.Minute)),
				msg("3", "c1", "just chatting", old.Add(2*time.Minute)),
				msg("4", "c1", "day 1 code", now.Add(-time.Hour)),
				msg("5", "c1", "lunch?", now.Add(-time.Minute)),
			},
		},
		fail: map[string]error{"broken": errors.New("boom")},
	}
	im := &Importer{Streaks: svc, Classifier: &fakeClassifier{}, Source: src, MaxRetries: 1}

	rep, err := im.Run(ctx, []SourceChannel{{"100", "c1"}, {"100", "broken"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Channels != 2 || rep.Failed != 1 || rep.Messages != 5 || rep.Historical != 1 || rep.Live != 1 {
		t.Fatalf("report: %+v", rep)
	}

	e, err := repo.GetDailyEntry(ctx, svc.DB, "1", "100", domain.DateOf(old))
	if err != nil || e.DayNumber != 3 {
		t.Fatalf("historical entry: %+v %v", e, err)
	}
	r, err := repo.GetStreak(ctx, svc.DB, "1", "100")
	if err != nil || r.CurrentStreak != 1 {
		t.Fatalf("live record: %+v %v", r, err)
	}

	cur, err := repo.GetCursor(ctx, svc.DB, "100", "c1")
	if err != nil || cur != "5" {
		t.Fatalf("cursor: %q %v", cur, err)
	}
	if _, err := repo.GetCursor(ctx, svc.DB, "100", "broken"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("failed channel cursor moved: %v", err)
	}

	// A second run resumes after the cursor and finds nothing new.
	rep, err = im.Run(ctx, []SourceChannel{{"100", "c1"}})
	if err != nil || rep.Messages != 0 {
		t.Fatalf("rerun: %+v %v", rep, err)
	}
	if src.seen["c1"] != "5" {
		t.Fatalf("rerun after %q", src.seen["c1"])
	}
}

func TestImporter_PairsProofThenDay(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()
	old := c.Now().AddDate(0, 0, -2)
	src := &fakeSource{msgs: map[string][]domain.Event{
		"c1": {
			msg("1", "c1", "my code", old),
			msg("2", "c1", "day 7", old.Add(time.Minute)),
		},
	}}
	im := &Importer{Streaks: svc, Classifier: &fakeClassifier{}, Source: src}
	rep, err := im.Run(ctx, []SourceChannel{{"100", "c1"}})
	if err != nil || rep.Historical != 1 {
		t.Fatalf("report: %+v %v", rep, err)
	}
	e, err := repo.GetDailyEntry(ctx, svc.DB, "1", "100", domain.DateOf(old))
	if err != nil || e.DayNumber != 7 {
		t.Fatalf("entry: %+v %v", e, err)
	}
}

func TestImporter_LookbackBoundsFirstRun(t *testing.T) {
	svc, c := newTestService(t)
	now := c.Now()
	src := &fakeSource{msgs: map[string][]domain.Event{
		"c1": {
			msg("1", "c1", "day 1 code", now.AddDate(0, 0, -30)),
			msg("2", "c1", "day 5 code", now.AddDate(0, 0, -2)),
		},
	}}
	im := &Importer{Streaks: svc, Classifier: &fakeClassifier{}, Source: src, Lookback: 7 * 24 * time.Hour}
	rep, err := im.Run(context.Background(), []SourceChannel{{"100", "c1"}})
	if err != nil || rep.Messages != 1 || rep.Historical != 1 {
		t.Fatalf("report: %+v %v", rep, err)
	}
}
