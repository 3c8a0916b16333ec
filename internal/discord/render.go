package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"

	"github.com/tbourn/go-streak-bot/internal/domain"
	"github.com/tbourn/go-streak-bot/internal/fun"
	"github.com/tbourn/go-streak-bot/internal/repo"
	"github.com/tbourn/go-streak-bot/internal/scheduler"
	"github.com/tbourn/go-streak-bot/internal/services"
)

// Embed colors.
const (
	ColorInfo    = 3447003
	ColorOk      = 3581519
	ColorFire    = 15105570
	ColorFrozen  = 1752220
	ColorWarning = 16776960
	ColorAlert   = 16711712
	ColorGold    = 15844367
	ColorPurple  = 10181046
)

// Reaction emojis.
const (
	EmojiFire    = "🔥"
	EmojiFrozen  = "🧊"
	EmojiReset   = "🔄"
	EmojiWarning = "⚠️"
	EmojiDone    = "✅"
	EmojiPending = "⏳"
)

// Mention formats a user mention.
func Mention(userID string) string { return "<@" + userID + ">" }

// ChannelMention formats a channel mention.
func ChannelMention(channelID string) string { return "<#" + channelID + ">" }

// Reaction returns the emoji acknowledging a handled message, or "" when the
// message gets no reaction.
func Reaction(a domain.Action) string {
	switch a {
	case domain.ActionStart, domain.ActionContinue:
		return EmojiFire
	case domain.ActionGraceContinue:
		return EmojiFrozen
	case domain.ActionReset, domain.ActionDayMismatch:
		return EmojiReset
	case domain.ActionRejectNotDayOne, domain.ActionInvalidDay:
		return EmojiWarning
	case domain.ActionDuplicate:
		return EmojiDone
	case domain.ActionPending:
		return EmojiPending
	default:
		return ""
	}
}

// NotificationEmbed renders the reply for a streak notification. ok is false
// for notifications that are acknowledged with a reaction only.
func NotificationEmbed(n domain.Notification) (embed discord.Embed, ok bool) {
	who := Mention(n.UserID)
	b := discord.NewEmbedBuilder()
	switch n.Kind {
	case domain.ActionStart:
		b.SetTitle("🎉 Streak Started!").
			SetDescriptionf("%s started their coding journey!", who).
			SetColor(ColorOk).
			AddField("Current Streak", "1 day", true).
			AddField("Next", dayTag(n.NextDay), true)
	case domain.ActionContinue:
		b.SetTitle("🔥 Streak Updated!").
			SetDescriptionf("%s is on fire!", who).
			SetColor(ColorFire).
			AddField("Current Streak", days(n.CurrentStreak), true).
			AddField("Longest Streak", days(n.LongestStreak), true).
			AddField("Next", dayTag(n.NextDay), true)
	case domain.ActionGraceContinue:
		b.SetTitle("🧊 Streak Frozen - Last Day Warning!").
			SetDescriptionf("%s, you made it just in time! Your streak was about to break.", who).
			SetColor(ColorFrozen).
			AddField("Current Streak", days(n.CurrentStreak), true).
			AddField("Next", dayTag(n.NextDay), true).
			SetFooterText("Post tomorrow to stay safe. Missing two days in a row resets your streak.")
	case domain.ActionReset:
		b.SetTitle("🔄 Streak Reset").
			SetDescriptionf("%s, your streak has been reset after %d days of inactivity.", who, n.DaysInactive).
			SetColor(ColorAlert).
			AddField("Previous Streak", days(n.PreviousStreak), true).
			AddField("Start Again", dayTag(1), true)
	case domain.ActionDayMismatch:
		b.SetTitle("🔄 Streak Reset").
			SetDescriptionf("%s, your streak has been reset.", who).
			SetColor(ColorAlert).
			AddField("Expected", dayTag(n.Expected), true).
			AddField("Received", dayTag(n.Received), true).
			AddField("Previous Streak", days(n.PreviousStreak), true).
			SetFooterText("Start again with #DAY-1")
	case domain.ActionRejectNotDayOne:
		b.SetTitle("⚠️ Start with Day 1").
			SetDescriptionf("%s, please start your streak with #DAY-1", who).
			SetColor(ColorWarning)
	case domain.ActionInvalidDay:
		b.SetTitle("⚠️ Invalid Day Number").
			SetDescriptionf("%s, day %d is not a valid day number.", who, n.Received).
			SetColor(ColorWarning)
	case domain.ActionDuplicate:
		desc := fmt.Sprintf("%s, you've already completed your streak for today! Come back tomorrow to continue.", who)
		if n.DayNumber > 0 {
			desc = fmt.Sprintf("%s, you've already completed %s today! Come back tomorrow to continue your streak.", who, dayTag(n.DayNumber))
		}
		b.SetTitle("✅ Already Completed").SetDescription(desc).SetColor(ColorInfo)
	default:
		return discord.Embed{}, false
	}
	return b.Build(), true
}

// LeaderboardEmbed renders /leaderboard.
func LeaderboardEmbed(guildName string, entries []services.LeaderboardEntry) discord.Embed {
	b := discord.NewEmbedBuilder().
		SetTitle("🏆 Top Coding Streaks").
		SetDescriptionf("Leading coders in %s", guildName).
		SetColor(ColorGold)
	if len(entries) == 0 {
		b.SetDescription("No streaks yet. Post your first #DAY-1 to get on the board!")
		return b.Build()
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s · **%s** (best %s) · %s\n",
			medal(e.Rank), Mention(e.UserID), days(e.CurrentStreak), days(e.LongestStreak), e.Badge)
	}
	b.AddField("Rankings", sb.String(), false)
	return b.Build()
}

// StatsEmbed renders /mystats.
func StatsEmbed(username string, st *services.UserStats) discord.Embed {
	b := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📊 %s's Coding Stats", username)).
		SetColor(ColorInfo).
		AddField("Current Streak", days(st.Record.CurrentStreak), true).
		AddField("Longest Streak", days(st.Record.LongestStreak), true).
		AddField("Server Rank", fmt.Sprintf("#%d", st.Rank), true).
		AddField("Total Days Logged", fmt.Sprintf("%d", st.TotalDays), true).
		AddField("Freezes", fmt.Sprintf("%d 🧊", st.Freezes), true).
		AddField("Badge", st.Badge, true)
	if st.NextGoal > 0 {
		b.AddField("Next Goal", fmt.Sprintf("%s (%d to go)", days(st.NextGoal), st.NextGoal-st.Record.CurrentStreak), false)
	}
	if st.LoggedToday {
		b.SetFooterText("✅ Logged today")
	} else {
		b.SetFooterText(fmt.Sprintf("Post %s today to keep going", dayTag(st.Record.LastDayNumber+1)))
	}
	return b.Build()
}

// HistoryEmbed renders /history.
func HistoryEmbed(username string, entries []domain.DailyLogEntry, total int64) discord.Embed {
	b := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📅 %s's Streak History", username)).
		SetColor(ColorInfo)
	if len(entries) == 0 {
		return b.SetDescription("No days logged yet.").Build()
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "`%s` · %s\n", e.LogDate, dayTag(e.DayNumber))
	}
	b.SetDescription(sb.String()).SetFooterText(fmt.Sprintf("Showing %d of %d logged days", len(entries), total))
	return b.Build()
}

// ServerStatsEmbed renders /serverstats.
func ServerStatsEmbed(guildName string, s repo.GuildStats) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📈 %s Stats", guildName)).
		SetColor(ColorPurple).
		AddField("Coders", fmt.Sprintf("%d", s.TotalUsers), true).
		AddField("Active Today", fmt.Sprintf("%d", s.ActiveToday), true).
		AddField("Activity Rate", fmt.Sprintf("%.1f%%", s.ActivityRate), true).
		AddField("Total Days Logged", fmt.Sprintf("%d", s.TotalDays), true).
		AddField("Average Streak", fmt.Sprintf("%.1f days", s.AverageStreak), true).
		AddField("Top Streak", days(s.TopStreak), true).
		Build()
}

// ReminderContent renders the daily reminder. Users who opted out of
// mentions are counted but not pinged.
func ReminderContent(targets []repo.ReminderTarget) string {
	var mentions []string
	quiet := 0
	for _, t := range targets {
		if t.OptOutMentions != nil && *t.OptOutMentions {
			quiet++
			continue
		}
		mentions = append(mentions, Mention(t.UserID))
	}
	var sb strings.Builder
	sb.WriteString("⏰ **Daily reminder!** Don't forget to post today's code and keep your streak alive.")
	if len(mentions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(mentions, " "))
	}
	if quiet > 0 {
		fmt.Fprintf(&sb, "\n…and %d more coder(s) still to post.", quiet)
	}
	return sb.String()
}

// ChallengeEmbed renders the weekly or on-demand challenge.
func ChallengeEmbed(text string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("💡 Weekly Coding Challenge").
		SetDescription(text).
		SetColor(ColorPurple).
		SetFooterText("Share your solution with today's #DAY post!").
		Build()
}

// SummaryEmbed renders the weekly leaderboard summary.
func SummaryEmbed(s scheduler.Summary) discord.Embed {
	b := discord.NewEmbedBuilder().
		SetTitle("📣 Weekly Streak Summary").
		SetDescriptionf("Week %s", s.Week).
		SetColor(ColorGold)
	var sb strings.Builder
	for _, e := range s.Top {
		fmt.Fprintf(&sb, "%s %s · %s\n", medal(e.Rank), Mention(e.UserID), days(e.CurrentStreak))
	}
	if sb.Len() > 0 {
		b.AddField("Top Streaks", sb.String(), false)
	}
	b.AddField("Active Today", fmt.Sprintf("%d of %d", s.Stats.ActiveToday, s.Stats.TotalUsers), true).
		AddField("Average Streak", fmt.Sprintf("%.1f days", s.Stats.AverageStreak), true)
	return b.Build()
}

// MemeEmbed renders /meme.
func MemeEmbed(m *fun.Meme) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(m.Title).
		SetImage(m.URL).
		SetColor(ColorPurple).
		SetFooterText(fmt.Sprintf("👍 %d upvotes | r/%s", m.Ups, m.Subreddit)).
		Build()
}

// QuoteEmbed renders /quote.
func QuoteEmbed(q *fun.Quote) discord.Embed {
	author := q.Author
	if author == "" {
		author = "Unknown"
	}
	return discord.NewEmbedBuilder().
		SetDescriptionf("*\"%s\"*", q.Content).
		SetAuthorName(author).
		SetColor(ColorInfo).
		SetFooterText("💡 Stay motivated!").
		Build()
}

// JokeEmbed renders /joke.
func JokeEmbed(j *fun.Joke) discord.Embed {
	b := discord.NewEmbedBuilder().SetTitle("😄 Programming Joke").SetColor(ColorOk)
	if j.Joke != "" {
		b.SetDescription(j.Joke)
	} else {
		b.AddField("Setup", j.Setup, false).AddField("Punchline", j.Delivery, false)
	}
	return b.SetFooterText("Laugh and code on! 😊").Build()
}

// GreetingEmbed is the reply when the bot is mentioned.
func GreetingEmbed() discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("👋 Hi, I track daily coding streaks!").
		SetDescription("Post your code with a day tag like `#DAY-1` in the streak channel. " +
			"Code blocks, source files and screenshots of code all count. Use `/help` for every command.").
		SetColor(ColorInfo).
		Build()
}

// ErrorText maps service errors to user-facing text.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, services.ErrNoStreak):
		return "You don't have a streak yet. Post `#DAY-1` with your code to start one!"
	case errors.Is(err, services.ErrNoFreezes):
		return "🧊 You have no streak freezes left."
	case errors.Is(err, services.ErrFreezeNotNeeded):
		return "✅ Your streak is safe. No freeze needed!"
	case errors.Is(err, services.ErrStreakBroken):
		return "🔄 Your streak has already been reset. A freeze can't bring it back."
	case errors.Is(err, services.ErrInvalidDayNumber):
		return "⚠️ That day number is out of range."
	case errors.Is(err, services.ErrInvalidAmount):
		return fmt.Sprintf("⚠️ Amount must be between 1 and %d.", services.MaxFreezeGrant)
	case errors.Is(err, services.ErrInvalidReminderTime):
		return "⚠️ Time must be in 24h HH:MM format, for example 18:00."
	case errors.Is(err, services.ErrInvalidTimezone):
		return "⚠️ Unknown timezone. Use an IANA name such as Europe/Athens."
	case errors.Is(err, fun.ErrUnavailable):
		return "❌ Couldn't fetch that right now. Try again later!"
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func dayTag(n int) string { return fmt.Sprintf("#DAY-%d", n) }

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("**%d.**", rank)
	}
}

// ModerationEmbed renders the result of a moderation command. duration is
// omitted when empty.
func ModerationEmbed(title, desc string, color int, moderatorID, reason, duration string) discord.Embed {
	eb := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(desc).
		SetColor(color).
		AddField("Moderator", Mention(moderatorID), true)
	if duration != "" {
		eb.AddField("Duration", duration, true)
	}
	return eb.AddField("Reason", reason, false).Build()
}

// PollEmbed renders a reaction poll; option i is voted with PollEmojis[i].
func PollEmbed(question string, options []string, author string) discord.Embed {
	eb := discord.NewEmbedBuilder().
		SetTitle("📊 Poll").
		SetDescription(question).
		SetColor(ColorInfo)
	for i, o := range options {
		eb.AddField(fmt.Sprintf("%s Option %d", PollEmojis[i], i+1), o, false)
	}
	return eb.SetFooterText("Poll created by " + author).Build()
}
