package domain

// Action is the outcome of feeding one qualifying event through the streak
// state machine.
type Action int

const (
	// ActionNone means nothing happened (e.g. a historical entry was recorded).
	ActionNone Action = iota
	// ActionDuplicate means the user already logged today.
	ActionDuplicate
	// ActionStart begins a new streak at day 1.
	ActionStart
	// ActionContinue extends the streak by one day.
	ActionContinue
	// ActionGraceContinue extends the streak after a two-day gap.
	ActionGraceContinue
	// ActionReset breaks the streak after three or more inactive days.
	ActionReset
	// ActionDayMismatch breaks the streak because the declared day was wrong.
	ActionDayMismatch
	// ActionRejectNotDayOne refuses a first-ever entry that is not day 1.
	ActionRejectNotDayOne
	// ActionInvalidDay refuses an out-of-range day number.
	ActionInvalidDay
	// ActionHistorical records a backfilled entry for a past date.
	ActionHistorical
	// ActionPending means half of a day/proof pair was buffered.
	ActionPending
)

var actionNames = map[Action]string{
	ActionNone:            "none",
	ActionDuplicate:       "duplicate",
	ActionStart:           "start",
	ActionContinue:        "continue",
	ActionGraceContinue:   "grace_continue",
	ActionReset:           "reset",
	ActionDayMismatch:     "day_mismatch",
	ActionRejectNotDayOne: "reject_not_day_one",
	ActionInvalidDay:      "invalid_day",
	ActionHistorical:      "historical",
	ActionPending:         "pending",
}

// String returns a stable snake_case name, used in logs and metric labels.
func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Advances reports whether the action incremented the streak.
func (a Action) Advances() bool {
	return a == ActionStart || a == ActionContinue || a == ActionGraceContinue
}

// Breaks reports whether the action reset the streak.
func (a Action) Breaks() bool {
	return a == ActionReset || a == ActionDayMismatch
}

// Notification is what the chat layer renders after an event was handled.
// Which fields are meaningful depends on Kind.
type Notification struct {
	Kind      Action
	UserID    string
	GuildID   string
	ChannelID string
	MessageID string

	CurrentStreak int
	LongestStreak int
	// DayNumber is the day recorded (or already recorded, for duplicates).
	DayNumber int
	// NextDay is the day the user should post next.
	NextDay int

	// PreviousStreak is the streak length before a reset.
	PreviousStreak int
	// DaysInactive is the gap that caused a reset.
	DaysInactive int
	// Expected and Received describe a day mismatch.
	Expected int
	Received int
}
