package discord

import (
	"context"
	"strings"
	"sync"
)

// ChannelDirectory tracks each guild's streak channel. It is filled from
// guild settings on startup, by name discovery when no channel is set, and
// by /setstreakchannel.
type ChannelDirectory struct {
	// FallbackName matches channels by name when a guild has no setting.
	FallbackName string

	mu      sync.RWMutex
	byGuild map[string]string
}

// NewChannelDirectory returns an empty directory.
func NewChannelDirectory(fallbackName string) *ChannelDirectory {
	return &ChannelDirectory{FallbackName: strings.ToLower(fallbackName), byGuild: make(map[string]string)}
}

// Set records guildID's streak channel. An empty channelID removes it.
func (d *ChannelDirectory) Set(guildID, channelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if channelID == "" {
		delete(d.byGuild, guildID)
		return
	}
	d.byGuild[guildID] = channelID
}

// Get returns guildID's streak channel.
func (d *ChannelDirectory) Get(guildID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byGuild[guildID]
	return id, ok
}

// IsStreakChannel implements services.ChannelPredicate.
func (d *ChannelDirectory) IsStreakChannel(guildID, channelID string) bool {
	id, ok := d.Get(guildID)
	return ok && id == channelID
}

// MatchesName reports whether a channel name is the fallback streak channel
// name (case-insensitive, leading '#' ignored).
func (d *ChannelDirectory) MatchesName(name string) bool {
	return d.FallbackName != "" && strings.EqualFold(strings.TrimPrefix(name, "#"), d.FallbackName)
}

// All returns a snapshot of guild → channel.
func (d *ChannelDirectory) All() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.byGuild))
	for g, c := range d.byGuild {
		out[g] = c
	}
	return out
}

// LoadChannels fills the directory from stored guild settings, so backfill
// and scheduling work before the gateway reports guilds.
func (b *Bot) LoadChannels(ctx context.Context) error {
	guilds, err := b.Settings.Guilds(ctx)
	if err != nil {
		return err
	}
	for _, g := range guilds {
		if g.StreakChannelID != "" {
			b.Channels.Set(g.GuildID, g.StreakChannelID)
		}
	}
	return nil
}
