package domain

import (
	"path"
	"strings"
	"time"
)

// Attachment is a file attached to an inbound message.
type Attachment struct {
	Filename    string
	ContentType string
	URL         string
	Size        int
}

// Ext returns the lower-cased filename extension without the dot.
func (a Attachment) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(a.Filename)), ".")
}

// IsImage reports whether the attachment declares an image content type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// Event is a chat message as seen by the streak pipeline, independent of the
// chat platform that delivered it.
type Event struct {
	MessageID   string
	AuthorID    string
	GuildID     string
	ChannelID   string
	Text        string
	Attachments []Attachment
	CreatedAt   time.Time
	IsBot       bool
	// IsReply is set for messages that reference another message.
	IsReply bool
}

// Date returns the UTC calendar date the event was posted on.
func (e Event) Date() Date { return DateOf(e.CreatedAt) }
