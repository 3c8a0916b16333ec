package discord

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// OpsPacing spaces consecutive webhook posts.
const OpsPacing = 2 * time.Second

// OpsNotifier posts operational alerts to a Discord webhook. A nil notifier
// drops alerts.
type OpsNotifier struct {
	hook     webhook.Client
	username string
	logger   zerolog.Logger
}

// NewOpsNotifier parses a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>. An empty URL yields a nil
// notifier.
func NewOpsNotifier(webhookURL, username string) (*OpsNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil || token == "" {
		return nil, err
	}
	return &OpsNotifier{
		hook:     webhook.New(id, token),
		username: username,
		logger:   log.With().Str("component", "ops-notifier").Logger(),
	}, nil
}

func parseWebhookURL(raw string) (snowflake.ID, string, error) {
	if raw == "" {
		return 0, "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", err
	}
	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("webhook url %q: missing id or token", raw)
	}
	id, err := snowflake.Parse(parts[len(parts)-2])
	if err != nil {
		return 0, "", fmt.Errorf("webhook url %q: %w", raw, err)
	}
	return id, parts[len(parts)-1], nil
}

// Alert sends an alert in the background. Failures are logged.
func (o *OpsNotifier) Alert(title, desc string) {
	if o == nil {
		return
	}
	go func() {
		if err := o.send(title, desc, ColorAlert); err != nil {
			o.logger.Error().Err(err).Str("title", title).Msg("send ops alert")
		}
	}()
}

// Info sends an informational message synchronously.
func (o *OpsNotifier) Info(title, desc string) error {
	if o == nil {
		return nil
	}
	return o.send(title, desc, ColorInfo)
}

func (o *OpsNotifier) send(title, desc string, color int) error {
	embed := discord.Embed{
		Title:       title,
		Description: desc,
		Type:        discord.EmbedTypeRich,
		Color:       color,
	}
	_, err := o.hook.CreateMessage(discord.NewWebhookMessageCreateBuilder().
		SetEmbeds(embed).
		SetUsername(o.username).
		Build(),
		rest.WithDelay(OpsPacing),
	)
	return err
}
