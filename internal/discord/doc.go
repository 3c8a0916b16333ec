// Package discord adapts the streak pipeline to Discord using disgo.
//
// Inbound guild messages are converted to domain.Event and handed to the
// services.Processor; the resulting notification is acknowledged with a
// reaction and, unless the user opted out of mentions, an embed reply.
// Slash commands are declared in a static table (see commands.go) that also
// drives /help. The package additionally implements the scheduler.Sender,
// scheduler.SnippetSource and services.HistorySource interfaces on top of
// the REST client, and an optional webhook notifier for operator alerts.
package discord
