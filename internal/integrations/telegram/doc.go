// Package telegram sends notifications through the Telegram Bot API.
//
// Messages are formatted as MarkdownV2 with a bold title and truncated to
// Telegram's 4096 character limit. Sends are rate limited per notifier and
// retried on transient failures.
package telegram
