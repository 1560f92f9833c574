// Package telegram provides a client for sending signal notifications via
// the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cryptomagiciian/sali-bot/internal/models"
)

// SignalSource answers bot queries for recently persisted signals.
type SignalSource interface {
	TopSignals(limit int) ([]models.Signal, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	signals        SignalSource
}

// NewClient creates a new Telegram client. signals may be nil to disable
// the /signals command.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, signals SignalSource) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		signals:        signals,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when
// ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	case "signals":
		if c.signals == nil {
			return
		}
		sigs, err := c.signals.TopSignals(5)
		if err != nil || len(sigs) == 0 {
			reply := tgbotapi.NewMessage(msg.Chat.ID, "No signals recorded yet")
			c.bot.Send(reply) //nolint:errcheck
			return
		}
		var b strings.Builder
		b.WriteString("Top signals by score:\n")
		for i, s := range sigs {
			fmt.Fprintf(&b, "%d. %s edge %+.1f%% conf %.0f%% score %.3f\n",
				i+1, s.Ticker, s.Edge*100, s.Confidence*100, s.SignalScore)
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, b.String())
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Cycle error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Polling recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendSignal sends a single watchlist-mode signal.
func (c *Client) SendSignal(sig models.Signal) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *Signal: %s*\n", escapeMarkdownV2(truncate(sig.Title, 80)))
	fmt.Fprintf(&b, "`%s`\n", escapeMarkdownV2(sig.Ticker))
	fmt.Fprintf(&b, "edge *%s* \\| conf %s \\| score %s\n",
		escapeMarkdownV2(fmt.Sprintf("%+.1f%%", sig.Edge*100)),
		escapeMarkdownV2(fmt.Sprintf("%.0f%%", sig.Confidence*100)),
		escapeMarkdownV2(fmt.Sprintf("%.3f", sig.SignalScore)))
	for _, w := range sig.Why {
		fmt.Fprintf(&b, "• %s\n", escapeMarkdownV2(w))
	}
	return c.sendMarkdownV2(b.String())
}

// SendPicks sends one aggregated notification with the cycle's ranked
// picks grouped by category.
func (c *Client) SendPicks(picks []models.CategoryPicks) error {
	return c.sendMarkdownV2(c.formatPicks(picks))
}

func (c *Client) formatPicks(picks []models.CategoryPicks) string {
	var b strings.Builder
	b.WriteString("📊 *Category Picks*\n\n")

	for _, group := range picks {
		if len(group.Signals) == 0 {
			continue
		}
		fmt.Fprintf(&b, "*%s*\n", escapeMarkdownV2(group.Category))
		for _, sig := range group.Signals {
			title := truncate(sig.Title, 50)
			if title == "" {
				title = sig.Ticker
			}
			fmt.Fprintf(&b, "`%s` — %s\n", escapeMarkdownV2(sig.Ticker), escapeMarkdownV2(title))
			fmt.Fprintf(&b, "   %s → %s \\| edge *%s* \\| conf %s \\| score %s\n",
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", sig.PMarket*100)),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", sig.PModel*100)),
				escapeMarkdownV2(fmt.Sprintf("%+.1f%%", sig.Edge*100)),
				escapeMarkdownV2(fmt.Sprintf("%.0f%%", sig.Confidence*100)),
				escapeMarkdownV2(fmt.Sprintf("%.3f", sig.SignalScore)))
			if len(sig.MatchedKeywords) > 0 {
				kws := sig.MatchedKeywords
				if len(kws) > 5 {
					kws = kws[:5]
				}
				fmt.Fprintf(&b, "   matched: %s\n", escapeMarkdownV2(strings.Join(kws, ", ")))
			}
			why := sig.Why
			if len(why) > 3 {
				why = why[:3]
			}
			for _, w := range why {
				fmt.Fprintf(&b, "   • %s\n", escapeMarkdownV2(w))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
