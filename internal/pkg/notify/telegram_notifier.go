// Package notify pushes the overpriced report of a comparison to Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/tripprices/internal/comparator"
)

const (
	// Min interval between two messages to the same chat; Telegram answers 429 above ~30/min.
	telegramSendInterval = 2 * time.Second
	// Telegram rejects texts above 4096 characters; leave room for escapes.
	maxMessageLen = 3800
	queueSize     = 32
)

var _ comparator.Sink = (*TelegramNotifier)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier queues report messages and sends them in the background, spaced by
// the send interval so a large report does not trip the rate limit.
type TelegramNotifier struct {
	bot      sender
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	closed   bool
	lastSend time.Time

	queue chan string
	done  chan struct{}
}

// NewTelegramNotifier authenticates the bot and starts the sender.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram bot token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	slog.Info("Telegram notifier initialized", "bot", bot.Self.UserName, "chat_id", chatID)
	return newNotifier(bot, chatID, telegramSendInterval), nil
}

func newNotifier(bot sender, chatID int64, interval time.Duration) *TelegramNotifier {
	n := &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		interval: interval,
		queue:    make(chan string, queueSize),
		done:     make(chan struct{}),
	}
	go n.messageSender()
	return n
}

// Publish queues the overpriced report. Runs without overpriced rows send nothing.
func (n *TelegramNotifier) Publish(ctx context.Context, c *comparator.Comparison) error {
	if len(c.Overpriced) == 0 {
		return nil
	}
	for _, text := range FormatOverpriced(c) {
		if err := n.enqueue(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func (n *TelegramNotifier) enqueue(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errors.New("notifier stopped")
	}
	select {
	case n.queue <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		slog.Warn("Telegram message queue is full, dropping message", "preview", truncateString(text, 50))
		return errors.New("message queue is full")
	}
}

// Stop sends what is already queued and waits for the sender to exit.
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *TelegramNotifier) messageSender() {
	defer close(n.done)
	for text := range n.queue {
		if wait := n.interval - time.Since(n.lastSend); wait > 0 {
			time.Sleep(wait)
		}
		msg := tgbotapi.NewMessage(n.chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := n.bot.Send(msg)
		n.lastSend = time.Now()
		if err != nil {
			slog.Error("Telegram send: failed", "error", err, "preview", truncateString(text, 50))
			continue
		}
		slog.Info("Telegram send: success", "send_duration", time.Since(start), "queue_length", len(n.queue))
	}
}

// FormatOverpriced renders the report as MarkdownV2 messages, split so none exceeds
// the Telegram length limit.
func FormatOverpriced(c *comparator.Comparison) []string {
	header := fmt.Sprintf("*%s*\n%s\n\n",
		escapeMarkdown(fmt.Sprintf("Overpriced at %s: %d packages", c.Matrix.Primary, len(c.Overpriced))),
		escapeMarkdown("run "+c.RunID))

	var (
		messages []string
		b        strings.Builder
	)
	b.WriteString(header)
	for _, r := range c.Overpriced {
		entry := formatRow(c.Matrix.Primary, r)
		if b.Len()+len(entry) > maxMessageLen && b.Len() > len(header) {
			messages = append(messages, strings.TrimRight(b.String(), "\n"))
			b.Reset()
		}
		b.WriteString(entry)
	}
	return append(messages, strings.TrimRight(b.String(), "\n"))
}

func formatRow(primary string, r comparator.OverpricedRow) string {
	date := "date TBA"
	if !r.Undated {
		date = r.Date.Format("02.01.2006")
	}
	return fmt.Sprintf("*%s*  %s\n%s vs %s\n%s\n\n",
		escapeMarkdown(r.Label),
		escapeMarkdown(date),
		escapeMarkdown(fmt.Sprintf("%s %s", primary, formatPrice(r.PrimaryPrice, r.PrimaryNights))),
		escapeMarkdown(fmt.Sprintf("%s %s", r.CheapestSource, formatPrice(r.CheapestPrice, r.CheapestNights))),
		escapeMarkdown(fmt.Sprintf("+%.0f kr (+%.1f%%)", r.Diff, r.DiffPercent)),
	)
}

func formatPrice(price float64, nights int) string {
	if nights > 0 {
		return fmt.Sprintf("%.0f kr (%d n)", price, nights)
	}
	return fmt.Sprintf("%.0f kr", price)
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
