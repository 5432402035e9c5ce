package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/resilience"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const (
	defaultRequestTimeout = 10 * time.Second
	// Telegram allows about one message per second to the same chat.
	defaultRate  = rate.Limit(1)
	defaultBurst = 3
)

// Telegram errors.
var (
	// ErrSendFailed is returned when the Bot API rejects or fails a send.
	ErrSendFailed = errors.New("telegram: send failed")

	// ErrUnauthorized is returned when the bot token is rejected.
	ErrUnauthorized = errors.New("telegram: bot token rejected")
)

// Notifier sends messages to one chat.
//
// Thread Safety: SendNotification is safe for concurrent use.
type Notifier struct {
	token   string
	chatID  string
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	logger  adapter.Logger
}

var _ domain.Notifier = (*Notifier)(nil)

// Option configures a Notifier.
type Option func(*Notifier)

// WithAPIURL points the notifier at another Bot API server.
func WithAPIURL(u string) Option {
	return func(n *Notifier) { n.apiURL = strings.TrimRight(u, "/") }
}

// WithRateLimit overrides the send rate.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(n *Notifier) { n.limiter = rate.NewLimiter(r, burst) }
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(n *Notifier) { n.retry = cfg }
}

// New creates a notifier for cfg.
func New(cfg *adapter.TelegramNotifierConfig, logger adapter.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	n := &Notifier{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		apiURL:  DefaultAPIURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
		retry:   resilience.DefaultRetryConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendNotification implements domain.Notifier.
func (n *Notifier) SendNotification(ctx context.Context, title, message string) error {
	text, truncated := formatMessage(title, message)
	if truncated {
		n.logger.Warn("telegram message truncated", "chat_id", n.chatID)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrSendFailed, err)
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: text, ParseMode: "MarkdownV2"})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	retry := n.retry
	retry.OnRetry = func(err error, wait time.Duration) {
		n.logger.Warn("telegram send failed, retrying", "chat_id", n.chatID, "error", err, "wait", wait)
	}
	err = resilience.Retry(ctx, retry, func() error { return n.send(ctx, body) })
	if err != nil {
		n.logger.Error("telegram notification not delivered", "chat_id", n.chatID, "error", err)
		return err
	}
	n.logger.Debug("telegram notification sent", "chat_id", n.chatID)
	return nil
}

func (n *Notifier) send(ctx context.Context, body []byte) error {
	url := n.apiURL + "/bot" + n.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return resilience.Permanent(fmt.Errorf("%w: %w", ErrSendFailed, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		// The URL contains the token; report only the transport failure.
		var uerr interface{ Unwrap() error }
		if errors.As(err, &uerr) {
			err = uerr.Unwrap()
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return resilience.Permanent(fmt.Errorf("%w: decoding response: %w", ErrSendFailed, err))
	}
	if resp.StatusCode == http.StatusOK && out.OK {
		return nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resilience.Permanent(ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, out.Description)
	default:
		return resilience.Permanent(fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, out.Description))
	}
}

// Factory builds a Notifier (notifier/telegram).
func Factory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.TelegramNotifierConfig](req, nil)
	if err != nil {
		return nil, err
	}
	return New(cfg, req.Logger), nil
}
