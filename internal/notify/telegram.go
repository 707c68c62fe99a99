// Package notify отправляет служебные уведомления администраторам панели.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultAPIURL задаёт адрес Telegram Bot API по умолчанию.
const DefaultAPIURL = "https://api.telegram.org"

const (
	sendTimeout     = 15 * time.Second
	maxResponseSize = 64 << 10
)

// Notifier отправляет текстовые сообщения без блокировки вызывающего.
type Notifier interface {
	Notify(text string)
}

// Noop игнорирует все сообщения.
type Noop struct{}

// Notify ничего не делает.
func (Noop) Notify(string) {}

// Telegram отправляет сообщения в чат через Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *retryablehttp.Client
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// New возвращает Telegram-уведомления или Noop, если токен или чат не заданы.
func New(baseURL, token, chatID string, logger *zap.Logger) Notifier {
	if token == "" || chatID == "" {
		return Noop{}
	}
	return NewTelegram(baseURL, token, chatID, logger)
}

// NewTelegram создаёт клиент Bot API с ограниченным числом повторов.
func NewTelegram(baseURL, token, chatID string, logger *zap.Logger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = leveledLogger{logger.Sugar().Named("telegram")}

	return &Telegram{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  client,
		logger:  logger,
	}
}

// Notify отправляет сообщение в фоне. Ошибки только логируются.
func (t *Telegram) Notify(text string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := t.Send(ctx, text); err != nil {
			t.logger.Warn("failed to send telegram message", zap.Error(err))
		}
	}()
}

// Wait дожидается завершения отправки всех сообщений.
func (t *Telegram) Wait() {
	t.wg.Wait()
}

// Send синхронно отправляет сообщение в чат.
func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	res := gjson.ParseBytes(data)
	if resp.StatusCode != http.StatusOK || !res.Get("ok").Bool() {
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, res.Get("description").String())
	}

	return nil
}

// leveledLogger передаёт сообщения retryablehttp в zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) { l.s.Errorw(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...any)  { l.s.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...any)  { l.s.Warnw(msg, keysAndValues...) }
