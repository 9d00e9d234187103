// Package webapi - "тупой" HTTP клиент для внешних API инструментов.
//
// Даёт адаптерам (погода, котировки, курсы валют, цитаты) общий
// транспорт:
//   - retry при сетевых ошибках и 429
//   - rate limiting на каждый инструмент (golang.org/x/time/rate)
//   - timeout на каждый запрос
//   - классификация ошибок для логов
//
// Разбор ответов конкретных API остаётся в pkg/tools/std.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/poncho-chat/pkg/config"
)

// maxRetryAfter ограничивает ожидание по заголовку Retry-After.
const maxRetryAfter = 5 * time.Second

// ErrorType представляет тип ошибки при работе с внешним API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
	ErrNotFound
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	case ErrNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// StatusError - ответ с кодом, отличным от 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error: status %d, body: %s", e.StatusCode, e.Body)
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient    HTTPClient
	retryAttempts int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // tool ID → limiter
}

// New создаёт клиент из конфигурации upstream.
func New(cfg config.UpstreamConfig) *Client {
	cfg = cfg.GetDefaults()
	return NewWithHTTPClient(&http.Client{Timeout: cfg.Timeout}, cfg.RetryAttempts)
}

// NewWithHTTPClient создаёт клиент с произвольным HTTPClient (для тестов).
func NewWithHTTPClient(hc HTTPClient, retryAttempts int) *Client {
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &Client{
		httpClient:    hc,
		retryAttempts: retryAttempts,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Endpoint описывает один GET запрос инструмента.
type Endpoint struct {
	ToolID    string     // Ключ для выбора limiter
	BaseURL   string     // Например "https://finnhub.io"
	Path      string     // Например "/api/v1/quote"
	Query     url.Values // Может быть nil
	RateLimit int        // Запросов в минуту
	Burst     int
}

// GetJSON выполняет GET запрос и декодирует JSON ответ в dest.
func (c *Client) GetJSON(ctx context.Context, ep Endpoint, dest any) error {
	if ep.BaseURL == "" {
		return fmt.Errorf("baseURL is required (tool should provide value from config)")
	}
	if ep.RateLimit <= 0 || ep.Burst <= 0 {
		return fmt.Errorf("rateLimit and burst must be positive (tool should provide value from config)")
	}

	u, err := url.Parse(strings.TrimSuffix(ep.BaseURL, "/") + ep.Path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if ep.Query != nil {
		u.RawQuery = ep.Query.Encode()
	}

	return c.doRequest(ctx, ep, u.String(), dest)
}

// doRequest выполняет HTTP запрос с retry логикой и rate limiting.
func (c *Client) doRequest(ctx context.Context, ep Endpoint, target string, dest any) error {
	limiter := c.getOrCreateLimiter(ep.ToolID, ep.RateLimit, ep.Burst)

	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		// Ждем разрешения от лимитера (блокирует горутину, если превысили лимит)
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue // Сетевая ошибка, пробуем еще
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
			if i == c.retryAttempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp.Header)):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}

// retryAfter читает Retry-After (в секундах); дефолт - 1 секунда.
func retryAfter(h http.Header) time.Duration {
	wait := 1 * time.Second
	if s := h.Get("Retry-After"); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
			wait = time.Duration(sec) * time.Second
		}
	}
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}

// getOrCreateLimiter возвращает существующий limiter для toolID или создаёт новый.
//
// rateLimit в запросах/минуту → rate.Limit в запросах/секунду.
func (c *Client) getOrCreateLimiter(toolID string, rateLimit int, burst int) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[toolID]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(float64(rateLimit)/60.0), burst)
	c.limiters[toolID] = limiter
	return limiter
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuthFailed
		case http.StatusTooManyRequests:
			return ErrRateLimit
		case http.StatusNotFound:
			return ErrNotFound
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout"), strings.Contains(errMsg, "deadline exceeded"):
		return ErrTimeout
	case strings.Contains(errMsg, "connection refused"), strings.Contains(errMsg, "no such host"):
		return ErrNetwork
	}

	return ErrUnknown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
