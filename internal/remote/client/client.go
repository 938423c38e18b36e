// Package client - HTTP-клиент API сервера. Реализует те же коллабораторы
// экранов, что и remote.Backend, поэтому экраны можно гонять против живого сервера.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig - параметры circuit breaker'а клиента.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig возвращает настройки по умолчанию.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Option настраивает клиента.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithLogger(l *zap.Logger) Option      { return func(c *Client) { c.logger = l } }
func WithBreaker(cfg BreakerConfig) Option { return func(c *Client) { c.breaker = cfg } }

// Client ходит в API через circuit breaker.
type Client struct {
	base    string
	http    *http.Client
	breaker BreakerConfig
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New создаёт клиента для сервера по адресу baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: DefaultBreakerConfig("optimistic-api"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := c.breaker
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
		// Окончательные ошибки (4xx) - ответ сервера, а не его сбой
		IsSuccessful: func(err error) bool {
			var failed *domain.OperationFailed
			if errors.As(err, &failed) {
				return !failed.Retryable
			}
			return err == nil
		},
	})
	return c
}

// State - текущее состояние breaker'а.
func (c *Client) State() gobreaker.State { return c.cb.State() }

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, op, method, path, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.OperationFailed{Op: op, Message: "service temporarily unavailable", Retryable: true, Err: err}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.OperationFailed{Op: op, Message: "network error", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.OperationFailed{Op: op, Message: "malformed response", Retryable: true, Err: err}
	}
	return nil
}

// decodeError восстанавливает OperationFailed из ответа сервера.
// 5xx - временный сбой, 4xx - окончательный.
func decodeError(op string, resp *http.Response) error {
	var body struct {
		Error     string `json:"error"`
		Op        string `json:"op"`
		Retryable bool   `json:"retryable"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Op != "" {
		op = body.Op
	}
	if body.Error == "" {
		body.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	var cause error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		cause = domain.ErrValidation
	case http.StatusNotFound:
		cause = domain.ErrNotFound
	case http.StatusConflict:
		cause = domain.ErrCommentsDisabled
	}
	return &domain.OperationFailed{
		Op:        op,
		Message:   body.Error,
		Retryable: resp.StatusCode >= http.StatusInternalServerError,
		Err:       cause,
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func pageQuery(req optimistic.PageRequest) url.Values {
	q := url.Values{}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	return q
}

// === Posts ===

func (c *Client) ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	var out []domain.Post
	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	err := c.do(ctx, remote.OpListPosts, http.MethodGet, withQuery("/posts", q), nil, &out)
	return out, err
}

func (c *Client) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	var out domain.Post
	err := c.do(ctx, remote.OpCreatePost, http.MethodPost, "/posts", in, &out)
	return out, err
}

func (c *Client) LikePost(ctx context.Context, id string, liked bool) error {
	return c.do(ctx, remote.OpLikePost, http.MethodPost, "/posts/"+url.PathEscape(id)+"/like", map[string]bool{"liked": liked}, nil)
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, remote.OpDeletePost, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetCommentsEnabled(ctx context.Context, postID string, enabled bool) (domain.Post, error) {
	var out domain.Post
	err := c.do(ctx, "toggleComments", http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments-enabled", map[string]bool{"enabled": enabled}, &out)
	return out, err
}

// === Comments ===

func (c *Client) LoadComments(ctx context.Context, postID string, req optimistic.PageRequest) ([]domain.Comment, error) {
	var out []domain.Comment
	err := c.do(ctx, remote.OpLoadComments, http.MethodGet, withQuery("/posts/"+url.PathEscape(postID)+"/comments", pageQuery(req)), nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	var out domain.Comment
	err := c.do(ctx, remote.OpCreateComment, http.MethodPost, "/comments", in, &out)
	return out, err
}

func (c *Client) LikeComment(ctx context.Context, id string, liked bool) error {
	return c.do(ctx, remote.OpLikeComment, http.MethodPost, "/comments/"+url.PathEscape(id)+"/like", map[string]bool{"liked": liked}, nil)
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, remote.OpDeleteComment, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil)
}

// === Todos ===

func (c *Client) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	var out []domain.Todo
	err := c.do(ctx, "listTodos", http.MethodGet, "/todos", nil, &out)
	return out, err
}

func (c *Client) CreateTodo(ctx context.Context, in domain.NewTodo) (domain.Todo, error) {
	var out domain.Todo
	err := c.do(ctx, remote.OpCreateTodo, http.MethodPost, "/todos", in, &out)
	return out, err
}

func (c *Client) ToggleTodo(ctx context.Context, id string, completed bool) error {
	return c.do(ctx, remote.OpToggleTodo, http.MethodPost, "/todos/"+url.PathEscape(id)+"/toggle", map[string]bool{"completed": completed}, nil)
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, remote.OpDeleteTodo, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

// === Items ===

func (c *Client) LoadItems(ctx context.Context, req optimistic.PageRequest) ([]domain.Item, error) {
	var out []domain.Item
	err := c.do(ctx, remote.OpLoadItems, http.MethodGet, withQuery("/items", pageQuery(req)), nil, &out)
	return out, err
}

func (c *Client) CreateItem(ctx context.Context, in domain.NewItem) (domain.Item, error) {
	var out domain.Item
	err := c.do(ctx, remote.OpCreateItem, http.MethodPost, "/items", in, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	var out domain.Item
	err := c.do(ctx, remote.OpUpdateItem, http.MethodPatch, "/items/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) LikeItem(ctx context.Context, id string, liked bool) error {
	return c.do(ctx, remote.OpLikeItem, http.MethodPost, "/items/"+url.PathEscape(id)+"/like", map[string]bool{"liked": liked}, nil)
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, remote.OpDeleteItem, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil)
}

// === Chat ===

func (c *Client) ListMessages(ctx context.Context) ([]domain.Message, error) {
	var out []domain.Message
	err := c.do(ctx, "listMessages", http.MethodGet, "/messages", nil, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, in domain.NewMessage) (domain.Exchange, error) {
	var out domain.Exchange
	err := c.do(ctx, remote.OpSendMessage, http.MethodPost, "/messages", in, &out)
	return out, err
}
