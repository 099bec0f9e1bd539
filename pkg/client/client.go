// Package client is a typed HTTP client for the taskboard API. It satisfies optimistic.Remote,
// so a coordinator can run against a remote server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
)

var codec = sonic.ConfigStd

type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request that has no earlier context deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{Name: "taskboard-client"},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status string              `json:"status"`
	Code   string              `json:"code"`
	Data   json.RawMessage     `json:"data"`
	Error  transport.ErrorBody `json:"error"`
}

type request struct {
	method  string
	path    string
	query   map[string]string
	body    interface{}
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + r.path)
	req.Header.SetMethod(r.method)
	for k, v := range r.query {
		req.URI().QueryArgs().Set(k, v)
	}
	for k, v := range r.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if reqID := appLogger.RequestID(ctx); reqID != "" {
		req.Header.Set(httpcontext.RequestIDHeader, reqID)
	}
	if r.body != nil {
		payload, err := codec.Marshal(r.body)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.WrapError(domain.ErrCodeStoreUnavailable, "taskboard server unreachable", err)
	}

	var env envelope
	if err := codec.Unmarshal(resp.Body(), &env); err != nil || env.Status == "" {
		return domain.NewError(domain.ErrCodeInternal, fmt.Sprintf("unexpected response: HTTP %d", resp.StatusCode()))
	}
	if env.Status == transport.StatusError {
		return &domain.Error{
			Code:    domain.ErrorCode(env.Code),
			Message: env.Error.Message,
			Field:   env.Error.Field,
		}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(env.Data, out)
}

func taskPath(id string) string  { return "/api/v1/tasks/" + url.PathEscape(id) }
func boardPath(id string) string { return "/api/v1/boards/" + url.PathEscape(id) }

func (c *Client) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	return c.FilterTasks(ctx, boardID, "")
}

// FilterTasks lists a board's tasks, optionally narrowed to one status.
func (c *Client) FilterTasks(ctx context.Context, boardID string, status domain.Status) ([]domain.Task, error) {
	query := map[string]string{transport.QueryBoardID: boardID}
	if status != "" {
		query[transport.QueryStatus] = string(status)
	}
	var tasks []domain.Task
	if err := c.do(ctx, request{method: fasthttp.MethodGet, path: "/api/v1/tasks", query: query}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, request{method: fasthttp.MethodGet, path: taskPath(id)}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask sends in.IdempotencyKey as the Idempotency-Key header.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, request{
		method:  fasthttp.MethodPost,
		path:    "/api/v1/tasks",
		body:    in,
		headers: map[string]string{transport.HeaderIdempotencyKey: in.IdempotencyKey},
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, in domain.TaskUpdateInput) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, request{method: fasthttp.MethodPatch, path: taskPath(id), body: in}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, request{method: fasthttp.MethodDelete, path: taskPath(id)}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	if err := c.do(ctx, request{method: fasthttp.MethodGet, path: "/api/v1/boards"}, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, request{method: fasthttp.MethodGet, path: boardPath(id)}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) CreateBoard(ctx context.Context, in domain.BoardInput) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, request{method: fasthttp.MethodPost, path: "/api/v1/boards", body: in}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) UpdateBoard(ctx context.Context, id string, in domain.BoardInput) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, request{method: fasthttp.MethodPatch, path: boardPath(id), body: in}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// DeleteBoard deletes the board and every task on it.
func (c *Client) DeleteBoard(ctx context.Context, id string) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, request{method: fasthttp.MethodDelete, path: boardPath(id)}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}
