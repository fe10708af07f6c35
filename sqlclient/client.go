// Package sqlclient talks to a running heapsql server, over the framed TCP
// protocol (Client) or the HTTP API (HTTPClient).
package sqlclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuannm99/heapsql/internal/sql/executor"
	"github.com/tuannm99/heapsql/server/heapsqlwire"
)

var ErrNilClient = errors.New("sqlclient: nil client")

// ServerError is a statement failure reported by the server.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string { return e.Msg }

// Client is a synchronous client. Exec may be called concurrently; requests
// are serialized on the one connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// per-request timeout, 0 = none
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// SetRWTimeout sets a per-Exec read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Exec(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	if c == nil || c.conn == nil {
		return nil, ErrNilClient
	}

	reqID := c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	// idle connections must not expire
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	if err := heapsqlwire.WriteFrame(c.conn, heapsqlwire.ExecuteRequest{ID: reqID, SQL: sql}); err != nil {
		return nil, err
	}

	var resp heapsqlwire.ExecuteResponse
	if err := heapsqlwire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}

	if resp.ID != reqID {
		return nil, fmt.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, reqID)
	}
	if resp.Error != "" {
		return nil, &ServerError{Msg: resp.Error}
	}
	return resp.Result, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
