package sqlclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tuannm99/heapsql/internal/httpapi"
	"github.com/tuannm99/heapsql/internal/sql/executor"
)

const (
	execEndpoint   = "/v1/exec"
	tablesEndpoint = "/v1/tables"
	healthEndpoint = "/healthz"
)

// HTTPClient calls the HTTP API of a heapsql server.
type HTTPClient struct {
	client *resty.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &HTTPClient{client: c}
}

func (c *HTTPClient) Exec(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *HTTPClient) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	var (
		res     executor.Result
		failure httpapi.ErrorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(httpapi.ExecRequest{SQL: sql}).
		SetResult(&res).
		SetError(&failure).
		Post(execEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		if failure.Error == "" {
			return nil, fmt.Errorf("sqlclient: %s", resp.Status())
		}
		return nil, &ServerError{Msg: failure.Error}
	}
	return &res, nil
}

func (c *HTTPClient) Tables(ctx context.Context) ([]string, error) {
	var out httpapi.TablesResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get(tablesEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sqlclient: %s", resp.Status())
	}
	return out.Tables, nil
}

// Ping reports whether the server answers its health check.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get(healthEndpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("sqlclient: health check: %s", resp.Status())
	}
	return nil
}
