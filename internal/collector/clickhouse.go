package collector

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ppiankov/pipeaudit/pkg/config"
)

// Querier runs a parameterless SELECT and decodes every row into dest,
// which must be a pointer to a slice of structs with `ch` tags.
type Querier interface {
	Select(ctx context.Context, dest any, query string) error
}

// Client is the ClickHouse query client shared by all collectors of a run
type Client struct {
	conn     driver.Conn
	endpoint string
	limiter  *RateLimiter
}

// NewClient opens an HTTP connection handle to cfg.Endpoint. The handle is
// lazy; call Ping to verify reachability and credentials.
func NewClient(cfg *config.Config) (*Client, error) {
	addr, secure, path, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	opts := &clickhouse.Options{
		Protocol: clickhouse.HTTP,
		Addr:     []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		HttpUrlPath: path,
		// Readonly users reject SET statements, so no session settings are sent.
		Settings: nil,
	}
	if secure {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, &ConnectError{Endpoint: cfg.Endpoint, Err: err}
	}

	slog.Debug("clickhouse client created",
		slog.String("addr", addr),
		slog.Bool("tls", secure),
		slog.String("database", cfg.Database),
	)

	return &Client{
		conn:     conn,
		endpoint: cfg.Endpoint,
		limiter:  NewRateLimiter(cfg.MaxQPS),
	}, nil
}

// Endpoint returns the endpoint the client was built for.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Select implements Querier.
func (c *Client) Select(ctx context.Context, dest any, query string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return c.conn.Select(ctx, dest, query)
}

// Ping verifies the server answers SELECT 1. Any failure is a *ConnectError.
func (c *Client) Ping(ctx context.Context) error {
	if err := Ping(ctx, c); err != nil {
		return &ConnectError{Endpoint: c.endpoint, Auth: IsAuthError(err), Err: err}
	}
	return nil
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type pingRow struct {
	Result uint8 `ch:"result"`
}

const pingSQL = "SELECT 1 AS result"

// Ping executes SELECT 1 AS result through q.
func Ping(ctx context.Context, q Querier) error {
	row, err := FetchOne[pingRow](ctx, q, pingSQL)
	if err != nil {
		return err
	}
	if row.Result != 1 {
		return fmt.Errorf("%w: got %d", ErrUnexpectedPing, row.Result)
	}
	return nil
}

// FetchAll executes query and decodes every row into T.
func FetchAll[T any](ctx context.Context, q Querier, query string) ([]T, error) {
	rows := []T{}
	if err := q.Select(ctx, &rows, query); err != nil {
		return nil, wrapSelectError(query, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// FetchOne executes query and expects exactly one row.
func FetchOne[T any](ctx context.Context, q Querier, query string) (T, error) {
	var zero T
	rows, err := FetchAll[T](ctx, q, query)
	if err != nil {
		return zero, err
	}
	if len(rows) != 1 {
		return zero, &QueryError{SQL: query, Err: fmt.Errorf("%w: expected 1, got %d", ErrUnexpectedRowCount, len(rows))}
	}
	return rows[0], nil
}

// FetchOptional executes query and expects zero or one row.
func FetchOptional[T any](ctx context.Context, q Querier, query string) (*T, error) {
	rows, err := FetchAll[T](ctx, q, query)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, &QueryError{SQL: query, Err: fmt.Errorf("%w: expected at most 1, got %d", ErrUnexpectedRowCount, len(rows))}
	}
}

func wrapSelectError(query string, err error) error {
	var qErr *QueryError
	var dErr *DeserializeError
	if errors.As(err, &qErr) || errors.As(err, &dErr) {
		return err
	}
	return wrapQueryError(query, err)
}

// parseEndpoint turns an HTTP(S) URL into a host:port address. A bare
// host:port is treated as plain HTTP.
func parseEndpoint(endpoint string) (addr string, secure bool, path string, err error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		return "", false, "", fmt.Errorf("invalid endpoint: empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
	case "https":
		secure = true
	default:
		return "", false, "", fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	if u.Hostname() == "" {
		return "", false, "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	port := u.Port()
	if port == "" {
		port = "8123"
		if secure {
			port = "8443"
		}
	}

	path = strings.TrimRight(u.Path, "/")
	return net.JoinHostPort(u.Hostname(), port), secure, path, nil
}
