package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
)

var (
	// ErrUnexpectedRowCount is returned when a single-row fetch sees another cardinality.
	ErrUnexpectedRowCount = errors.New("unexpected row count")
	// ErrUnexpectedPing is returned when SELECT 1 does not answer 1.
	ErrUnexpectedPing = errors.New("unexpected ping result")
)

var (
	authErrorSubstrings = []string{
		"authentication failed",
		"authentication error",
		"invalid credentials",
		"invalid password",
		"password is incorrect",
		"wrong password",
		"unknown user",
		"unauthorized",
		"access denied",
		"code: 193",
		"code: 194",
		"code: 497",
		"code: 516",
	}
	networkErrorSubstrings = []string{
		"timeout",
		"eof",
		"broken pipe",
		"connection reset",
		"connection refused",
		"connection aborted",
		"connection closed",
		"use of closed network connection",
		"network is unreachable",
		"no route to host",
		"no such host",
	}
	deserializeErrorSubstrings = []string{
		"converting",
		"missing destination name",
		"cannot be converted",
	}
)

// ConnectError means the initial ping failed.
type ConnectError struct {
	Endpoint string
	Auth     bool
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Auth {
		return fmt.Sprintf("failed to connect to ClickHouse at %s (check --user/--password): %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("failed to connect to ClickHouse at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// QueryError means a collector's SQL was rejected or failed in transit.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to execute query: %v\nSQL: %s", e.Err, strings.TrimSpace(e.SQL))
}

func (e *QueryError) Unwrap() error { return e.Err }

// DeserializeError means the returned rows did not fit the expected record.
type DeserializeError struct {
	SQL string
	Err error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("failed to decode rows: %v\nSQL: %s", e.Err, strings.TrimSpace(e.SQL))
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// wrapQueryError attaches the SQL to err and picks the error kind.
func wrapQueryError(query string, err error) error {
	if err == nil {
		return nil
	}
	if isDeserializeError(err) {
		return &DeserializeError{SQL: query, Err: err}
	}
	return &QueryError{SQL: query, Err: err}
}

func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return err
	}
	return nil
}

func isDeserializeError(err error) bool {
	if err == nil {
		return false
	}

	var convErr *column.ColumnConverterError
	if errors.As(err, &convErr) {
		return true
	}
	var opErr *clickhouse.OpError
	if errors.As(err, &opErr) {
		return true
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range deserializeErrorSubstrings {
		if strings.Contains(errText, marker) {
			return true
		}
	}
	return false
}

// IsAuthError reports whether err looks like rejected credentials.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var chErr *clickhouse.Exception
	if errors.As(err, &chErr) {
		switch chErr.Code {
		case 193, 194, 497, 516:
			return true
		}
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range authErrorSubstrings {
		if strings.Contains(errText, marker) {
			return true
		}
	}

	return false
}

// IsNetworkError reports whether err came from the transport rather than the server.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range networkErrorSubstrings {
		if strings.Contains(errText, marker) {
			return true
		}
	}

	return false
}
