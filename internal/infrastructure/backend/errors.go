package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hivoco/lens-kiosk/internal/infrastructure/metrics"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// call tracks one backend request for metrics and error reporting.
type call struct {
	api      string
	endpoint string
	op       string
	start    time.Time
}

func begin(api, endpoint, op string) call {
	return call{api: api, endpoint: endpoint, op: op, start: time.Now()}
}

// errorBody covers the error shapes both backends produce. detail is either
// a string or a list of field errors.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type fieldError struct {
	Msg string `json:"msg"`
}

// finish records the call and converts transport failures and error statuses
// into platform errors. Caller cancellation is returned untouched.
func (c *Client) finish(ctx context.Context, cl call, resp *resty.Response, err error) error {
	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}
	elapsed := time.Since(cl.start)
	metrics.RecordBackendRequest(cl.api, cl.endpoint, status, elapsed.Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		if isTimeout(ctx, err) {
			return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeTimeout,
				fmt.Sprintf("%s timed out", cl.op), err, "")
		}
		c.log.Warn().Err(err).Str("api", cl.api).Str("endpoint", cl.endpoint).Msg("backend unreachable")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("%s failed", cl.op), err, "")
	}

	c.log.Debug().
		Str("api", cl.api).
		Str("endpoint", cl.endpoint).
		Int("status", status).
		Dur("latency", elapsed).
		Msg("backend request")

	if !resp.IsError() {
		return nil
	}

	msg := c.errorMessage(resp.Body())
	errType := statusErrorType(status)
	if msg == "" {
		msg = fmt.Sprintf("%s returned %d", cl.op, status)
	}
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, errType, msg, nil, "",
		map[string]any{"status": status, "endpoint": cl.endpoint})
}

func statusErrorType(status int) platformerrors.ErrorType {
	switch {
	case status == http.StatusNotFound:
		return platformerrors.ErrorTypeNotFound
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return platformerrors.ErrorTypeExternal
	case status >= 400 && status < 500:
		return platformerrors.ErrorTypeValidation
	default:
		return platformerrors.ErrorTypeExternal
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorMessage extracts a human readable message from an error body and
// strips any markup before it reaches a kiosk screen.
func (c *Client) errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	var msg string
	if len(eb.Detail) > 0 {
		var s string
		var list []fieldError
		switch {
		case json.Unmarshal(eb.Detail, &s) == nil:
			msg = s
		case json.Unmarshal(eb.Detail, &list) == nil:
			parts := make([]string, 0, len(list))
			for _, fe := range list {
				if fe.Msg != "" {
					parts = append(parts, fe.Msg)
				}
			}
			msg = strings.Join(parts, "; ")
		}
	}
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = eb.Error
	}
	return c.sanitize(msg)
}

func (c *Client) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(s)))
}
