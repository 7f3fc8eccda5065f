package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/your-org/vsconsole/internal/observability"
)

const tracerName = "github.com/your-org/vsconsole/internal/backend"

// transport performs HTTP calls against one backend base URL.
type transport struct {
	service string
	base    string
	http    *http.Client
	// plainErrors: the service answers failures with a text body, not JSON.
	plainErrors bool
}

func newTransport(service, base string, httpClient *http.Client) *transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &transport{
		service: service,
		base:    strings.TrimRight(base, "/"),
		http:    httpClient,
	}
}

func (t *transport) url(path string) string {
	if path == "" {
		return t.base
	}
	if strings.HasPrefix(path, "?") {
		return t.base + path
	}
	return t.base + "/" + strings.TrimLeft(path, "/")
}

// call sends one request and returns the raw 2xx body.
func (t *transport) call(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	url := t.url(path)

	ctx, span := otel.Tracer(tracerName).Start(ctx, t.service+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, t.fail(span, &Error{Kind: KindValidation, Method: method, URL: url, Message: fmt.Sprintf("build request: %v", err), Err: err})
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.observe(method, "error", start)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, t.fail(span, &Error{Kind: KindTimeout, Method: method, URL: url, Message: fmt.Sprintf("request to %s timed out", url), Err: err})
		}
		return nil, t.fail(span, &Error{
			Kind:    KindNetwork,
			Method:  method,
			URL:     url,
			Message: fmt.Sprintf("network error calling %s: %v", url, err),
			Err:     err,
		})
	}
	defer resp.Body.Close()
	t.observe(method, strconv.Itoa(resp.StatusCode), start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, t.fail(span, &Error{Kind: KindTimeout, Method: method, URL: url, Message: fmt.Sprintf("request to %s timed out", url), Err: err})
		}
		return nil, t.fail(span, &Error{Kind: KindNetwork, Method: method, URL: url, Message: fmt.Sprintf("network error reading %s: %v", url, err), Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, t.fail(span, &Error{
			Kind:    KindHTTP,
			Method:  method,
			URL:     url,
			Status:  resp.StatusCode,
			Message: t.errorMessage(resp.StatusCode, data),
		})
	}

	return data, nil
}

func (t *transport) fail(span trace.Span, e *Error) *Error {
	e.Service = t.service
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Message)
	observability.BackendErrors.WithLabelValues(t.service, string(e.Kind)).Inc()
	slog.Warn("backend call failed",
		"service", t.service,
		"method", e.Method,
		"url", e.URL,
		"kind", e.Kind,
		"status", e.Status,
		"error", e.Message,
	)
	return e
}

func (t *transport) observe(method, status string, start time.Time) {
	observability.BackendRequestDuration.WithLabelValues(t.service, method, status).Observe(time.Since(start).Seconds())
}

// errorMessage extracts the operator-facing message from a failed response.
func (t *transport) errorMessage(status int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s := asString(parsed[key]); s != "" {
				return s
			}
		}
	}
	if t.plainErrors {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

// getJSON issues a GET and decodes the body into a generic value.
func (t *transport) getJSON(ctx context.Context, path string) (any, error) {
	data, err := t.call(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return t.decode(http.MethodGet, path, data)
}

// sendJSON issues a request with a JSON body (nil sends no body).
func (t *transport) sendJSON(ctx context.Context, method, path string, payload any) (any, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, ValidationError("marshal request: %v", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	data, err := t.call(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	return t.decode(method, path, data)
}

// decode parses a JSON body keeping numbers as json.Number. An empty body
// decodes to nil.
func (t *transport) decode(method, path string, data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Error{
			Kind:    KindHTTP,
			Service: t.service,
			Method:  method,
			URL:     t.url(path),
			Status:  http.StatusOK,
			Message: fmt.Sprintf("invalid JSON from %s: %v", t.url(path), err),
			Err:     err,
		}
	}
	return v, nil
}

func jsonEncode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// unwrapData returns v["data"] when the backend wrapped its payload.
func unwrapData(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["data"]; ok && inner != nil {
			return inner
		}
	}
	return v
}
