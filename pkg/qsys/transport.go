package qsys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quatton/qsys/pkg/qlog"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ServicePath is the root of the job endpoints relative to the server URL.
const ServicePath = "/nisysmgmt/v1/"

// APIKeyHeader carries the API key on every request when one is configured.
const APIKeyHeader = "x-ni-api-key"

// Transport performs one call against the service. path is relative to
// ServicePath. A non-2xx response or a failed round trip is returned as a
// *qerr.Error; the raw JSON body is returned otherwise.
type Transport interface {
	Call(ctx context.Context, method, path string, body any, query url.Values) ([]byte, error)
}

// HttpRequestDoer performs HTTP requests. *http.Client satisfies it.
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestEditorFn is the function signature for the RequestEditor callback
// function. It runs after the request is built and before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	// Server is the base URL, always ending in a slash.
	Server string

	Client         HttpRequestDoer
	RequestEditors []RequestEditorFn
	Logger         *qlog.Logger
}

// TransportOption allows setting custom parameters during construction.
type TransportOption func(*HTTPTransport) error

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL string, opts ...TransportOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", baseURL)
	}

	t := &HTTPTransport{Server: baseURL}
	for _, o := range opts {
		if err := o(t); err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(t.Server, "/") {
		t.Server += "/"
	}
	if t.Client == nil {
		t.Client = &http.Client{}
	}
	if t.Logger == nil {
		t.Logger = qlog.NewNop()
	}
	return t, nil
}

// WithHTTPClient allows overriding the default Doer, which is
// automatically created using http.Client. This is useful for tests.
func WithHTTPClient(doer HttpRequestDoer) TransportOption {
	return func(t *HTTPTransport) error {
		t.Client = doer
		return nil
	}
}

// WithRequestEditorFn allows setting up a callback function, which will be
// called right before sending the request. This can be used to mutate the request.
func WithRequestEditorFn(fn RequestEditorFn) TransportOption {
	return func(t *HTTPTransport) error {
		t.RequestEditors = append(t.RequestEditors, fn)
		return nil
	}
}

// WithAPIKey sends key in the x-ni-api-key header.
func WithAPIKey(key string) TransportOption {
	return WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
		req.Header.Set(APIKeyHeader, key)
		return nil
	})
}

// WithLogger logs every call at debug level.
func WithLogger(l *qlog.Logger) TransportOption {
	return func(t *HTTPTransport) error {
		t.Logger = l
		return nil
	}
}

func (t *HTTPTransport) Call(ctx context.Context, method, path string, body any, query url.Values) ([]byte, error) {
	req, err := t.newRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.Client.Do(req)
	if err != nil {
		t.Logger.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, qerr.New(qerr.CodeTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, qerr.New(qerr.CodeTransport, fmt.Errorf("reading response: %w", err))
	}

	t.Logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, qerr.FromResponse(resp.StatusCode, data)
	}
	return data, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, method, path string, body any, query url.Values) (*http.Request, error) {
	serverURL, err := url.Parse(t.Server)
	if err != nil {
		return nil, err
	}
	operationPath := strings.TrimPrefix(ServicePath, "/") + strings.TrimPrefix(path, "/")
	queryURL, err := serverURL.Parse(operationPath)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		queryURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, queryURL.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, edit := range t.RequestEditors {
		if err := edit(ctx, req); err != nil {
			return nil, err
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

var _ Transport = (*HTTPTransport)(nil)
