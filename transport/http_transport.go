package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mailbox/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 64 << 10 // 64 KiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport delivers payloads over HTTP. Bodies are sent byte for byte so
// pre-computed signatures stay valid. Responses of any status are returned to
// the caller for classification; only exchange failures are errors.
type HTTPTransport struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

// NewHTTPTransport uses client, or a client that does not follow redirects.
func NewHTTPTransport(client HTTPDoer) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Timeout: defaultClientTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &HTTPTransport{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

// NewRestrictedHTTPTransport delivers through a RestrictedDialer.
func NewRestrictedHTTPTransport(dialer *RestrictedDialer) *HTTPTransport {
	client := NewRestrictedHTTPClient(dialer, defaultClientTimeout)
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return NewHTTPTransport(client)
}

// ForConfig returns a restricted transport unless cfg allows private
// addresses.
func ForConfig(cfg core.Config) core.Transport {
	if cfg.AllowPrivateAddresses {
		return NewHTTPTransport(nil)
	}
	return NewRestrictedHTTPTransport(nil)
}

func (t *HTTPTransport) Send(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if t == nil || t.Client == nil {
		return core.TransportResponse{}, transportError(
			"transport: http transport requires an http client",
			goerrors.CategoryInternal,
			core.DeliveryErrorProtocol,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	target, err := JoinURL(req.BaseURL, req.Path)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			core.DeliveryErrorProtocol,
			"transport: invalid destination url",
			map[string]any{"base_url": req.BaseURL, "path": req.Path},
		)
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			core.DeliveryErrorProtocol,
			"transport: create http request",
			map[string]any{"method": method, "url": target},
		)
	}
	for key, value := range t.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), value)
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), value)
	}

	startedAt := time.Now()
	httpRes, err := t.Client.Do(httpReq)
	if err != nil {
		category, textCode := classifySendError(err)
		return core.TransportResponse{}, transportWrapError(
			err,
			category,
			textCode,
			"transport: execute http request",
			map[string]any{"method": method, "url": target},
		)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, t.responseBodyLimit()))
	if err != nil {
		category, textCode := classifySendError(err)
		return core.TransportResponse{}, transportWrapError(
			err,
			category,
			textCode,
			"transport: read response body",
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	// Drain the remainder so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(httpRes.Body, t.responseBodyLimit()))

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Duration:   time.Since(startedAt),
	}, nil
}

func (t *HTTPTransport) responseBodyLimit() int64 {
	if t.MaxResponseBodyBytes > 0 {
		return t.MaxResponseBodyBytes
	}
	return defaultResponseBodyLimit
}

// JoinURL appends path to base. An empty base requires an absolute path URL.
func JoinURL(base string, path string) (string, error) {
	base = strings.TrimSpace(base)
	path = strings.TrimSpace(path)
	if base == "" {
		parsed, err := url.Parse(path)
		if err != nil {
			return "", err
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return "", &url.Error{Op: "parse", URL: path, Err: errMissingHost}
		}
		return parsed.String(), nil
	}
	parsedBase, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsedBase.Scheme != "http" && parsedBase.Scheme != "https" {
		return "", &url.Error{Op: "parse", URL: base, Err: errUnsupportedScheme}
	}
	if parsedBase.Host == "" {
		return "", &url.Error{Op: "parse", URL: base, Err: errMissingHost}
	}
	if path == "" {
		return parsedBase.String(), nil
	}
	return strings.TrimRight(parsedBase.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.Transport = (*HTTPTransport)(nil)
