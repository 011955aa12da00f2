package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/context/ctxhttp"
)

// HTTPAdapterConfig groups options which control how HTTP requests are made by adapters.
type HTTPAdapterConfig struct {
	// See IdleConnTimeout on https://golang.org/pkg/net/http/#Transport
	IdleConnTimeout time.Duration
	// See MaxIdleConns on https://golang.org/pkg/net/http/#Transport
	MaxConns int
	// See MaxIdleConnsPerHost on https://golang.org/pkg/net/http/#Transport
	MaxConnsPerHost int
	// See MaxConnsPerHost on https://golang.org/pkg/net/http/#Transport. Zero means no limit.
	MaxActiveConnsPerHost int
}

// DefaultHTTPAdapterConfig is an HTTPAdapterConfig that chooses sensible default values.
var DefaultHTTPAdapterConfig = &HTTPAdapterConfig{
	MaxConns:        50,
	MaxConnsPerHost: 10,
	IdleConnTimeout: 60 * time.Second,
}

// NewHTTPClient creates an http.Client which obeys the rules given by the config.
func NewHTTPClient(c *HTTPAdapterConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        c.MaxConns,
			MaxIdleConnsPerHost: c.MaxConnsPerHost,
			MaxConnsPerHost:     c.MaxActiveConnsPerHost,
			IdleConnTimeout:     c.IdleConnTimeout,
		},
	}
}

// RequestData packages together the fields needed to make an http.Request.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
}

// ResponseData packages together information from the server's http.Response.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// DoRequest makes a request and reads the whole response. Transport errors are returned as-is;
// status codes are left for the caller to interpret.
func DoRequest(ctx context.Context, client *http.Client, req *RequestData) (*ResponseData, error) {
	httpReq, err := http.NewRequest(req.Method, req.Uri, bytes.NewBuffer(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = req.Headers

	httpResp, err := ctxhttp.Do(ctx, client, httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &ResponseData{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}, nil
}
