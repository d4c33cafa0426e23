package model

import (
	"net"
	"net/http"
	"time"
)

// HTTPConfig configures the HTTP client shared by the provider adapters.
type HTTPConfig struct {
	ConnTimeout     time.Duration
	RespTimeout     time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// Default provider timeouts and pool settings.
const (
	defaultConnTimeout     = 30 * time.Second
	defaultRespTimeout     = 120 * time.Second
	defaultMaxIdleConns    = 10
	defaultIdleConnTimeout = 120 * time.Second
)

// NewHTTPClient creates an *http.Client with a pooled transport and timeout
// defaults suitable for model providers. A chat talks to one host, so the
// per-host limits equal the pool size.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: respTimeout,
			MaxIdleConns:          maxIdle,
			MaxIdleConnsPerHost:   maxIdle,
			MaxConnsPerHost:       maxIdle,
			IdleConnTimeout:       idleTimeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: connTimeout + respTimeout,
	}
}
