package customHttpClient

import (
	"net"
	"net/http"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
)

// shared so every outgoing fetch reuses idle connections
var customTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:          config.MaxIdleConns,
	MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
	IdleConnTimeout:       config.IdleConnTimeout,
	TLSHandshakeTimeout:   10 * time.Second,
}

// NewClient returns a client on the pooled transport with an overall request timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
