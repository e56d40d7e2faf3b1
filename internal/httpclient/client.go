package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const idleSweepInterval = time.Minute

// Client owns the process-wide outbound HTTP client. The underlying transport is
// shared by every integration so connections are pooled across them.
type Client struct {
	transport *http.Transport
	client    *http.Client
}

func New(cfg config.HttpClient) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		transport: transport,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// HTTP returns the shared client.
func (c *Client) HTTP() *http.Client {
	return c.client
}

// Close drops pooled connections. It is used by short-lived processes that
// never run Serve.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// Serve sweeps idle connections until ctx is done and drops them all on exit.
func (c *Client) Serve(ctx context.Context) error {
	log.Debug("http client service started")
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()
	defer c.transport.CloseIdleConnections()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.transport.CloseIdleConnections()
		}
	}
}

func (c *Client) String() string {
	return "httpclient"
}
