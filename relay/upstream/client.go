// Package upstream issues the prepared request against an upstream
// provider, honoring its use_proxy flag, and returns the raw response for
// streamrelay to consume.
package upstream

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/cyder-hub/cyder-gateway/common/config"
)

var (
	directClient *http.Client
	proxyClients sync.Map // proxy URL string -> *http.Client
	once         sync.Once
)

func direct() *http.Client {
	once.Do(func() {
		directClient = &http.Client{Timeout: 0} // streaming responses have no fixed deadline; StreamRelay owns timeouts
	})
	return directClient
}

// clientFor returns the direct client, or a proxied one cached by proxy
// URL when useProxy is set and config.RelayProxy is non-empty.
func clientFor(useProxy bool) (*http.Client, error) {
	if !useProxy || config.RelayProxy == "" {
		return direct(), nil
	}

	if c, ok := proxyClients.Load(config.RelayProxy); ok {
		return c.(*http.Client), nil
	}

	proxyURL, err := url.Parse(config.RelayProxy)
	if err != nil {
		return nil, errors.Wrap(err, "parse relay proxy url")
	}
	c := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	actual, _ := proxyClients.LoadOrStore(config.RelayProxy, c)
	return actual.(*http.Client), nil
}

// Client issues prepared requests upstream.
type Client struct{}

// New builds an upstream Client.
func New() *Client { return &Client{} }

// Do sends req, routing through the relay proxy when useProxy is true.
func (*Client) Do(ctx context.Context, req *http.Request, useProxy bool) (*http.Response, error) {
	httpClient, err := clientFor(useProxy)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "do upstream request")
	}
	return resp, nil
}

// FirstByteDeadline bounds how long a caller should wait for the first
// byte of an upstream response before declaring an upstream timeout.
func FirstByteDeadline() time.Duration { return config.FirstByteTimeout }
