package catalog

import (
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/net/http2"
)

// NewTransport returns the round tripper shared by catalog and preview
// downloads: HTTP/2 capable, with transparent gzip decoding.
func NewTransport() http.RoundTripper {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warn("HTTP/2 unavailable, using HTTP/1.1", "error", err)
	}
	return gzhttp.Transport(tr)
}
