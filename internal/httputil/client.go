package httputil

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	defaultClientTimeout = 30 * time.Second

	// MaxBodyBytes caps a decoded page. Mercari search pages run well under this.
	MaxBodyBytes = 16 << 20
)

// NewHTTPClient returns a client around transport, typically the
// StealthTransport. A nil transport gets a pooled default and a non-positive
// timeout falls back to 30s.
func NewHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ReadBody decodes resp.Body according to Content-Encoding and reads at most
// MaxBodyBytes of it.
func ReadBody(resp *http.Response) ([]byte, error) {
	r, err := decoder(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	return body, nil
}

func decoder(encoding string, body io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("deflate reader: %w", err)
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return io.NopCloser(body), nil
	}
}
