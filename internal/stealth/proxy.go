package stealth

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ProxyProvider abstracts a proxy backend.
type ProxyProvider interface {
	Transport() http.RoundTripper
	Name() string
}

// ProxyRotator cycles through multiple proxy providers.
type ProxyRotator struct {
	providers []ProxyProvider
	mu        sync.Mutex
	idx       int
}

// NewProxyRotator creates a rotator from a list of providers.
// Returns nil if no providers are given.
func NewProxyRotator(providers []ProxyProvider) *ProxyRotator {
	if len(providers) == 0 {
		return nil
	}
	return &ProxyRotator{providers: providers}
}

// Next returns the next proxy provider in round-robin order.
func (p *ProxyRotator) Next() ProxyProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	provider := p.providers[p.idx%len(p.providers)]
	p.idx++
	return provider
}

// HTTPProxyProvider routes through a single HTTP or SOCKS5 proxy URL.
type HTTPProxyProvider struct {
	proxyURL  *url.URL
	transport http.RoundTripper
}

// NewHTTPProxyProvider parses rawURL and builds a keep-alive-free transport
// through it.
func NewHTTPProxyProvider(rawURL string) (*HTTPProxyProvider, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("proxy %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q: missing host", rawURL)
	}
	return &HTTPProxyProvider{
		proxyURL: u,
		transport: &http.Transport{
			Proxy:             http.ProxyURL(u),
			DisableKeepAlives: true,
		},
	}, nil
}

func (h *HTTPProxyProvider) Transport() http.RoundTripper { return h.transport }

// Name is the proxy host; credentials never appear in logs.
func (h *HTTPProxyProvider) Name() string { return h.proxyURL.Host }

// LoadProxies builds providers from a single proxy URL and/or a file holding
// one proxy URL per line. Blank lines and lines starting with # are skipped.
func LoadProxies(single, file string) ([]ProxyProvider, error) {
	var raw []string
	if single != "" {
		raw = append(raw, single)
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open proxy file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read proxy file: %w", err)
		}
	}

	providers := make([]ProxyProvider, 0, len(raw))
	for _, r := range raw {
		p, err := NewHTTPProxyProvider(r)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
