// Package httpclient provides an outbound HTTP client that refuses to reach
// loopback, private and other special-use addresses.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// Defaults for NewSaferClient
const (
	DefaultMaxRedirects = 5
	DefaultMaxBodyBytes = 1 << 20
)

// ErrBlocked marks a request refused by the address policy
var ErrBlocked = errors.New("request blocked")

// SaferClient wraps http.Client with SSRF protection
type SaferClient struct {
	*http.Client
	userAgent      string
	allowPrivate   bool
	maxRedirects   int
	maxBodyBytes   int64
	allowedSchemes []string
}

// Option configures a SaferClient
type Option func(*SaferClient)

// WithUserAgent sets the User-Agent sent with every request. Public
// geocoding services reject requests without one.
func WithUserAgent(ua string) Option {
	return func(c *SaferClient) { c.userAgent = ua }
}

// WithMaxRedirects bounds how many redirects are followed
func WithMaxRedirects(n int) Option {
	return func(c *SaferClient) { c.maxRedirects = n }
}

// WithMaxBodyBytes bounds how much of a response GetJSON reads
func WithMaxBodyBytes(n int64) Option {
	return func(c *SaferClient) { c.maxBodyBytes = n }
}

// AllowPrivateNetworks disables address blocking. Only for tests against
// httptest servers and for geocoders deployed on the local network.
func AllowPrivateNetworks() Option {
	return func(c *SaferClient) { c.allowPrivate = true }
}

// NewSaferClient creates an HTTP client with SSRF protection
func NewSaferClient(timeout time.Duration, opts ...Option) *SaferClient {
	c := &SaferClient{
		Client:         &http.Client{Timeout: timeout},
		maxRedirects:   DefaultMaxRedirects,
		maxBodyBytes:   DefaultMaxBodyBytes,
		allowedSchemes: []string{"http", "https"},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if !c.allowPrivate {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		c.Transport = &http.Transport{
			// Check resolved addresses at dial time so DNS rebinding cannot
			// bypass the hostname check in validateURL
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, a := range addrs {
					if isPrivateAddr(a) {
						return nil, errors.Wrapf(ErrBlocked, "private address %s", a)
					}
				}
				if len(addrs) == 0 {
					return nil, errors.Newf("no addresses for host %q", host)
				}
				return dialer.DialContext(ctx, network, net.JoinHostPort(addrs[0].String(), port))
			},
			MaxIdleConns:          16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	return c
}

// validateURL validates URL for SSRF protection before making request
func (c *SaferClient) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Wrapf(ErrBlocked, "scheme %q not allowed", scheme)
	}
	if u.User != nil {
		// http://evil.example@localhost/ style confusion
		return errors.Wrap(ErrBlocked, "URL carries credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}
	if c.allowPrivate {
		return nil
	}
	if isLocalhost(hostname) {
		return errors.Wrap(ErrBlocked, "localhost access blocked")
	}
	if a, err := netip.ParseAddr(hostname); err == nil && isPrivateAddr(a) {
		return errors.Wrapf(ErrBlocked, "private address %s", hostname)
	}
	return nil
}

// ValidateURL validates a URL string before creating a request
func (c *SaferClient) ValidateURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.validateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Do executes an HTTP request with SSRF protection
func (c *SaferClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.validateURL(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked by SSRF protection")
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.Client.Do(req)
}

// GetJSON fetches urlStr and decodes a 2xx JSON body into out.
func (c *SaferClient) GetJSON(ctx context.Context, urlStr string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, c.maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 256))
		return errors.WithDetailf(
			errors.Newf("unexpected status %d from %s", resp.StatusCode, req.URL.Host),
			"body: %s", strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", req.URL.Host)
	}
	return nil
}

// isPrivateAddr reports loopback, RFC 1918, link-local, multicast,
// unspecified, unique-local and documentation addresses.
func isPrivateAddr(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsMulticast() || a.IsUnspecified() || a.IsInterfaceLocalMulticast() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fec0::/10"), // deprecated site-local
	netip.MustParsePrefix("2001:db8::/32"),
}

// isLocalhost checks for localhost variants
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
