package util

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"

	"github.com/brogergvhs/mangapdf/internal/failure"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type HTTPClientOptions struct {
	Timeout          time.Duration
	UserAgent        string
	Cookie           string
	CookieFile       string
	CloudflareBypass bool
	Transport        http.RoundTripper
	DebugLogger      interface {
		Debugf(string, ...any)
	}
}

func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	var baseTransport http.RoundTripper
	if opts.Transport != nil {
		baseTransport = opts.Transport
	} else {
		baseTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     100,
			MaxIdleConnsPerHost: 100,
			ForceAttemptHTTP2:   true,
		}
	}

	if opts.CloudflareBypass {
		baseTransport = cloudflarebp.AddCloudFlareByPass(baseTransport)
	}

	cookieHeader, err := joinCookies(opts.Cookie, opts.CookieFile)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: roundTripper{
			base:         baseTransport,
			ua:           opts.UserAgent,
			cookieHeader: cookieHeader,
			log:          opts.DebugLogger,
		},
		Jar: jar,
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP client initialized (timeout=%s, ua=%q, cookieFile=%q, cloudflare=%t)\n",
			opts.Timeout, opts.UserAgent, opts.CookieFile, opts.CloudflareBypass)
	}

	return client, nil
}

type roundTripper struct {
	base         http.RoundTripper
	ua           string
	cookieHeader string
	log          interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.ua != "" {
		req.Header.Set("User-Agent", rt.ua)
	}

	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())
	}

	return rt.base.RoundTrip(req)
}

func joinCookies(inline, file string) (string, error) {
	s := strings.TrimSpace(inline)
	if file == "" {
		return s, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("cookie file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	// first non-empty line
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if s == "" {
			return line, nil
		}

		return s + "; " + line, nil
	}

	return s, sc.Err()
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return DefaultUserAgent
}

// Fetcher retrieves the body behind a URL. Chapter pages and page images
// both go through it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher issues plain GET requests. There is no retry: any transport
// error or non-2xx status is returned as a network failure.
type HTTPFetcher struct {
	Client *http.Client
}

func NewFetcher(c *http.Client) *HTTPFetcher {
	return &HTTPFetcher{Client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Network(url, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, failure.Network(url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failure.Network(url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Network(url, err)
	}

	return body, nil
}
