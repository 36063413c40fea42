package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
	"github.com/JohnDeved/crackmes-cli/internal/parser"
)

const (
	userAgent         = "crackmes-cli/1.0"
	overviewCacheSize = 256
)

// Client handles HTTP requests to the catalog.
type Client struct {
	pageHTTP  *http.Client // Short timeout for HTML pages
	dlHTTP    *http.Client // No timeout for archives (managed by context)
	limiter   *rate.Limiter
	baseURL   string
	overviews *lru.Cache[string, *parser.Overview]
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport routes every request through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.pageHTTP.Transport = rt
		c.dlHTTP.Transport = rt
	}
}

// New creates a new catalog client.
func New(baseURL string, reqPerSec float64, opts ...Option) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 2.0
	}

	// The search token is bound to the session cookie, so both clients share a jar.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	overviews, _ := lru.New[string, *parser.Overview](overviewCacheSize)

	c := &Client{
		pageHTTP: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		dlHTTP: &http.Client{
			Jar: jar,
		},
		limiter:   rate.NewLimiter(rate.Limit(reqPerSec), 2),
		baseURL:   strings.TrimRight(baseURL, "/"),
		overviews: overviews,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Overview fetches and parses a crackme's page. Pages are cached by id for the
// lifetime of the client.
func (c *Client) Overview(ctx context.Context, id string) (*parser.Overview, error) {
	if err := crackme.ValidateID(id); err != nil {
		return nil, err
	}
	if ov, ok := c.overviews.Get(id); ok {
		slog.DebugContext(ctx, "overview cache hit", "id", id)
		return ov, nil
	}

	pageURL := c.baseURL + "/crackme/" + id
	resp, err := c.do(ctx, c.pageHTTP, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ov, err := parser.ParseOverview(resp.Body, id)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	c.overviews.Add(id, ov)
	return ov, nil
}

// Description returns the description shown on a crackme's page.
func (c *Client) Description(ctx context.Context, id string) (string, error) {
	ov, err := c.Overview(ctx, id)
	if err != nil {
		return "", err
	}
	d, _ := ov.Record.Description()
	return d, nil
}

// Latest fetches one page of the most recent uploads.
func (c *Client) Latest(ctx context.Context, page uint64) ([]*crackme.Record, error) {
	if page == 0 {
		page = 1
	}
	pageURL := c.baseURL + "/lasts/" + strconv.FormatUint(page, 10)
	resp, err := c.do(ctx, c.pageHTTP, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	records, err := parser.ParseList(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return records, nil
}

// Search reads a fresh form token and submits q.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]*crackme.Record, error) {
	searchURL := c.baseURL + "/search"

	resp, err := c.do(ctx, c.pageHTTP, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	token, err := parser.ParseSearchToken(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", searchURL, err)
	}

	resp, err = c.do(ctx, c.pageHTTP, http.MethodPost, searchURL, q.Form(token))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	records, err := parser.ParseList(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}
	slog.DebugContext(ctx, "search finished", "name", q.Name, "author", q.Author, "results", len(records))
	return records, nil
}

// ArchiveURL returns the absolute archive URL for a parsed overview, falling
// back to the static archive path when the page had no download link.
func (c *Client) ArchiveURL(ov *parser.Overview) string {
	if ov.DownloadHref == "" {
		return c.baseURL + "/static/crackme/" + ov.Record.ID + ".zip"
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return c.baseURL + ov.DownloadHref
	}
	ref, err := url.Parse(ov.DownloadHref)
	if err != nil {
		return c.baseURL + ov.DownloadHref
	}
	return base.ResolveReference(ref).String()
}

// DownloadArchive starts an archive download.
// Returns the response body (caller must close) and the content length.
func (c *Client) DownloadArchive(ctx context.Context, archiveURL string) (io.ReadCloser, int64, error) {
	resp, err := c.do(ctx, c.dlHTTP, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, 0, err
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("refusing HTML response for archive URL %s", archiveURL)
	}
	return resp.Body, resp.ContentLength, nil
}

// do performs a throttled request and rejects non-200 responses. form, when
// non-nil, is sent url-encoded.
func (c *Client) do(ctx context.Context, hc *http.Client, method, target string, form url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", target)
	}

	slog.DebugContext(ctx, "request", "method", method, "url", target)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	return resp, nil
}
