// Package wiki is a client for the Fallout wiki MediaWiki API. It fetches
// page content, outgoing article links, and category member listings with
// per-request rate limiting and bounded retries.
package wiki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/omnidatabase/codex-cli/internal/resilience"
)

// DefaultAPIURL is the MediaWiki API endpoint for the Fallout wiki.
const DefaultAPIURL = "https://fallout.fandom.com/api.php"

// DefaultHost is the wiki host article URLs are built against.
const DefaultHost = "fallout.fandom.com"

const defaultUserAgent = "omnidatabase-codex/1.0 (data-pipeline)"

// Options configures the wiki client.
type Options struct {
	APIURL            string
	Host              string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retry             resilience.RetryConfig
}

// Client talks to the MediaWiki API.
type Client struct {
	apiURL  string
	host    string
	ua      string
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a wiki client with the given options.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	return &Client{
		apiURL:  opts.APIURL,
		host:    opts.Host,
		ua:      opts.UserAgent,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		retry:   opts.Retry,
	}
}

// Host returns the wiki host the client builds article URLs against.
func (c *Client) Host() string {
	return c.host
}

// Page is the content record returned for a single article.
type Page struct {
	PageID            int64
	Title             string
	URL               string
	Summary           string
	Categories        []string
	Image             string
	RevisionID        int64
	RevisionTimestamp string
}

type apiResponse struct {
	Query struct {
		Pages []struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Links   []struct {
				Title string `json:"title"`
			} `json:"links"`
			Categories []struct {
				Title string `json:"title"`
			} `json:"categories"`
			Revisions []struct {
				RevID     int64  `json:"revid"`
				Timestamp string `json:"timestamp"`
			} `json:"revisions"`
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
		CategoryMembers []struct {
			Title string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
	Continue map[string]string `json:"continue"`
}

func (c *Client) request(ctx context.Context, params url.Values) (*apiResponse, error) {
	reqURL := c.apiURL + "?" + params.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*apiResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "wiki: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "wiki: create request")
		}
		req.Header.Set("User-Agent", c.ua)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "wiki: api request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("wiki: api status %d from %s", resp.StatusCode, reqURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				zap.L().Warn("wiki api request failed, will retry",
					zap.Int("status", resp.StatusCode),
				)
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "wiki: read response"), 0)
		}
		var out apiResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, eris.Wrap(err, "wiki: decode response")
		}
		return &out, nil
	})
}

func baseParams() url.Values {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("format", "json")
	v.Set("formatversion", "2")
	v.Set("redirects", "1")
	return v
}

// FetchPage fetches one article with its intro extract, thumbnail, visible
// categories, and latest revision. Returns (nil, nil) for missing pages.
func (c *Client) FetchPage(ctx context.Context, title string) (*Page, error) {
	params := baseParams()
	params.Set("prop", "extracts|pageimages|categories|revisions|info")
	params.Set("titles", title)
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("piprop", "thumbnail")
	params.Set("pithumbsize", "600")
	params.Set("cllimit", "max")
	params.Set("clshow", "!hidden")
	params.Set("rvprop", "ids|timestamp")
	params.Set("rvlimit", "1")
	params.Set("inprop", "url")

	resp, err := c.request(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "wiki: fetch page %q", title)
	}
	if len(resp.Query.Pages) == 0 {
		return nil, nil
	}
	raw := resp.Query.Pages[0]
	if raw.Missing {
		return nil, nil
	}

	page := &Page{
		PageID:  raw.PageID,
		Title:   raw.Title,
		URL:     raw.FullURL,
		Summary: strings.TrimSpace(raw.Extract),
		Image:   raw.Thumbnail.Source,
	}
	if page.Title == "" {
		page.Title = title
	}
	if page.URL == "" {
		page.URL = c.URLFromTitle(page.Title)
	}
	for _, cat := range raw.Categories {
		name := strings.TrimPrefix(cat.Title, "Category:")
		if name != "" {
			page.Categories = append(page.Categories, name)
		}
	}
	if len(raw.Revisions) > 0 {
		page.RevisionID = raw.Revisions[0].RevID
		page.RevisionTimestamp = raw.Revisions[0].Timestamp
	}
	return page, nil
}

// FetchLinks lists the article-namespace links of a page, following
// plcontinue pagination. Titles containing a namespace colon are dropped.
func (c *Client) FetchLinks(ctx context.Context, title string) ([]string, error) {
	var links []string
	seen := map[string]bool{}
	cont := ""
	for {
		params := baseParams()
		params.Set("prop", "links")
		params.Set("titles", title)
		params.Set("plnamespace", "0")
		params.Set("pllimit", "max")
		if cont != "" {
			params.Set("plcontinue", cont)
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, eris.Wrapf(err, "wiki: fetch links %q", title)
		}
		if len(resp.Query.Pages) > 0 {
			for _, link := range resp.Query.Pages[0].Links {
				t := link.Title
				if t == "" || strings.Contains(t, ":") || seen[t] {
					continue
				}
				seen[t] = true
				links = append(links, t)
			}
		}
		cont = resp.Continue["plcontinue"]
		if cont == "" {
			return links, nil
		}
	}
}

// FetchCategoryMembers lists up to limit article titles in a category,
// following cmcontinue pagination.
func (c *Client) FetchCategoryMembers(ctx context.Context, category string, limit int) ([]string, error) {
	var members []string
	seen := map[string]bool{}
	cont := ""
	for len(members) < limit {
		params := baseParams()
		params.Set("list", "categorymembers")
		params.Set("cmtitle", category)
		params.Set("cmnamespace", "0")
		params.Set("cmlimit", "max")
		if cont != "" {
			params.Set("cmcontinue", cont)
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, eris.Wrapf(err, "wiki: fetch category members %q", category)
		}
		for _, row := range resp.Query.CategoryMembers {
			t := row.Title
			if t == "" || strings.Contains(t, ":") || seen[t] {
				continue
			}
			seen[t] = true
			members = append(members, t)
			if len(members) >= limit {
				break
			}
		}
		cont = resp.Continue["cmcontinue"]
		if cont == "" {
			break
		}
	}
	return members, nil
}

// TitleFromURL extracts an article title from a wiki URL or returns the
// value unchanged (underscores become spaces) when it is already a title.
// Returns "" for URLs on foreign hosts or without a /wiki/ path.
func (c *Client) TitleFromURL(value string) string {
	return TitleFromURL(c.host, value)
}

// URLFromTitle builds the canonical article URL for a title.
func (c *Client) URLFromTitle(title string) string {
	return URLFromTitle(c.host, title)
}

// TitleFromURL extracts an article title from a wiki URL against host.
func TitleFromURL(host, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return strings.ReplaceAll(value, "_", " ")
	}
	u, err := url.Parse(value)
	if err != nil {
		return ""
	}
	if u.Host != "" && u.Host != host {
		return ""
	}
	const marker = "/wiki/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	raw := u.Path[idx+len(marker):]
	if raw == "" {
		return ""
	}
	return strings.ReplaceAll(raw, "_", " ")
}

// URLFromTitle builds the canonical article URL for a title on host.
func URLFromTitle(host, title string) string {
	escaped := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	return "https://" + host + "/wiki/" + escaped
}

// NormalizeCategoryTitle turns a category URL or bare name into a
// "Category:" prefixed title. Returns "" when the value is unusable.
func NormalizeCategoryTitle(host, value string) string {
	t := TitleFromURL(host, value)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, "Category:") {
		return t
	}
	return "Category:" + t
}
