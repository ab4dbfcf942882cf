// Package metadata resolves the title and description of a web page so
// submitted links don't need them typed in by hand.
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metadata is what could be scraped off of a page. Any field may be empty.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	SiteName    string `json:"site_name"`

	// Readable text of the page, used for summarizing.
	Text string `json:"-"`
}

// Empty reports if nothing useful came back.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Description == ""
}

const (
	maxBodyBytes = 2 << 20
	maxFieldLen  = 2048
	maxTextLen   = 8192
)

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "learninghub_metadata_fetch_seconds",
	Help:    "Time taken to fetch page metadata.",
	Buckets: prometheus.DefBuckets,
}, []string{"result"})

// Fetcher grabs page metadata over HTTP, caching successful lookups.
type Fetcher struct {
	client *http.Client
	cache  *lru.Cache[string, Metadata]
}

type Config struct {
	Timeout   time.Duration
	CacheSize int
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}

	cache, err := lru.New[string, Metadata](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating metadata cache: %s", err)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}, nil
}

// Fetch returns the metadata of the page at rawURL.
//
// It never fails: anything going wrong is logged and an empty Metadata is
// returned so callers can fall back to their own placeholders.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Metadata {
	if md, ok := f.cache.Get(rawURL); ok {
		return md
	}

	start := time.Now()
	md, err := f.fetch(ctx, rawURL)
	if err != nil {
		fetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		slog.WarnContext(ctx, "error fetching metadata", "url", rawURL, "error", err)
		return Metadata{}
	}
	fetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	f.cache.Add(rawURL, md)
	return md
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (Metadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Metadata{}, fmt.Errorf("error parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", "learninghub-metadata/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("error getting page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Metadata{}, fmt.Errorf("error reading page: %w", err)
	}

	return parse(body, u)
}

// Pulls the metadata out of a page's html.
//
// Open Graph, then Twitter, then Dublin Core tags win over what readability
// can work out from the document itself.
func parse(body []byte, u *url.URL) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Metadata{}, fmt.Errorf("error parsing html: %w", err)
	}

	md := Metadata{
		Title:       firstMeta(doc, "og:title", "twitter:title", "dc.title", "dc:title"),
		Description: firstMeta(doc, "og:description", "twitter:description", "dc.description", "dc:description"),
		ImageURL:    firstMeta(doc, "og:image", "og:image:url", "twitter:image"),
		SiteName:    firstMeta(doc, "og:site_name"),
	}

	// Readability fills whatever the tags didn't
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), u)
	if err == nil {
		if md.Title == "" {
			md.Title = article.Title
		}
		if md.Description == "" {
			md.Description = article.Excerpt
		}
		if md.SiteName == "" {
			md.SiteName = article.SiteName
		}
		if md.ImageURL == "" {
			md.ImageURL = article.Image
		}
		md.Text = truncate(strings.TrimSpace(article.TextContent), maxTextLen)
	}
	if md.Title == "" {
		md.Title = doc.Find("title").First().Text()
	}

	md.Title = sanitize(md.Title)
	md.Description = sanitize(md.Description)
	md.SiteName = sanitize(md.SiteName)

	return md, nil
}

// Finds the content of the first meta tag present among names, checking both
// the property and name attributes.
func firstMeta(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		var found string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			prop, _ := s.Attr("property")
			if prop == "" {
				prop, _ = s.Attr("name")
			}
			if !strings.EqualFold(prop, name) {
				return true
			}

			found = strings.TrimSpace(s.AttrOr("content", ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}

	return ""
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string and limits its length.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	return truncate(s, maxFieldLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	// Don't cut a multi-byte rune in half
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
