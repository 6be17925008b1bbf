package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/mrlokans/bookclub/internal/ratelimit"
)

// Summary is an encyclopedia page summary.
type Summary struct {
	Title        string
	Markdown     string
	ThumbnailURL string
}

// WikipediaClient reads page summaries from the Wikipedia REST API.
type WikipediaClient struct {
	http    *httpClient
	baseURL string
}

func NewWikipediaClient(baseURL string, limiter *ratelimit.KeyedRateLimiter) *WikipediaClient {
	return &WikipediaClient{
		http:    newHTTPClient("wikipedia", 10*time.Second, limiter),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type wikiSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
	Thumbnail   *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// Summary looks up the page for title. Disambiguation pages count as not found.
func (c *WikipediaClient) Summary(ctx context.Context, title string) (*Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrNotFound
	}
	endpoint := fmt.Sprintf("%s/page/summary/%s", c.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.http.do(req)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var page wikiSummary
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("wikipedia: decode response: %w", err)
	}
	if page.Type == "disambiguation" || (page.Extract == "" && page.ExtractHTML == "") {
		return nil, ErrNotFound
	}

	summary := &Summary{Title: page.Title, Markdown: toMarkdown(page.ExtractHTML, page.Extract)}
	if page.Thumbnail != nil {
		summary.ThumbnailURL = page.Thumbnail.Source
	}
	return summary, nil
}

// SummaryFor tries the author page first, then the book title.
func (c *WikipediaClient) SummaryFor(ctx context.Context, author, title string) (*Summary, error) {
	var lastErr error = ErrNotFound
	for _, candidate := range []string{author, title} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		s, err := c.Summary(ctx, candidate)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}
	return nil, lastErr
}

func toMarkdown(html, plain string) string {
	if html == "" {
		return plain
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return plain
	}
	return strings.TrimSpace(md)
}
