package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chainletter/ChainLetter/internal/pkg/env"
)

// ErrNotFound is returned when the CMS has no article for a slug.
var ErrNotFound = errors.New("article not found")

// Client talks to the headless CMS. Article metadata (cheap, includes the
// premium flag) and the full body (expensive, gated) are fetched through
// separate calls so the access decision stays in front of the body fetch.
type Client struct {
	BaseURL  string
	APIToken string

	HTTPClient *http.Client
}

// ArticleMeta is the cheap projection of an article used for listings and
// the access decision. It never contains the body.
type ArticleMeta struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Author      string    `json:"author"`
	IsPremium   bool      `json:"is_premium"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
}

// ArticleBody is the expensive payload, fetched only after the access
// decision allowed it.
type ArticleBody struct {
	Slug string `json:"slug"`
	HTML string `json:"html"`
}

func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:  strings.TrimRight(env.GetEnv("CMS_API_URL", ""), "/"),
		APIToken: strings.TrimSpace(env.GetEnv("CMS_API_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListArticles returns published article metadata, newest first.
func (c *Client) ListArticles(ctx context.Context, limit int) ([]ArticleMeta, error) {
	u, err := url.Parse(c.BaseURL + "/articles")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("sort", "-published_at")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	var out struct {
		Data []ArticleMeta `json:"data"`
	}
	if err := c.getJSON(ctx, u.String(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetArticleMeta fetches the metadata projection for a single article.
func (c *Client) GetArticleMeta(ctx context.Context, slug string) (*ArticleMeta, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, errors.New("slug is required")
	}

	var out struct {
		Data ArticleMeta `json:"data"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/articles/"+url.PathEscape(slug), &out); err != nil {
		return nil, err
	}
	if out.Data.Slug == "" {
		return nil, ErrNotFound
	}
	return &out.Data, nil
}

// GetArticleBody fetches the full rendered body. Callers must have made the
// access decision before calling this; gated content is never fetched for
// unentitled readers.
func (c *Client) GetArticleBody(ctx context.Context, slug string) (*ArticleBody, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, errors.New("slug is required")
	}

	var out struct {
		Data ArticleBody `json:"data"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/articles/"+url.PathEscape(slug)+"/body", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	if c.BaseURL == "" {
		return errors.New("CMS_API_URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cms request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}
