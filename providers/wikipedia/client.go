// Package wikipedia fetches encyclopedia articles via the Wikimedia REST API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"research-agent/core/models"
	"research-agent/core/textproc"
)

const (
	sourceName        = "wikipedia"
	contentMaxLength  = 2000
	contentParagraphs = 3
	relevanceScore    = 80 // Encyclopedia articles rank as consistently high quality
)

// Client queries the Wikipedia REST API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Wikipedia client with a fixed request timeout
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name returns the provider identifier
func (c *Client) Name() string { return sourceName }

type searchResponse struct {
	Pages []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
	} `json:"pages"`
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Search finds up to limit articles related to the topic. Individual page
// lookups that fail are skipped.
func (c *Client) Search(ctx context.Context, topic string, limit int) ([]models.FetchedArticle, error) {
	searchURL := fmt.Sprintf("%s/page/search/%s?limit=%d", c.baseURL, url.PathEscape(topic), limit)

	var search searchResponse
	if err := c.getJSON(ctx, searchURL, &search); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}

	var articles []models.FetchedArticle
	for _, page := range search.Pages {
		if len(articles) >= limit {
			break
		}
		article, err := c.pageDetails(ctx, page.Key)
		if err != nil {
			c.logger.Warn("wikipedia page lookup failed", "page", page.Key, "error", err)
			continue
		}
		articles = append(articles, *article)
	}
	return articles, nil
}

func (c *Client) pageDetails(ctx context.Context, pageKey string) (*models.FetchedArticle, error) {
	var summary summaryResponse
	summaryURL := fmt.Sprintf("%s/page/summary/%s", c.baseURL, url.PathEscape(pageKey))
	if err := c.getJSON(ctx, summaryURL, &summary); err != nil {
		return nil, fmt.Errorf("page summary: %w", err)
	}

	content, err := c.pageText(ctx, pageKey)
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}

	return &models.FetchedArticle{
		Title:          summary.Title,
		URL:            summary.ContentURLs.Desktop.Page,
		Summary:        summary.Extract,
		Content:        content,
		Source:         sourceName,
		RelevanceScore: relevanceScore,
	}, nil
}

// pageText pulls the lead paragraphs out of the article HTML
func (c *Client) pageText(ctx context.Context, pageKey string) (string, error) {
	htmlURL := fmt.Sprintf("%s/page/html/%s", c.baseURL, url.PathEscape(pageKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, htmlURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var paragraphs []string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < contentParagraphs
	})

	return textproc.Truncate(strings.Join(paragraphs, " "), contentMaxLength), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
