// Package hackernews fetches discussion stories via the Hacker News Firebase API.
package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"research-agent/core/models"
	"research-agent/core/textproc"
)

const (
	sourceName       = "hackernews"
	maxStoriesToScan = 50
	detailBatchSize  = 10
	summaryMaxLength = 500
	maxScore         = 100
)

// Client queries the Hacker News API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Hacker News client with a fixed request timeout
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name returns the provider identifier
func (c *Client) Name() string { return sourceName }

type item struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Deleted bool   `json:"deleted"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Text    string `json:"text"`
	Score   int    `json:"score"`
	Time    int64  `json:"time"`
}

// Search scans the current top stories for ones matching the topic and
// returns up to limit of them. Detail lookups run in fixed-size concurrent
// batches; a failed lookup only drops that story.
func (c *Client) Search(ctx context.Context, topic string, limit int) ([]models.FetchedArticle, error) {
	var storyIDs []int64
	if err := c.getJSON(ctx, c.baseURL+"/topstories.json", &storyIDs); err != nil {
		return nil, fmt.Errorf("hackernews top stories: %w", err)
	}
	if len(storyIDs) > maxStoriesToScan {
		storyIDs = storyIDs[:maxStoriesToScan]
	}

	terms := strings.Fields(strings.ToLower(topic))

	var relevant []models.FetchedArticle
	for start := 0; start < len(storyIDs) && len(relevant) < limit; start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(storyIDs) {
			end = len(storyIDs)
		}

		for _, story := range c.fetchBatch(ctx, storyIDs[start:end]) {
			if !isRelevant(story, terms) {
				continue
			}
			relevant = append(relevant, toArticle(story))
			if len(relevant) >= limit {
				break
			}
		}
	}
	return relevant, nil
}

// fetchBatch retrieves item details concurrently, preserving id order
func (c *Client) fetchBatch(ctx context.Context, ids []int64) []*item {
	results := make([]*item, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			var it item
			url := fmt.Sprintf("%s/item/%d.json", c.baseURL, id)
			if err := c.getJSON(ctx, url, &it); err != nil {
				c.logger.Warn("hackernews item lookup failed", "id", id, "error", err)
				return
			}
			results[i] = &it
		}(i, id)
	}
	wg.Wait()

	var stories []*item
	for _, it := range results {
		if it != nil && it.Type == "story" && !it.Deleted {
			stories = append(stories, it)
		}
	}
	return stories
}

func isRelevant(story *item, terms []string) bool {
	title := strings.ToLower(story.Title)
	text := strings.ToLower(story.Text)
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func toArticle(story *item) models.FetchedArticle {
	article := models.FetchedArticle{
		Title:          story.Title,
		URL:            story.URL,
		Content:        plainText(story.Text),
		Source:         sourceName,
		RelevanceScore: story.Score,
	}
	if article.URL == "" {
		article.URL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
	}
	if article.RelevanceScore > maxScore {
		article.RelevanceScore = maxScore
	}
	if article.Content != "" {
		article.Summary = textproc.Truncate(article.Content, summaryMaxLength)
	}
	if story.Time > 0 {
		published := time.Unix(story.Time, 0).UTC()
		article.PublishedAt = &published
	}
	return article
}

// plainText strips the HTML markup HN embeds in story text fields
func plainText(htmlText string) string {
	if htmlText == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return htmlText
	}
	return strings.TrimSpace(doc.Text())
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
