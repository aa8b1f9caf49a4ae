// Package workflow runs the five-stage research pipeline for a submitted
// request: input_parsing, data_gathering, processing, result_persistence and
// return_results. Each stage writes a durable log entry before and after its
// work and pushes best-effort progress events; the first stage failure ends
// the workflow.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"research-agent/core/aggregator"
	"research-agent/core/models"
	"research-agent/core/progress"
	"research-agent/core/repository"
	"research-agent/core/textproc"
)

const (
	topicMinLength = 3
	topicMaxLength = 500

	maxTopArticles      = 5
	maxCombinedKeywords = 10
	maxSummaryLength    = 1000
)

// Orchestrator executes research workflows
type Orchestrator struct {
	requests   repository.RequestStore
	logs       repository.WorklogStore
	articles   repository.ArticleStore
	aggregator *aggregator.Aggregator
	hub        *progress.Hub
	logger     *slog.Logger
}

// New creates an orchestrator
func New(
	requests repository.RequestStore,
	logs repository.WorklogStore,
	articles repository.ArticleStore,
	agg *aggregator.Aggregator,
	hub *progress.Hub,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		requests:   requests,
		logs:       logs,
		articles:   articles,
		aggregator: agg,
		hub:        hub,
		logger:     logger,
	}
}

// stageError records which stage a workflow failure originated in
type stageError struct {
	step models.WorkflowStep
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// Run executes the full workflow for a request. It is called by exactly one
// background worker; all failures are converted into a failed request state
// here rather than returned.
func (o *Orchestrator) Run(ctx context.Context, requestID string) {
	o.logger.Info("starting research workflow", "request_id", requestID)

	req, err := o.requests.GetRequest(ctx, requestID)
	if err != nil {
		o.logger.Error("workflow request lookup failed", "request_id", requestID, "error", err)
		return
	}

	if err := o.requests.UpdateStatus(ctx, requestID, models.StatusProcessing, nil, ""); err != nil {
		o.logger.Error("failed to mark request processing", "request_id", requestID, "error", err)
		return
	}

	start := time.Now()
	results, err := o.execute(ctx, req, start)
	if err != nil {
		o.fail(ctx, requestID, err)
		return
	}

	if err := o.requests.UpdateStatus(ctx, requestID, models.StatusCompleted, results, ""); err != nil {
		o.logger.Error("failed to mark request completed", "request_id", requestID, "error", err)
		return
	}
	o.hub.Publish(requestID, progress.CompletionEvent(true, results, ""))
	o.logger.Info("research workflow completed", "request_id", requestID, "elapsed", time.Since(start))
}

func (o *Orchestrator) execute(ctx context.Context, req *models.ResearchRequest, start time.Time) (*models.ResearchResults, error) {
	topic, err := o.parseInput(ctx, req)
	if err != nil {
		return nil, err
	}

	gathered, err := o.gatherData(ctx, req.ID, topic)
	if err != nil {
		return nil, err
	}

	processed, err := o.process(ctx, req.ID, gathered)
	if err != nil {
		return nil, err
	}

	if err := o.persistResults(ctx, req.ID, gathered); err != nil {
		return nil, err
	}

	return o.assembleResults(ctx, req.ID, topic, processed, start)
}

// parseInput is stage 1: validation-after-the-fact of the stored topic
func (o *Orchestrator) parseInput(ctx context.Context, req *models.ResearchRequest) (string, error) {
	var cleaned string
	err := o.runStage(ctx, req.ID, models.StepInputParsing, 0, "Validating and parsing input topic",
		func() (string, map[string]interface{}, error) {
			cleaned = strings.TrimSpace(req.Topic)
			// Bounds are in characters, not bytes.
			length := utf8.RuneCountInString(cleaned)
			if length < topicMinLength {
				return "", nil, fmt.Errorf("topic must be at least %d characters long", topicMinLength)
			}
			if length > topicMaxLength {
				return "", nil, fmt.Errorf("topic must be less than %d characters", topicMaxLength)
			}

			details := map[string]interface{}{
				"original_topic":    req.Topic,
				"cleaned_topic":     cleaned,
				"topic_length":      length,
				"validation_passed": true,
			}
			return "Input validation completed successfully", details, nil
		})
	return cleaned, err
}

// gatherData is stage 2: concurrent provider fan-out via the aggregator
func (o *Orchestrator) gatherData(ctx context.Context, requestID, topic string) ([]models.FetchedArticle, error) {
	var gathered []models.FetchedArticle
	err := o.runStage(ctx, requestID, models.StepDataGathering, 1, "Fetching articles from external APIs",
		func() (string, map[string]interface{}, error) {
			gathered = o.aggregator.Gather(ctx, topic)
			details := map[string]interface{}{
				"articles_count": len(gathered),
				"sources":        distinctSources(gathered),
			}
			return fmt.Sprintf("Successfully gathered %d articles", len(gathered)), details, nil
		})
	return gathered, err
}

type processedData struct {
	keywords []string
	summary  string
	sources  []string
	total    int
}

// process is stage 3: combined keyword and summary derivation
func (o *Orchestrator) process(ctx context.Context, requestID string, gathered []models.FetchedArticle) (*processedData, error) {
	var data processedData
	err := o.runStage(ctx, requestID, models.StepProcessing, 2, "Processing articles and extracting insights",
		func() (string, map[string]interface{}, error) {
			data.keywords = combineKeywords(gathered, maxCombinedKeywords)
			data.summary = combineSummaries(gathered, maxSummaryLength)
			data.sources = distinctSources(gathered)
			data.total = len(gathered)

			details := map[string]interface{}{
				"keywords_extracted": len(data.keywords),
				"summary_length":     len(data.summary),
				"sources":            data.sources,
			}
			return fmt.Sprintf("Processing completed: %d articles processed", len(gathered)), details, nil
		})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// persistResults is stage 4: article rows under the request
func (o *Orchestrator) persistResults(ctx context.Context, requestID string, gathered []models.FetchedArticle) error {
	return o.runStage(ctx, requestID, models.StepResultPersistence, 3, "Saving processed results to database",
		func() (string, map[string]interface{}, error) {
			saved := 0
			for _, candidate := range gathered {
				article := &models.Article{
					RequestID:      requestID,
					Title:          candidate.Title,
					URL:            candidate.URL,
					Source:         candidate.Source,
					Content:        candidate.Content,
					Summary:        candidate.Summary,
					Keywords:       candidate.Keywords,
					PublishedAt:    candidate.PublishedAt,
					RelevanceScore: candidate.RelevanceScore,
				}
				if err := o.articles.CreateArticle(ctx, article); err != nil {
					return "", nil, fmt.Errorf("persist article %q: %w", candidate.Title, err)
				}
				saved++
			}

			details := map[string]interface{}{
				"articles_saved": saved,
			}
			return fmt.Sprintf("Results persisted: %d articles saved", saved), details, nil
		})
}

// assembleResults is stage 5: reload persisted state and build the payload
func (o *Orchestrator) assembleResults(ctx context.Context, requestID, topic string, processed *processedData, start time.Time) (*models.ResearchResults, error) {
	var results *models.ResearchResults
	err := o.runStage(ctx, requestID, models.StepReturnResults, 4, "Preparing final structured results",
		func() (string, map[string]interface{}, error) {
			articles, err := o.articles.ListArticles(ctx, requestID, maxTopArticles)
			if err != nil {
				return "", nil, fmt.Errorf("load persisted articles: %w", err)
			}

			top := make([]models.ArticleResult, 0, len(articles))
			for _, a := range articles {
				top = append(top, models.ArticleResult{
					ID:             a.ID,
					Title:          a.Title,
					URL:            a.URL,
					Source:         a.Source,
					Summary:        a.Summary,
					Keywords:       a.Keywords,
					RelevanceScore: a.RelevanceScore,
				})
			}

			elapsed := time.Since(start).Milliseconds()
			results = &models.ResearchResults{
				Topic:            topic,
				Summary:          processed.summary,
				TopArticles:      top,
				Keywords:         processed.keywords,
				Sources:          processed.sources,
				TotalArticles:    processed.total,
				ProcessingTimeMs: elapsed,
				CompletedAt:      time.Now().UTC(),
			}

			details := map[string]interface{}{
				"processing_time_ms": elapsed,
				"articles_returned":  len(articles),
				"keywords_count":     len(processed.keywords),
			}
			return "Research workflow completed successfully", details, nil
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// runStage applies the uniform per-stage protocol: a started log entry before
// the work, a completed or failed entry after, progress events around both.
// Failures are wrapped with the stage they originated in.
func (o *Orchestrator) runStage(ctx context.Context, requestID string, step models.WorkflowStep, index int, startMessage string, work func() (string, map[string]interface{}, error)) error {
	logID, err := o.logs.CreateLog(ctx, requestID, step, models.LogStatusStarted, startMessage, nil)
	if err != nil {
		return &stageError{step: step, err: fmt.Errorf("create stage log: %w", err)}
	}
	o.hub.Publish(requestID, progress.ProgressEvent(step, models.LogStatusStarted, startMessage, index*20, nil))

	message, details, err := work()
	if err != nil {
		failMessage := fmt.Sprintf("%s failed: %v", stageLabel(step), err)
		if logErr := o.logs.UpdateLog(ctx, logID, models.LogStatusFailed, failMessage, nil); logErr != nil {
			o.logger.Warn("failed to record stage failure", "request_id", requestID, "step", step, "error", logErr)
		}
		o.hub.Publish(requestID, progress.ProgressEvent(step, models.LogStatusFailed, failMessage, index*20, nil))
		return &stageError{step: step, err: err}
	}

	if err := o.logs.UpdateLog(ctx, logID, models.LogStatusCompleted, message, details); err != nil {
		return &stageError{step: step, err: fmt.Errorf("complete stage log: %w", err)}
	}
	o.hub.Publish(requestID, progress.ProgressEvent(step, models.LogStatusCompleted, message, (index+1)*20, details))
	return nil
}

// fail converts any stage error into the terminal failed state. The
// workflow-level failure entry is logged under the stage that actually
// failed, so the log's stage field indicates root cause.
func (o *Orchestrator) fail(ctx context.Context, requestID string, err error) {
	o.logger.Error("research workflow failed", "request_id", requestID, "error", err)

	step := models.StepReturnResults
	var serr *stageError
	if errors.As(err, &serr) {
		step = serr.step
	}

	message := fmt.Sprintf("Workflow failed: %v", err)
	if _, logErr := o.logs.CreateLog(ctx, requestID, step, models.LogStatusFailed, message, nil); logErr != nil {
		o.logger.Warn("failed to record workflow failure", "request_id", requestID, "error", logErr)
	}
	if updErr := o.requests.UpdateStatus(ctx, requestID, models.StatusFailed, nil, err.Error()); updErr != nil {
		// The request may have been deleted while the worker was running.
		o.logger.Warn("failed to mark request failed", "request_id", requestID, "error", updErr)
	}
	o.hub.Publish(requestID, progress.CompletionEvent(false, nil, err.Error()))
}

func stageLabel(step models.WorkflowStep) string {
	switch step {
	case models.StepInputParsing:
		return "Input validation"
	case models.StepDataGathering:
		return "Data gathering"
	case models.StepProcessing:
		return "Processing"
	case models.StepResultPersistence:
		return "Result persistence"
	case models.StepReturnResults:
		return "Return results"
	default:
		return string(step)
	}
}

// combineKeywords merges per-article keyword lists and ranks by cross-article
// frequency, ties keeping first-seen order
func combineKeywords(articles []models.FetchedArticle, max int) []string {
	freq := make(map[string]int)
	var order []string
	for _, a := range articles {
		for _, kw := range a.Keywords {
			if freq[kw] == 0 {
				order = append(order, kw)
			}
			freq[kw]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}

// combineSummaries joins per-article summaries with single spaces, capped
func combineSummaries(articles []models.FetchedArticle, maxLen int) string {
	var parts []string
	for _, a := range articles {
		if a.Summary != "" {
			parts = append(parts, a.Summary)
		}
	}
	return textproc.Truncate(strings.Join(parts, " "), maxLen)
}

// distinctSources returns the distinct provider identifiers in first-seen order
func distinctSources(articles []models.FetchedArticle) []string {
	seen := make(map[string]struct{})
	sources := []string{}
	for _, a := range articles {
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		sources = append(sources, a.Source)
	}
	return sources
}
