package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/engimpact/dashboard/internal/errors"
	"github.com/engimpact/dashboard/internal/insights"
	"github.com/engimpact/dashboard/internal/monitoring"
	"github.com/engimpact/dashboard/internal/resilience"
)

const githubAPIURL = "https://api.github.com"

// enrichConcurrency bounds the per-PR detail/review fetches running at
// once for a single repository.
const enrichConcurrency = 8

// reviewPayload is the slice of a GitHub review we consume
type reviewPayload struct {
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at"`
	User        struct {
		Login string `json:"login"`
	} `json:"user"`
}

// GitHubAdapter fetches pull request activity from the GitHub API. It
// implements insights.Fetcher.
type GitHubAdapter struct {
	token         string
	pool          *resilience.ConnectionPool
	limiter       *rate.Limiter
	metrics       *monitoring.Metrics
	maxPRsPerRepo int
}

// NewGitHubAdapter creates a new GitHub adapter with connection pooling
// and client-side rate limiting. maxPRsPerRepo caps how many PRs per
// repository are enriched with details and reviews; each enrichment
// costs two API calls.
func NewGitHubAdapter(token string, maxPRsPerRepo int, requestsPerSecond float64, metrics *monitoring.Metrics) *GitHubAdapter {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	pool := resilience.NewConnectionPool(10, 20, 30*time.Second, cb)

	if maxPRsPerRepo <= 0 {
		maxPRsPerRepo = 30
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}

	return &GitHubAdapter{
		token:         token,
		pool:          pool,
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)*2),
		metrics:       metrics,
		maxPRsPerRepo: maxPRsPerRepo,
	}
}

// FetchPullRequests returns the raw pull request payloads for one
// repository, newest first, filtered to the lookback window and capped
// at maxPRsPerRepo. Each payload is enriched with change size, reviewer
// logins, approval count and first review timestamp. Enrichment
// failures degrade that record to its defaults; only the list fetch
// itself can fail.
func (g *GitHubAdapter) FetchPullRequests(ctx context.Context, owner, repo string, days int) ([]insights.RawRecord, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls?state=all&per_page=50&sort=created&direction=desc", githubAPIURL, owner, repo)

	var raws []insights.RawRecord
	if err := g.fetchJSON(ctx, url, &raws); err != nil {
		if g.metrics != nil {
			g.metrics.IncrementFetchFailures()
		}
		return nil, errors.NewFetchError(owner+"/"+repo, err)
	}

	raws = filterByWindow(raws, days, time.Now())
	if len(raws) > g.maxPRsPerRepo {
		raws = raws[:g.maxPRsPerRepo]
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(enrichConcurrency)
	for _, raw := range raws {
		eg.Go(func() error {
			g.enrich(ectx, owner, repo, raw)
			return nil
		})
	}
	_ = eg.Wait()

	return raws, nil
}

// filterByWindow keeps PRs created within the last days days. The list
// is sorted newest first, so iteration stops at the first older PR.
func filterByWindow(raws []insights.RawRecord, days int, now time.Time) []insights.RawRecord {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	kept := make([]insights.RawRecord, 0, len(raws))
	for _, raw := range raws {
		createdAt, ok := raw["created_at"].(string)
		if !ok || createdAt == "" {
			continue
		}
		created, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			continue
		}
		if created.Before(cutoff) {
			break
		}
		kept = append(kept, raw)
	}
	return kept
}

// enrich merges PR details and review activity into the raw payload.
// All failures are swallowed; the normalizer defaults whatever is
// missing.
func (g *GitHubAdapter) enrich(ctx context.Context, owner, repo string, raw insights.RawRecord) {
	number, ok := raw["number"].(float64)
	if !ok || number <= 0 {
		return
	}
	prNumber := int(number)

	var details map[string]any
	detailsURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", githubAPIURL, owner, repo, prNumber)
	if err := g.fetchJSON(ctx, detailsURL, &details); err == nil {
		for _, key := range []string{"additions", "deletions", "changed_files", "review_comments"} {
			if v, ok := details[key]; ok {
				raw[key] = v
			}
		}
	}

	var reviews []reviewPayload
	reviewsURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", githubAPIURL, owner, repo, prNumber)
	if err := g.fetchJSON(ctx, reviewsURL, &reviews); err == nil {
		mergeReviews(raw, reviews)
	}
}

// mergeReviews folds review payloads into the raw record: distinct
// reviewer logins, approval count and the earliest submission time.
func mergeReviews(raw insights.RawRecord, reviews []reviewPayload) {
	seen := make(map[string]struct{})
	reviewers := make([]any, 0, len(reviews))
	approvals := 0
	var firstReview time.Time

	for _, review := range reviews {
		if login := review.User.Login; login != "" {
			if _, dup := seen[login]; !dup {
				seen[login] = struct{}{}
				reviewers = append(reviewers, login)
			}
		}
		if review.State == "APPROVED" {
			approvals++
		}
		if submitted, err := time.Parse(time.RFC3339, review.SubmittedAt); err == nil {
			if firstReview.IsZero() || submitted.Before(firstReview) {
				firstReview = submitted
			}
		}
	}

	raw["reviewers"] = reviewers
	raw["approvals"] = approvals
	if !firstReview.IsZero() {
		raw["first_review_at"] = firstReview.Format(time.RFC3339)
	}
}

// fetchJSON performs a rate-limited GET with retry and decodes the
// response body into target.
func (g *GitHubAdapter) fetchJSON(ctx context.Context, url string, target any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := resilience.RetryHTTPWithPolicy(ctx, resilience.StandardRetryPolicy, func() (*http.Response, error) {
		if g.metrics != nil {
			g.metrics.IncrementGitHubCalls()
		}
		return g.pool.DoRequest(ctx, http.MethodGet, url, g.headers())
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *GitHubAdapter) headers() map[string]string {
	headers := map[string]string{
		"Accept": "application/vnd.github.v3+json",
		// Required by the GitHub API
		"User-Agent": "Eng-Impact-Dashboard/1.0",
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}
	return headers
}

// GetPoolStats returns connection pool statistics
func (g *GitHubAdapter) GetPoolStats() map[string]interface{} {
	return g.pool.GetStats()
}

// Close closes the connection pool
func (g *GitHubAdapter) Close() error {
	return g.pool.Close()
}
