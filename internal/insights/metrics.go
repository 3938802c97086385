package insights

import (
	"time"
)

// Bottleneck reason tags. The frontend renders these verbatim.
const (
	TagOpenTooLong      = "open_too_long"
	TagNoReviewers      = "no_reviewers"
	TagNoReviewActivity = "no_review_activity"
)

// Thresholds holds the tunable classification constants of the metrics
// engine.
type Thresholds struct {
	// BottleneckAgeDays is how long a PR may stay open before it is
	// flagged open_too_long.
	BottleneckAgeDays int

	// HighImpactMinSample is the minimum number of scored PRs a repo
	// needs before the percentile threshold applies; below it the
	// absolute HighImpactFallback is used.
	HighImpactMinSample int
	HighImpactFallback  float64

	// BurnoutShare is the combined work share at which the top decile
	// of contributors is flagged.
	BurnoutShare float64
}

// DefaultThresholds returns the product defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BottleneckAgeDays:   7,
		HighImpactMinSample: 5,
		HighImpactFallback:  500,
		BurnoutShare:        0.40,
	}
}

// ImpactScore weights the size of a change by how much review attention
// it received: (additions + deletions) * (reviewers + approvals + 1).
// It is defined for every record and never negative.
func ImpactScore(pr PullRequestRecord) float64 {
	return float64(pr.TotalChanges()) * float64(len(pr.Reviewers)+pr.Approvals+1)
}

// CycleTimeHours returns the hours from creation to merge. The second
// return is false for records excluded from time-based metrics
// (unmerged, or missing a usable creation timestamp).
func CycleTimeHours(pr PullRequestRecord) (float64, bool) {
	if pr.MergedAt == nil || pr.CreatedAt.IsZero() {
		return 0, false
	}
	return pr.MergedAt.Sub(pr.CreatedAt).Hours(), true
}

// MergeTimeHours is the merge latency of a PR, identical to its cycle
// time.
func MergeTimeHours(pr PullRequestRecord) (float64, bool) {
	return CycleTimeHours(pr)
}

// ReviewTimeHours returns the hours from creation to the first review
// activity. When no review timestamp is known the merge time serves as
// a proxy; PRs with neither are excluded.
func ReviewTimeHours(pr PullRequestRecord) (float64, bool) {
	if pr.CreatedAt.IsZero() {
		return 0, false
	}
	if pr.FirstReviewAt != nil && !pr.FirstReviewAt.Before(pr.CreatedAt) {
		return pr.FirstReviewAt.Sub(pr.CreatedAt).Hours(), true
	}
	return CycleTimeHours(pr)
}

// BottleneckTags classifies one PR against the bottleneck rules. A PR
// may carry several tags; the returned order is fixed so output is
// deterministic. medianMergeHours is the pooled median merge time of
// the current window.
func BottleneckTags(pr PullRequestRecord, now time.Time, medianMergeHours float64, t Thresholds) []string {
	var tags []string

	if pr.State == StateOpen && !pr.CreatedAt.IsZero() {
		age := now.Sub(pr.CreatedAt)
		if age > time.Duration(t.BottleneckAgeDays)*24*time.Hour {
			tags = append(tags, TagOpenTooLong)
		}
	}

	if len(pr.Reviewers) == 0 {
		if pr.State == StateOpen || closedSlowerThanMedian(pr, medianMergeHours) {
			tags = append(tags, TagNoReviewers)
		}
	}

	if pr.ReviewComments == 0 && pr.Approvals == 0 {
		tags = append(tags, TagNoReviewActivity)
	}

	return tags
}

// closedSlowerThanMedian reports whether a finished PR took longer than
// the median merge time to reach its terminal state.
func closedSlowerThanMedian(pr PullRequestRecord, medianMergeHours float64) bool {
	if pr.CreatedAt.IsZero() {
		return false
	}
	var done *time.Time
	switch {
	case pr.MergedAt != nil:
		done = pr.MergedAt
	case pr.ClosedAt != nil:
		done = pr.ClosedAt
	default:
		return false
	}
	return done.Sub(pr.CreatedAt).Hours() > medianMergeHours
}

// highImpactThreshold returns the score a PR must exceed to count as
// high impact within its repository. Small samples fall back to an
// absolute threshold because a percentile over a handful of PRs is
// noise.
func highImpactThreshold(scores []float64, t Thresholds) float64 {
	if len(scores) < t.HighImpactMinSample {
		return t.HighImpactFallback
	}
	return percentile(scores, 90)
}
