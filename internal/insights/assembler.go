package insights

import "time"

// RepoResult holds the normalized records fetched for one repository.
// A repository whose fetch failed contributes an empty Records slice.
type RepoResult struct {
	Repo    string
	Records []PullRequestRecord
}

// Assembler merges per-repository results into one InsightsResponse.
// Medians are computed over the pooled set of qualifying PRs across all
// repositories rather than per repo, so large repositories are not
// underweighted.
type Assembler struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewAssembler creates an assembler with the given thresholds.
func NewAssembler(t Thresholds) *Assembler {
	return &Assembler{thresholds: t, now: time.Now}
}

// Assemble produces the final aggregate. Per-repo results merge
// commutatively except for the bottleneck list, which keeps input
// encounter order.
func (a *Assembler) Assemble(results []RepoResult) *InsightsResponse {
	all := make([]PullRequestRecord, 0)
	for _, res := range results {
		all = append(all, res.Records...)
	}

	resp := &InsightsResponse{
		Contributors:         make(map[string]int),
		ReviewsByContributor: make(map[string]int),
		HighImpact:           make(map[string]int),
		Bottlenecks:          []BottleneckPR{},
	}

	var reviewTimes, mergeTimes []float64
	scoresByRepo := make(map[string][]float64)

	for _, pr := range all {
		if pr.Merged() {
			resp.Contributors[pr.Author]++
		}
		for _, reviewer := range pr.Reviewers {
			resp.ReviewsByContributor[reviewer]++
		}

		if hours, ok := MergeTimeHours(pr); ok {
			mergeTimes = append(mergeTimes, hours)
		}
		if hours, ok := ReviewTimeHours(pr); ok {
			reviewTimes = append(reviewTimes, hours)
		}

		scoresByRepo[pr.Repo] = append(scoresByRepo[pr.Repo], ImpactScore(pr))
	}

	resp.Delivery = DeliveryStats{
		MedianReviewTimeHours: median(reviewTimes),
		MedianMergeTimeHours:  median(mergeTimes),
	}

	for repo, scores := range scoresByRepo {
		threshold := highImpactThreshold(scores, a.thresholds)
		count := 0
		for _, score := range scores {
			if score > threshold {
				count++
			}
		}
		if count > 0 {
			resp.HighImpact[repo] = count
		}
	}

	// Bottleneck classification needs the pooled median merge time, so
	// it runs as a second pass.
	now := a.now()
	for _, pr := range all {
		tags := BottleneckTags(pr, now, resp.Delivery.MedianMergeTimeHours, a.thresholds)
		if len(tags) == 0 {
			continue
		}
		resp.Bottlenecks = append(resp.Bottlenecks, BottleneckPR{
			Title:       pr.Title,
			Author:      pr.Author,
			Repo:        pr.Repo,
			Bottlenecks: tags,
			URL:         pr.URL,
		})
	}

	resp.Workload = ComputeWorkload(all, a.thresholds.BurnoutShare)
	return resp
}
