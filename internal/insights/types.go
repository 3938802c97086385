package insights

// InsightsResponse is the aggregate returned to the dashboard frontend.
// The frontend binds to these key names literally, so they are part of
// the API contract.
type InsightsResponse struct {
	Contributors         map[string]int `json:"contributors"`
	ReviewsByContributor map[string]int `json:"reviews_by_contributor"`
	Delivery             DeliveryStats  `json:"delivery"`
	HighImpact           map[string]int `json:"high_impact"`
	Bottlenecks          []BottleneckPR `json:"bottlenecks"`
	Workload             WorkloadReport `json:"workload"`
}

// DeliveryStats holds median delivery timings pooled across all
// requested repositories.
type DeliveryStats struct {
	MedianReviewTimeHours float64 `json:"median_review_time_hours"`
	MedianMergeTimeHours  float64 `json:"median_merge_time_hours"`
}

// BottleneckPR is one flagged pull request with all applicable reason tags.
type BottleneckPR struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Repo        string   `json:"repo"`
	Bottlenecks []string `json:"bottlenecks"`
	URL         string   `json:"url"`
}

// ContributorWorkload aggregates authored and reviewed work for one person.
type ContributorWorkload struct {
	OpenedPRs   int `json:"opened_prs"`
	ReviewedPRs int `json:"reviewed_prs"`
	AuthoredLOC int `json:"authored_loc"`
	ReviewedLOC int `json:"reviewed_loc"`
}

// WorkloadReport is the workload section of the response.
type WorkloadReport struct {
	PerContributor map[string]ContributorWorkload `json:"per_contributor"`
	BurnoutRisk    []string                       `json:"burnout_risk"`
}
