package insights

import "sort"

// ComputeWorkload builds the per-contributor workload table and the
// burnout risk list. Work is measured in LOC: authored_loc plus
// reviewed_loc. Contributors are ranked by that sum descending; the top
// 10% by contributor count (at least one) are flagged when their
// combined share of all work reaches burnoutShare. Ties at the decile
// boundary keep first-encounter order.
func ComputeWorkload(records []PullRequestRecord, burnoutShare float64) WorkloadReport {
	per := make(map[string]*ContributorWorkload)
	var order []string

	touch := func(name string) *ContributorWorkload {
		w, ok := per[name]
		if !ok {
			w = &ContributorWorkload{}
			per[name] = w
			order = append(order, name)
		}
		return w
	}

	for _, pr := range records {
		loc := pr.TotalChanges()

		author := touch(pr.Author)
		author.OpenedPRs++
		author.AuthoredLOC += loc

		for _, reviewer := range pr.Reviewers {
			w := touch(reviewer)
			w.ReviewedPRs++
			w.ReviewedLOC += loc
		}
	}

	report := WorkloadReport{
		PerContributor: make(map[string]ContributorWorkload, len(per)),
		BurnoutRisk:    []string{},
	}
	for name, w := range per {
		report.PerContributor[name] = *w
	}
	report.BurnoutRisk = detectBurnout(order, per, burnoutShare)
	return report
}

func detectBurnout(order []string, per map[string]*ContributorWorkload, burnoutShare float64) []string {
	risk := []string{}
	if len(order) == 0 {
		return risk
	}

	work := func(name string) int {
		w := per[name]
		return w.AuthoredLOC + w.ReviewedLOC
	}

	total := 0
	for _, name := range order {
		total += work(name)
	}
	if total == 0 {
		return risk
	}

	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return work(ranked[i]) > work(ranked[j])
	})

	topCount := len(ranked) / 10
	if topCount < 1 {
		topCount = 1
	}

	combined := 0
	for _, name := range ranked[:topCount] {
		combined += work(name)
	}

	if float64(combined)/float64(total) >= burnoutShare {
		risk = append(risk, ranked[:topCount]...)
	}
	return risk
}
