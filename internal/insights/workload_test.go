package insights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWorkload_Totals(t *testing.T) {
	records := []PullRequestRecord{
		{Author: "alice", Additions: 100, Deletions: 20, Reviewers: []string{"bob", "carol"}},
		{Author: "bob", Additions: 50, Reviewers: []string{"alice"}},
		{Author: "alice", Additions: 10, Deletions: 10},
	}

	report := ComputeWorkload(records, 0.40)
	require.Len(t, report.PerContributor, 3)

	alice := report.PerContributor["alice"]
	assert.Equal(t, 2, alice.OpenedPRs)
	assert.Equal(t, 140, alice.AuthoredLOC)
	assert.Equal(t, 1, alice.ReviewedPRs)
	assert.Equal(t, 50, alice.ReviewedLOC)

	bob := report.PerContributor["bob"]
	assert.Equal(t, 1, bob.OpenedPRs)
	assert.Equal(t, 50, bob.AuthoredLOC)
	assert.Equal(t, 1, bob.ReviewedPRs)
	assert.Equal(t, 120, bob.ReviewedLOC)

	carol := report.PerContributor["carol"]
	assert.Zero(t, carol.OpenedPRs)
	assert.Zero(t, carol.AuthoredLOC)
	assert.Equal(t, 1, carol.ReviewedPRs)
	assert.Equal(t, 120, carol.ReviewedLOC)

	// Every line authored is also counted once per reviewer, so the sums
	// must reconcile against the input records.
	authored := 0
	for _, w := range report.PerContributor {
		authored += w.AuthoredLOC
	}
	assert.Equal(t, 190, authored)
}

func TestComputeWorkload_Empty(t *testing.T) {
	report := ComputeWorkload(nil, 0.40)
	assert.Empty(t, report.PerContributor)
	assert.NotNil(t, report.BurnoutRisk)
	assert.Empty(t, report.BurnoutRisk)
}

func TestDetectBurnout(t *testing.T) {
	// Ten contributors; the heaviest holds 45% of all work.
	heavy := []PullRequestRecord{{Author: "heavy", Additions: 450}}
	for i := 0; i < 9; i++ {
		heavy = append(heavy, PullRequestRecord{
			Author:    fmt.Sprintf("dev%d", i),
			Additions: 61, // 9 x 61 = 549, heavy share = 450/999 ≈ 45%
		})
	}

	t.Run("top decile over the share is flagged", func(t *testing.T) {
		report := ComputeWorkload(heavy, 0.40)
		assert.Equal(t, []string{"heavy"}, report.BurnoutRisk)
	})

	t.Run("top decile under the share is not flagged", func(t *testing.T) {
		// Same crowd but evenly loaded; no one reaches 40%.
		var even []PullRequestRecord
		for i := 0; i < 10; i++ {
			even = append(even, PullRequestRecord{
				Author:    fmt.Sprintf("dev%d", i),
				Additions: 100,
			})
		}
		report := ComputeWorkload(even, 0.40)
		assert.Empty(t, report.BurnoutRisk)
	})

	t.Run("fewer than ten contributors still considers one", func(t *testing.T) {
		records := []PullRequestRecord{
			{Author: "alice", Additions: 90},
			{Author: "bob", Additions: 10},
		}
		report := ComputeWorkload(records, 0.40)
		assert.Equal(t, []string{"alice"}, report.BurnoutRisk)
	})

	t.Run("ties at the boundary keep encounter order", func(t *testing.T) {
		records := []PullRequestRecord{
			{Author: "first", Additions: 100},
			{Author: "second", Additions: 100},
		}
		report := ComputeWorkload(records, 0.40)
		assert.Equal(t, []string{"first"}, report.BurnoutRisk)
	})

	t.Run("zero total work flags no one", func(t *testing.T) {
		records := []PullRequestRecord{
			{Author: "alice"},
			{Author: "bob"},
		}
		report := ComputeWorkload(records, 0.40)
		assert.Empty(t, report.BurnoutRisk)
	})
}
