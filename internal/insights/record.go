package insights

import (
	"strings"
	"time"
)

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	StateOpen   PRState = "open"
	StateMerged PRState = "merged"
	StateClosed PRState = "closed"
)

// RawRecord is one pull request payload as returned by the fetch
// collaborator. Payloads are arbitrary and possibly incomplete; every
// lookup resolves to a documented default instead of failing.
type RawRecord map[string]any

// PullRequestRecord is the uniform internal representation of a pull
// request. It is constructed once by Normalize and immutable afterwards.
type PullRequestRecord struct {
	ID             int64
	Repo           string
	Author         string
	Title          string
	URL            string
	State          PRState
	CreatedAt      time.Time // zero when the payload carried no usable timestamp
	MergedAt       *time.Time
	ClosedAt       *time.Time
	FirstReviewAt  *time.Time
	Additions      int
	Deletions      int
	Reviewers      []string
	Approvals      int
	ReviewComments int
}

// TotalChanges returns additions plus deletions.
func (pr PullRequestRecord) TotalChanges() int {
	return pr.Additions + pr.Deletions
}

// Merged reports whether the pull request has a merge timestamp.
func (pr PullRequestRecord) Merged() bool {
	return pr.MergedAt != nil
}

// Normalize converts the raw payloads for one repository into uniform
// records. It is total: malformed fields fall back to defaults and no
// payload causes a failure. repo is used when the payload does not name
// its repository itself.
func Normalize(repo string, raws []RawRecord) []PullRequestRecord {
	records := make([]PullRequestRecord, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		records = append(records, normalizeOne(repo, raw))
	}
	return records
}

func normalizeOne(repo string, raw RawRecord) PullRequestRecord {
	pr := PullRequestRecord{
		ID:     int64(raw.intField("number")),
		Repo:   raw.repoName(repo),
		Author: raw.author(),
		Title:  raw.stringField("title"),
		URL:    raw.urlField(),

		Additions:      raw.intField("additions"),
		Deletions:      raw.intField("deletions"),
		Approvals:      raw.intField("approvals"),
		ReviewComments: raw.reviewComments(),
		Reviewers:      raw.reviewers(),

		CreatedAt:     raw.timeField("created_at"),
		MergedAt:      raw.timePtrField("merged_at"),
		ClosedAt:      raw.timePtrField("closed_at"),
		FirstReviewAt: raw.timePtrField("first_review_at"),
	}

	if pr.ID == 0 {
		pr.ID = int64(raw.intField("id"))
	}

	// A merge timestamp earlier than creation is malformed; treat the
	// record as unmerged rather than producing negative cycle times.
	if pr.MergedAt != nil && !pr.CreatedAt.IsZero() && pr.MergedAt.Before(pr.CreatedAt) {
		pr.MergedAt = nil
	}

	pr.State = resolveState(raw.stringField("state"), pr.MergedAt)
	return pr
}

func resolveState(state string, mergedAt *time.Time) PRState {
	if mergedAt != nil {
		return StateMerged
	}
	if strings.EqualFold(state, string(StateClosed)) {
		return StateClosed
	}
	return StateOpen
}

// repoName prefers the repository name embedded in the payload (GitHub
// nests it under base.repo.full_name) and falls back to the repo the
// payload was fetched for.
func (r RawRecord) repoName(fallback string) string {
	if name := r.child("base").child("repo").stringField("full_name"); name != "" {
		return name
	}
	if name := r.stringField("repo"); name != "" {
		return name
	}
	return fallback
}

func (r RawRecord) author() string {
	if login := r.child("user").stringField("login"); login != "" {
		return login
	}
	if login := r.stringField("author"); login != "" {
		return login
	}
	return "unknown"
}

func (r RawRecord) urlField() string {
	if u := r.stringField("html_url"); u != "" {
		return u
	}
	return r.stringField("url")
}

func (r RawRecord) reviewComments() int {
	if _, ok := r["review_comments_count"]; ok {
		return r.intField("review_comments_count")
	}
	return r.intField("review_comments")
}

func (r RawRecord) reviewers() []string {
	var logins []string
	switch v := r["reviewers"].(type) {
	case []string:
		logins = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				logins = append(logins, s)
			}
		}
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(logins))
	reviewers := make([]string, 0, len(logins))
	for _, login := range logins {
		if login == "" {
			continue
		}
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		reviewers = append(reviewers, login)
	}
	return reviewers
}

func (r RawRecord) child(key string) RawRecord {
	if m, ok := r[key].(map[string]any); ok {
		return RawRecord(m)
	}
	return nil
}

func (r RawRecord) stringField(key string) string {
	s, _ := r[key].(string)
	return s
}

// intField accepts the numeric shapes a decoded JSON payload can carry.
// Anything else defaults to 0.
func (r RawRecord) intField(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (r RawRecord) timeField(key string) time.Time {
	if t := r.timePtrField(key); t != nil {
		return *t
	}
	return time.Time{}
}

func (r RawRecord) timePtrField(key string) *time.Time {
	switch v := r[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil
		}
		return &t
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t := v
		return &t
	default:
		return nil
	}
}
