package insights

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/engimpact/dashboard/internal/errors"
)

// DefaultWindowDays is the lookback window applied when a request does
// not specify one.
const DefaultWindowDays = 30

// Fetcher returns the raw pull request payloads for one repository over
// the lookback window. Implementations own retries; the analyzer treats
// any returned error as "this repository contributes zero records".
type Fetcher interface {
	FetchPullRequests(ctx context.Context, owner, repo string, days int) ([]RawRecord, error)
}

// Analyzer orchestrates the insights pipeline: concurrent per-repo
// fetch, normalization, metric extraction and assembly.
type Analyzer struct {
	fetcher   Fetcher
	assembler *Assembler
}

// NewAnalyzer creates an analyzer over the given fetch collaborator.
func NewAnalyzer(fetcher Fetcher, t Thresholds) *Analyzer {
	return &Analyzer{
		fetcher:   fetcher,
		assembler: NewAssembler(t),
	}
}

// AnalyzeRepos computes the aggregate insights for the requested
// repositories. Repository identifiers without an "owner/name" shape
// are dropped up front; if none survive the request is rejected as
// invalid. Individual fetch failures degrade that repository to zero
// records and never fail the request. Context cancellation aborts the
// whole request; partial results are never returned.
func (a *Analyzer) AnalyzeRepos(ctx context.Context, repos []string, days int) (*InsightsResponse, error) {
	valid := filterRepos(repos)
	if len(valid) == 0 {
		return nil, errors.NewValidationError("no valid repositories supplied (use owner/name)")
	}
	if days <= 0 {
		days = DefaultWindowDays
	}

	results := make([]RepoResult, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range valid {
		g.Go(func() error {
			owner, name, _ := strings.Cut(repo, "/")
			raws, err := a.fetcher.FetchPullRequests(gctx, owner, name, days)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("Repository fetch failed, contributing zero records",
					"repo", repo, "error", err)
				results[i] = RepoResult{Repo: repo}
				return nil
			}
			results[i] = RepoResult{Repo: repo, Records: Normalize(repo, raws)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.NewTimeoutError("insights request aborted", err)
	}

	return a.assembler.Assemble(results), nil
}

// filterRepos drops identifiers that are not of the form "owner/name".
func filterRepos(repos []string) []string {
	valid := make([]string, 0, len(repos))
	for _, repo := range repos {
		owner, name, found := strings.Cut(strings.TrimSpace(repo), "/")
		if !found || owner == "" || name == "" || strings.Contains(name, "/") {
			continue
		}
		valid = append(valid, owner+"/"+name)
	}
	return valid
}
