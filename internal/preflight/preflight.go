package preflight

import (
	"context"

	"parley/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory and endpoint checks for the given config.
// A nil endpoint skips the reachability check.
func RunAll(ctx context.Context, cfg *config.Config, endpoint HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if endpoint != nil {
		results = append(results, CheckEndpoint(ctx, cfg, endpoint))
	}
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
