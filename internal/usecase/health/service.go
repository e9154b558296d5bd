// Package health reports whether the selection surfaces can serve a ranking.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every check passed.
	Healthy Status = "ok"
	// Degraded means some checks failed.
	Degraded Status = "degraded"
	// Unhealthy means every check failed.
	Unhealthy Status = "error"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckDatabase = "database"
	CheckResults  = "results"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	RunID     string
	Documents int
	Checks    map[string]CheckResult
}

// Service runs the health checks.
type Service struct {
	results Results
	db      DBPinger
}

// New creates a Service. db is nil when results are served from a file.
func New(results Results, db DBPinger) *Service {
	return &Service{results: results, db: db}
}

// Check probes the database (if any) and the served result set.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Checks: make(map[string]CheckResult, 2)}

	if s.db != nil {
		r.Checks[CheckDatabase] = result(s.db.Ping(ctx))
	}
	r.Checks[CheckResults] = result(s.probeResults(ctx, &r))
	r.Status = aggregate(r.Checks)
	return r
}

func (s *Service) probeResults(ctx context.Context, r *Report) error {
	run, err := s.results.RunID(ctx)
	if err != nil {
		return err
	}
	n, err := s.results.Count(ctx)
	if err != nil {
		return err
	}
	r.RunID, r.Documents = run, n
	return nil
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

func aggregate(checks map[string]CheckResult) Status {
	failed := 0
	for _, c := range checks {
		if c == CheckError {
			failed++
		}
	}
	switch {
	case failed == 0:
		return Healthy
	case failed == len(checks):
		return Unhealthy
	default:
		return Degraded
	}
}
