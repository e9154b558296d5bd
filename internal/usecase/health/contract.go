package health

import "context"

// DBPinger checks ranking store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Results is the served result set as seen by the probe.
type Results interface {
	RunID(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
}
