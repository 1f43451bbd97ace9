package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; lexical search still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the engine cannot serve searches at all.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Games  int
}

// Service coordinates health checks.
type Service struct {
	snapshots SnapshotReader
	db        DBPinger
	embedding EmbeddingChecker
}

// New creates a Service. db and embedding can be nil.
func New(snapshots SnapshotReader, db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{snapshots: snapshots, db: db, embedding: embedding}
}

// Check runs health checks against all components. A missing snapshot is
// fatal: without indexes there is nothing to search. Auxiliary failures only
// degrade, since lexical retrieval runs in-process.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	games := 0

	snap, err := s.snapshots.Current()
	if err != nil {
		checks["corpus"] = CheckError
		checks["semantic"] = CheckError
	} else {
		games = snap.Size()
		checks["corpus"] = CheckOK
		if snap.Vector() != nil {
			checks["semantic"] = CheckOK
		} else {
			checks["semantic"] = CheckError
		}
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}
	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["corpus"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, Games: games}
}
