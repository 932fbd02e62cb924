package harness

import (
	"context"
	"time"

	"github.com/mixaill76/adaptive-load-manager/internal/loadmanager"
)

// SimulatedQueryJob drives one simulated request through the full
// acquire-permit / decide / record-work / release cycle against a shared
// LoadManager, for concurrency-stress testing.
type SimulatedQueryJob struct {
	Manager   *loadmanager.LoadManager
	WaitStats loadmanager.PoolWaitStats
	Shape     loadmanager.ShapeHash
	QueryText string
	Work      time.Duration
	Status    loadmanager.CacheStatus
}

// QueryJobResult reports the decision reached and any error acquiring a
// permit.
type QueryJobResult struct {
	Decision loadmanager.Decision
	err      error
}

// Execute runs the job synchronously against its LoadManager.
func (j SimulatedQueryJob) Execute(ctx context.Context) QueryJobResult {
	permit, err := j.Manager.AcquirePermit(ctx)
	if err != nil {
		return QueryJobResult{err: err}
	}
	defer permit.Release()

	decision := j.Manager.Decide(ctx, j.WaitStats, j.Shape, j.QueryText)
	if decision == loadmanager.Proceed {
		sec := j.Manager.StartSection("execute")
		time.Sleep(j.Work)
		sec.Close()
		j.Manager.RecordWork(j.Shape, j.Work, j.Status)
	}

	return QueryJobResult{Decision: decision}
}
