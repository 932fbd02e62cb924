// Package harness drives pools of simulated query-handler goroutines against
// a shared LoadManager, tallying the decisions reached, for concurrency-stress
// testing. Adapted from the teacher repo's generic worker pool
// (internal/worker/pool.go) by replacing its generic Job/Result plumbing with
// a pool wired directly to SimulatedQueryJob and the Decision it returns.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mixaill76/adaptive-load-manager/internal/loadmanager"
)

// DecisionTally counts how many simulated queries reached each Decision
// across every worker in a pool.
type DecisionTally struct {
	mu     sync.Mutex
	counts map[loadmanager.Decision]int64
}

// NewDecisionTally creates an empty tally.
func NewDecisionTally() *DecisionTally {
	return &DecisionTally{counts: make(map[loadmanager.Decision]int64)}
}

func (t *DecisionTally) record(d loadmanager.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[d]++
}

// Count returns how many jobs reached decision d.
func (t *DecisionTally) Count(d loadmanager.Decision) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[d]
}

// SpawnQueryWorkers creates and manages a pool of worker goroutines that each
// pull SimulatedQueryJobs from jobQueue and drive them through
// acquire-permit/decide/record-work/release, tallying the decision each job
// reaches into tally (nil disables tallying).
//
// Parameters:
//   - ctx: Context for cancellation. Once it is cancelled, workers run any
//     jobs still queued and exit when jobQueue is closed.
//   - numWorkers: Number of concurrent worker goroutines to spawn.
//   - jobQueue: Channel to receive jobs. Workers will read from this channel.
//   - logger: Logger for worker lifecycle and error logging.
//   - tally: Decision counter shared across workers, or nil.
//
// Returns a WaitGroup that tracks all worker goroutines; call Wait() to
// block until all workers exit.
func SpawnQueryWorkers(
	ctx context.Context,
	numWorkers int,
	jobQueue <-chan SimulatedQueryJob,
	logger *slog.Logger,
	tally *DecisionTally,
) *sync.WaitGroup {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	wg := &sync.WaitGroup{}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			logger.Debug("simulated client worker started",
				"worker_id", workerID,
				"total_workers", numWorkers,
			)

			runJob := func(job SimulatedQueryJob) {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("simulated query job panicked",
							"worker_id", workerID,
							"panic", fmt.Sprintf("%v", r),
						)
					}
				}()

				result := job.Execute(ctx)

				if tally != nil {
					tally.record(result.Decision)
				}

				if result.err != nil {
					logger.Error("simulated query job failed",
						"worker_id", workerID,
						"error", result.err,
					)
				}
			}

			for {
				select {
				case <-ctx.Done():
					logger.Debug("worker draining remaining jobs",
						"worker_id", workerID,
						"reason", "context_cancelled",
					)
					for job := range jobQueue {
						runJob(job)
					}
					logger.Debug("worker exiting",
						"worker_id", workerID,
						"reason", "context_cancelled",
					)
					return

				case job, ok := <-jobQueue:
					if !ok {
						logger.Debug("worker exiting",
							"worker_id", workerID,
							"reason", "job_queue_closed",
						)
						return
					}

					runJob(job)
				}
			}
		}(i)
	}

	logger.Debug("simulated client pool spawned",
		"num_workers", numWorkers,
	)

	return wg
}
