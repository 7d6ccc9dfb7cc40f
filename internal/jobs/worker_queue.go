package jobs

import (
	"github.com/vytor/stepple/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	syncPool *worker.Pool
	syncer   worker.Syncer
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(syncPool *worker.Pool, syncer worker.Syncer) JobQueue {
	return &WorkerQueue{syncPool: syncPool, syncer: syncer}
}

func (q *WorkerQueue) EnqueueSync(reason string) error {
	return q.syncPool.Submit(&worker.SyncIntegrationsJob{
		Syncer: q.syncer,
		Reason: reason,
	})
}
