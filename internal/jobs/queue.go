package jobs

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	// EnqueueSync schedules one aggregator pass. reason is logged with it.
	EnqueueSync(reason string) error
}
