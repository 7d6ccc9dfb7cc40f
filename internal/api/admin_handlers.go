package api

import (
	"net/http"

	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/worker"
)

// handleTriggerSync queues an aggregator pass outside the schedule.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := s.JobQueue.EnqueueSync("admin"); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			handleError(w, r, errors.NewFailedPreconditionError("A sync is already queued."))
			return
		}
		handleError(w, r, err)
		return
	}
	log.Info("manual sync queued")
	writeJSON(w, r, http.StatusAccepted, map[string]bool{"queued": true})
}
