package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/stepple/internal/auth"
	"github.com/vytor/stepple/internal/jobs"
	"github.com/vytor/stepple/internal/services"
)

// Pinger is the readiness dependency, normally the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	DB           Pinger
	LinkService  services.LinkService
	StepsService services.StepsService
	JobQueue     jobs.JobQueue
	Auth         auth.Config
	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler
	// RequestTimeout bounds authenticated handlers when positive.
	RequestTimeout time.Duration
	// AdminToken gates /admin routes. Empty disables them.
	AdminToken string
}
