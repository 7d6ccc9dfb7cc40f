package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/stepple/internal/auth"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	authn := auth.NewMiddleware(s.Auth, handleAuthError)
	r.Group(func(r chi.Router) {
		r.Use(authn.Wrap)
		if s.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.RequestTimeout))
		}
		r.Post("/rpc/linkProvider", s.handleLinkProvider)
		r.Get("/v1/users/{userID}", s.handleGetProfile)
		r.Get("/v1/users/{userID}/steps/{dateID}", s.handleGetDay)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminMiddleware(s.AdminToken))
		r.Post("/admin/sync", s.handleTriggerSync)
	})
	return r
}
