package api

import (
	"net/http"

	"github.com/vytor/stepple/internal/auth"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/services"
)

// handleLinkProvider is the linkProvider callable.
func (s *Server) handleLinkProvider(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, err := decodeCallable[services.LinkProviderRequest](r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	userID := auth.UserID(r.Context())
	log.Debug("linkProvider called: user=%s", userID)

	res, err := s.LinkService.LinkProvider(r.Context(), userID, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}
