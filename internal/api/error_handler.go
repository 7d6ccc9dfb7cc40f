package api

import (
	"net/http"

	"github.com/vytor/stepple/internal/auth"
	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleError centralizes error handling for HTTP responses. Only the
// AppError code and caller-safe message leave the server.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		// Wrap unknown errors as internal errors
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, map[string]errorBody{
		"error": {Status: appErr.Code, Message: appErr.Message},
	})
}

// handleAuthError renders bearer token failures in the same envelope.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Debug("rejected credentials: %v", err)
	msg := "Authentication is required."
	if errors.Is(err, auth.ErrInvalidToken) {
		msg = "Invalid bearer token."
	}
	handleError(w, r, errors.NewUnauthenticatedError(msg))
}
