package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("failed to encode response: %v", err)
	}
}

// callableRequest is the {"data": ...} envelope of a callable invocation.
type callableRequest[T any] struct {
	Data T `json:"data"`
}

// decodeCallable reads a callable envelope into T. An empty body decodes
// to the zero value so field validation reports the problem.
func decodeCallable[T any](r *http.Request) (T, error) {
	var req callableRequest[T]
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		return req.Data, errors.NewInvalidArgumentError("request body must be a JSON object with a data field")
	}
	return req.Data, nil
}

// writeResult writes the {"result": ...} envelope of a callable response.
func writeResult(w http.ResponseWriter, r *http.Request, v any) {
	writeJSON(w, r, http.StatusOK, map[string]any{"result": v})
}
