package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pserrors "github.com/matzehuels/pkgscope/pkg/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Validation errors are the caller's
// fault; everything else is logged and reported as internal.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case pserrors.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    string(pserrors.GetCode(err)),
			Message: pserrors.UserMessage(err),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{
			Code:    string(pserrors.ErrCodeTimeout),
			Message: "analysis timed out",
		})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    string(pserrors.ErrCodeInternal),
			Message: "internal error",
		})
	}
}
