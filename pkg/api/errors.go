package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/edgelist"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/store"
	"github.com/dd0wney/cluso-louvain/pkg/validation"
)

// statusForError maps clustering and lookup errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, edgelist.ErrMalformedLine), errors.Is(err, edgelist.ErrUnknownFormat),
		errors.Is(err, validation.ErrTooManyNodes):
		return http.StatusBadRequest
	}

	switch algorithms.ErrorKind(err) {
	case algorithms.KindInvalidGraph, algorithms.KindInvalidWeight,
		algorithms.KindInvalidNode, algorithms.KindInvalidOptions:
		return http.StatusBadRequest
	case algorithms.KindUndefinedModularity, algorithms.KindExceededPassBound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondClusterError answers with the mapped status. Client errors carry the
// error text, server errors only the operation name.
func (s *Server) respondClusterError(w http.ResponseWriter, err error, operation string) {
	status := statusForError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = s.sanitizeError(err, operation)
	}

	kind := ""
	if status != http.StatusNotFound {
		kind = algorithms.ErrorKind(err)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
		Kind:    kind,
	})
}

// sanitizeError logs the full error and returns a generic message for the client.
func (s *Server) sanitizeError(err error, operation string) string {
	s.logger.Error("request failed", logging.Operation(operation), logging.Error(err))
	return operation + " failed"
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
