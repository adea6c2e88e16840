package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail server-side and returned
// to the client as a machine-readable code plus a human-readable message.
// Parse and step errors keep their domain codes so clients can branch on
// them without string matching.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tabledesk/tabledesk/internal/store"
	"github.com/tabledesk/tabledesk/internal/tabular"
	"github.com/tabledesk/tabledesk/internal/transform"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an error to an HTTP status and error code, logs it with
// the request ID, and writes the JSON body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", resp.Code,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeErrorJSON(w, status, resp)
}

// mapError translates domain errors into status codes and response bodies.
func mapError(err error) (int, ErrorResponse) {
	var perr *tabular.ParseError
	if errors.As(err, &perr) {
		status := http.StatusUnprocessableEntity
		switch perr.Code {
		case tabular.CodeSheetNotFound, tabular.CodeInvalidSheetIndex:
			status = http.StatusNotFound
		case tabular.CodeUnsupportedType, tabular.CodeInvalidRange:
			status = http.StatusBadRequest
		}
		return status, ErrorResponse{Code: string(perr.Code), Message: perr.Message}
	}

	var serr *transform.StepError
	if errors.As(err, &serr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "STEP_FAILED",
			Message: serr.Error(),
		}
	}

	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "resource not found"}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Code:    "INTERNAL",
		Message: "internal server error",
	}
}

// respondBadRequest reports a malformed request without going through the
// domain error mapping.
func respondBadRequest(w http.ResponseWriter, message string) {
	writeErrorJSON(w, http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Message: message})
}

func writeErrorJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]ErrorResponse{"error": resp}); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as JSON and writes it with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
