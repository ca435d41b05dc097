// Package handlers implements the read-only HTTP endpoints: alert summary
// and listing, the unified agenda, and health probes.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ErrorResponse is the error envelope: {"error":{"code":..,"message":..}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its status. Server-side failures are logged and
// answered with the generic message of their code.
func writeAppError(w http.ResponseWriter, logger logging.Logger, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}

	message := errors.DefaultMessageForCode(code)
	if status < http.StatusInternalServerError {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Message != "" {
			message = appErr.Message
		}
	} else {
		logger.Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("code", string(code)),
			logging.Err(err),
		)
	}

	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: string(code), Message: message}})
}
