package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alphabill-org/econsec/invariant"
	"github.com/alphabill-org/econsec/logger"
	"github.com/alphabill-org/econsec/record"
	"github.com/alphabill-org/econsec/types"
	"github.com/alphabill-org/econsec/validators"
)

type (
	ErrorResponse struct {
		Message string `json:"message"`
	}

	// ValidationErrorResponse is returned with status 400 when request fails validation.
	ValidationErrorResponse struct {
		Valid   bool     `json:"valid"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}

	responseWriter struct {
		log *slog.Logger
	}
)

func (rw *responseWriter) writeResponse(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rw.log.WarnContext(r.Context(), "failed to encode response data as json", logger.Error(err))
	}
}

func (rw *responseWriter) ok(w http.ResponseWriter, r *http.Request, data any) {
	rw.writeResponse(w, r, http.StatusOK, data)
}

/*
writeError maps the error to the HTTP status code. Errors the caller can't
fix are logged, the rest is only reported back in the response.
*/
func (rw *responseWriter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		rw.writeResponse(w, r, http.StatusBadRequest, ValidationErrorResponse{Message: err.Error(), Errors: ve.Errors})
	case errors.Is(err, record.ErrNotFound):
		rw.errorResponse(w, r, http.StatusNotFound, err)
	case errors.Is(err, record.ErrRecordExists):
		rw.errorResponse(w, r, http.StatusConflict, err)
	case errors.Is(err, validators.ErrInsufficientData):
		rw.errorResponse(w, r, http.StatusUnprocessableEntity, err)
	case errors.Is(err, record.ErrInvalidID), errors.Is(err, validators.ErrInvalidObservation), errors.Is(err, validators.ErrSameValidator):
		rw.errorResponse(w, r, http.StatusBadRequest, err)
	case errors.Is(err, invariant.ErrViolation):
		// already logged by the engine
		rw.errorResponse(w, r, http.StatusInternalServerError, err)
	default:
		rw.log.ErrorContext(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path), logger.Error(err))
		rw.errorResponse(w, r, http.StatusInternalServerError, err)
	}
}

func (rw *responseWriter) invalidParam(w http.ResponseWriter, r *http.Request, name string, err error) {
	rw.errorResponse(w, r, http.StatusBadRequest, fmt.Errorf("invalid parameter %q: %w", name, err))
}

func (rw *responseWriter) errorResponse(w http.ResponseWriter, r *http.Request, code int, err error) {
	rw.writeResponse(w, r, code, ErrorResponse{Message: err.Error()})
}
