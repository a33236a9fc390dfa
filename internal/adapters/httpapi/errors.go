package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/httpapi/oas"
	"github.com/alubilles/membership-api/internal/app/members"
)

func oasError(r *http.Request, code string, message string, details map[string]any) oas.ErrorResponse {
	var er oas.ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeOASError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, oasError(r, code, message, details))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps application errors onto the error envelope. Anything that is
// not a *members.Error is logged and reported as a 500 without detail.
func writeAppError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if ae := (*members.Error)(nil); errors.As(err, &ae) {
		if ae.Status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("code", ae.Code),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(ae.Err))
		}
		writeOASError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeOASError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
}

// paramErrorHandler reports parameter binding failures.
func paramErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{}
	if pe := (*oas.InvalidParamFormatError)(nil); errors.As(err, &pe) {
		details[pe.ParamName] = pe.Err.Error()
	}
	writeOASError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), details)
}
