package server

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/chat"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/proximity"
	"github.com/watizat/helpmap/internal/service"
)

const (
	codeInvalidCoordinate = "invalid_coordinate"
	codeInvalidRadius     = "invalid_radius"
	codeInvalidCategory   = "invalid_category"
	codeInvalidSelfChat   = "invalid_self_chat"
	codeUnauthorized      = "unauthorized"
	codeUserNotFound      = "user_not_found"
	codeRateLimited       = "rate_limited"
	codeInternal          = "internal_error"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeFailure maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as 500 without detail.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string
	switch {
	case eris.Is(err, geo.ErrInvalidCoordinate):
		status, code = http.StatusBadRequest, codeInvalidCoordinate
	case eris.Is(err, proximity.ErrInvalidRadius):
		status, code = http.StatusBadRequest, codeInvalidRadius
	case eris.Is(err, category.ErrInvalidCategory):
		status, code = http.StatusBadRequest, codeInvalidCategory
	case eris.Is(err, chat.ErrInvalidSelfChat):
		status, code = http.StatusBadRequest, codeInvalidSelfChat
	case eris.Is(err, service.ErrUserNotFound):
		status, code = http.StatusNotFound, codeUserNotFound
	default:
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, codeInternal, "")
		return
	}
	writeError(w, status, code, err.Error())
}
