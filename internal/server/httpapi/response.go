// Package httpapi is the HTTP boundary of the auth and catalog services:
// chi routers, JSON handlers, the auth middleware, and the error envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dpolyakov/minimart/internal/common"
)

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// JSON writes a success response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	res := errorBody{}
	res.Error.Code = code
	res.Error.Message = msg
	_ = json.NewEncoder(w).Encode(res)
}

func BadRequest(w http.ResponseWriter, msg string)   { writeError(w, http.StatusBadRequest, msg) }
func Unauthorized(w http.ResponseWriter, msg string) { writeError(w, http.StatusUnauthorized, msg) }
func Forbidden(w http.ResponseWriter, msg string)    { writeError(w, http.StatusForbidden, msg) }

// Error translates a service error into the envelope. Unrecognized errors
// become an opaque 500: internals are never leaked to clients.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, http.StatusConflict, common.ErrEmailTaken.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidRefreshToken),
		errors.Is(err, common.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, common.ErrForbidden.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, common.ErrNotFound.Error())
	default:
		writeError(w, http.StatusInternalServerError, common.ErrInternal.Error())
	}
}
