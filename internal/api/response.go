package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"git.sr.ht/~jakintosh/passgate/internal/authgate"
	"git.sr.ht/~jakintosh/passgate/internal/limiter"
	"git.sr.ht/~jakintosh/passgate/internal/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	Status  string  `json:"status"`
	Code    int     `json:"code"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

type RetryData struct {
	RetryAfter int `json:"retry_after"`
}

func returnJson(
	w http.ResponseWriter,
	code int,
	body any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeSuccess(
	w http.ResponseWriter,
	code int,
	data any,
) {
	returnJson(w, code, Envelope{
		Status: statusSuccess,
		Code:   code,
		Data:   data,
	})
}

func writeFailure(
	w http.ResponseWriter,
	code int,
	message string,
	data any,
) {
	returnJson(w, code, Envelope{
		Status:  statusError,
		Code:    code,
		Message: &message,
		Data:    data,
	})
}

// writeError maps service and gate errors onto HTTP responses. Client
// mistakes are logged at info, anything unexpected at error with the detail
// kept out of the response.
func (a *API) writeError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	var (
		limited      *limiter.RateLimitedError
		unauthorized *authgate.UnauthorizedError
	)

	switch {
	case errors.As(err, &limited):
		seconds := limited.RetryAfterSeconds()
		logApiErr(r, "rate limited")
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeFailure(w, http.StatusTooManyRequests,
			fmt.Sprintf("Too many login attempts. Please try again after %d seconds", seconds),
			RetryData{RetryAfter: seconds},
		)

	case errors.As(err, &unauthorized):
		logApiErr(r, err.Error())
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeFailure(w, http.StatusUnauthorized, unauthorized.Reason, nil)

	case errors.Is(err, service.ErrInvalidCredentials):
		logApiErr(r, "invalid credentials")
		writeFailure(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), nil)

	case errors.Is(err, service.ErrValidation):
		logApiErr(r, err.Error())
		writeFailure(w, http.StatusBadRequest, validationMessage(err), nil)

	case errors.Is(err, service.ErrAccountNotFound):
		logApiErr(r, err.Error())
		writeFailure(w, http.StatusNotFound, service.ErrAccountNotFound.Error(), nil)

	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeFailure(w, http.StatusInternalServerError, service.ErrInternal.Error(), nil)
	}
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
}
