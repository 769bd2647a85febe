// Package api exposes the passgate service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"git.sr.ht/~jakintosh/passgate/internal/authgate"
	"git.sr.ht/~jakintosh/passgate/internal/service"
)

const maxBodyBytes = 1 << 20

// API holds the dependencies for HTTP handlers.
type API struct {
	service *service.Service
	gate    *authgate.Gate
}

// New builds the API. verifier checks bearer tokens on protected routes.
func New(
	svc *service.Service,
	verifier authgate.Verifier,
) *API {
	a := &API{service: svc}
	a.gate = authgate.New(verifier, func(w http.ResponseWriter, r *http.Request, err error) {
		a.writeError(w, r, err)
	})
	return a
}

// decodeRequest reads a JSON body into req, writing the failure response
// itself when it returns false.
func decodeRequest[T any](
	req *T,
	w http.ResponseWriter,
	r *http.Request,
) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		logApiErr(r, "unsupported content type")
		writeFailure(w, http.StatusUnsupportedMediaType, "content type must be application/json", nil)
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logApiErr(r, "request body too large")
			writeFailure(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		}
		logApiErr(r, "bad json request")
		writeFailure(w, http.StatusBadRequest, "invalid JSON body", nil)
		return false
	}
	return true
}

func logApiErr(r *http.Request, msg string) {
	slog.Info("request rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"reason", msg,
	)
}
