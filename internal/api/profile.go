package api

import (
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/passgate/internal/authgate"
)

// Profile must sit behind the auth gate.
func (a *API) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authgate.ClaimsFromContext(r.Context())
		if !ok {
			a.writeError(w, r, errors.New("profile route reached without claims"))
			return
		}

		profile, err := a.service.Profile(r.Context(), claims.Subject)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, profile)
	}
}
