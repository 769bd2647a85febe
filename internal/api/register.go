package api

import (
	"net/http"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		profile, err := a.service.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusCreated, profile)
	}
}
