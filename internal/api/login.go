package api

import (
	"net/http"
	"time"
)

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		token, err := a.service.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, LoginResponse{
			Token:     token.Encoded(),
			TokenType: "Bearer",
			ExpiresAt: token.Expiration().UTC(),
		})
	}
}
