package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(LogRequest)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", a.Health()).Methods(http.MethodGet)
	api.HandleFunc("/health", a.methodNotAllowed())

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", a.Register()).Methods(http.MethodPost)
	auth.HandleFunc("/register", a.methodNotAllowed())
	auth.HandleFunc("/login", a.Login()).Methods(http.MethodPost)
	auth.HandleFunc("/login", a.methodNotAllowed())

	user := api.PathPrefix("/user").Subrouter()
	user.Use(a.gate.Middleware)
	user.HandleFunc("/profile", a.Profile()).Methods(http.MethodGet)

	// outside the gated subrouter so a wrong method is not answered with 401
	api.HandleFunc("/user/profile", a.methodNotAllowed())

	// mux loses method mismatches across sibling subrouters; the method-less
	// routes above answer 405 for known paths
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowedHandler = a.methodNotAllowed()
	return r
}

func (a *API) methodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logApiErr(r, "method not allowed")
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}
