package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all routes. Guest endpoints need a valid token; charge
// queue and clearing endpoints additionally need the admin role.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(auth.Authenticate)

	apiV1.HandleFunc("/bookings/{id:[0-9]+}/cancel", h.CancelBooking).Methods("POST")
	apiV1.HandleFunc("/ledger/account", h.GetAccount).Methods("GET")
	apiV1.HandleFunc("/ledger/transactions", h.ListTransactions).Methods("GET")

	apiV1.HandleFunc("/bookings/{id:[0-9]+}/clear-charges", auth.RequireAdmin(h.ClearCharges)).Methods("POST")
	apiV1.HandleFunc("/charges", auth.RequireAdmin(h.ListCharges)).Methods("GET")
	apiV1.HandleFunc("/charges/process", auth.RequireAdmin(h.ProcessCharges)).Methods("POST")

	return r
}
