package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every workflow step to its handler. Each step is its own
// round trip; ordering is enforced server-side by the services, not here.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(Identity)

	apiV1.HandleFunc("/accounts", h.SearchAccounts).Methods("GET")
	apiV1.HandleFunc("/accounts/{number}", h.GetAccount).Methods("GET")

	apiV1.HandleFunc("/transfers", h.CreateTransfer).Methods("POST")
	apiV1.HandleFunc("/transfers/{id}", h.ConfirmTransfer).Methods("GET")
	apiV1.HandleFunc("/transfers/{id}/verify", h.VerifyTransfer).Methods("POST")
	apiV1.HandleFunc("/transfers/{id}/receipt", h.TransferReceipt).Methods("GET")

	apiV1.HandleFunc("/payment-requests", h.CreatePaymentRequest).Methods("POST")
	apiV1.HandleFunc("/payment-requests/{id}", h.ConfirmPaymentRequest).Methods("GET")
	apiV1.HandleFunc("/payment-requests/{id}/send", h.SendPaymentRequest).Methods("POST")
	apiV1.HandleFunc("/payment-requests/{id}/settlement", h.SettlementConfirmation).Methods("GET")
	apiV1.HandleFunc("/payment-requests/{id}/settle", h.SettlePaymentRequest).Methods("POST")
	apiV1.HandleFunc("/payment-requests/{id}/settlement/receipt", h.SettlementReceipt).Methods("GET")

	apiV1.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	apiV1.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	apiV1.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")

	return r
}
