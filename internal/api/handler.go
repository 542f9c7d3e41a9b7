package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/emekaobi/payvault/internal/domain"
	"github.com/emekaobi/payvault/internal/service"
	"github.com/emekaobi/payvault/internal/store"
)

type Handler struct {
	directory *service.DirectoryService
	ledger    *service.LedgerService
	transfers *service.TransferService
	requests  *service.RequestService
}

func NewHandler(directory *service.DirectoryService, ledger *service.LedgerService,
	transfers *service.TransferService, requests *service.RequestService) *Handler {
	return &Handler{
		directory: directory,
		ledger:    ledger,
		transfers: transfers,
		requests:  requests,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// requireVerified loads the caller's account and enforces the KYC gate
// every workflow entry carries.
func (h *Handler) requireVerified(r *http.Request) (string, error) {
	userID := UserID(r.Context())
	acct, err := h.directory.GetByUser(r.Context(), userID)
	if err != nil {
		return "", err
	}
	if !acct.KYCVerified {
		return "", service.ErrKYCRequired
	}
	return userID, nil
}

// --- Account Directory ---

func (h *Handler) SearchAccounts(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/accounts"))
	defer timer.ObserveDuration()

	if _, err := h.requireVerified(r); err != nil {
		h.respondServiceError(w, err, "GET", "/accounts")
		return
	}

	accounts, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondServiceError(w, err, "GET", "/accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts}, "GET", "/accounts")
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireVerified(r); err != nil {
		h.respondServiceError(w, err, "GET", "/accounts/{number}")
		return
	}

	acct, err := h.directory.GetByNumber(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/accounts/{number}")
		return
	}
	h.respondJSON(w, http.StatusOK, acct, "GET", "/accounts/{number}")
}

// --- Transfer workflow ---

type createTransferRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/transfers")
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}

	txn, err := h.ledger.CreateTransfer(r.Context(), userID, req.AccountNumber, req.Amount, req.Description)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/transfers")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%s?account=%s", txn.TransactionID, req.AccountNumber))
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/transfers")
}

func (h *Handler) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transfers/{id}")
		return
	}

	txn, acct, err := h.transfers.Confirm(r.Context(), userID,
		r.URL.Query().Get("account"), mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transfers/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"transaction": txn, "account": acct}, "GET", "/transfers/{id}")
}

type pinRequest struct {
	AccountNumber string `json:"account_number"`
	Pin           string `json:"pin"`
}

func (h *Handler) VerifyTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transfers/{id}/verify"))
	defer timer.ObserveDuration()

	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/transfers/{id}/verify")
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers/{id}/verify")
		return
	}

	txn, err := h.transfers.VerifyPin(r.Context(), userID, req.AccountNumber, mux.Vars(r)["id"], req.Pin)
	if err != nil {
		movementsTotal.WithLabelValues("transfer", "failed").Inc()
		h.respondServiceError(w, err, "POST", "/transfers/{id}/verify")
		return
	}

	movementsTotal.WithLabelValues("transfer", "completed").Inc()
	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%s/receipt?account=%s", txn.TransactionID, req.AccountNumber))
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Transfer completed successfully",
		"transaction": txn,
	}, "POST", "/transfers/{id}/verify")
}

func (h *Handler) TransferReceipt(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transfers/{id}/receipt")
		return
	}

	txn, acct, err := h.transfers.Receipt(r.Context(), userID,
		r.URL.Query().Get("account"), mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transfers/{id}/receipt")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"transaction": txn, "account": acct}, "GET", "/transfers/{id}/receipt")
}

// --- Payment-request workflow ---

type createRequestRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

func (h *Handler) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/payment-requests"))
	defer timer.ObserveDuration()

	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payment-requests")
		return
	}

	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/payment-requests")
		return
	}

	txn, err := h.ledger.CreateRequest(r.Context(), userID, req.AccountNumber, req.Amount, req.Description)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payment-requests")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/payment-requests/%s", txn.TransactionID))
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/payment-requests")
}

func (h *Handler) ConfirmPaymentRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}")
		return
	}

	txn, err := h.requests.Confirm(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", "/payment-requests/{id}")
}

func (h *Handler) SendPaymentRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payment-requests/{id}/send")
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/payment-requests/{id}/send")
		return
	}

	txn, err := h.requests.Send(r.Context(), userID, mux.Vars(r)["id"], req.Pin)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payment-requests/{id}/send")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Your payment request has been sent",
		"transaction": txn,
	}, "POST", "/payment-requests/{id}/send")
}

func (h *Handler) SettlementConfirmation(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}/settlement")
		return
	}

	txn, err := h.requests.SettlementConfirm(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}/settlement")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", "/payment-requests/{id}/settlement")
}

func (h *Handler) SettlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/payment-requests/{id}/settle"))
	defer timer.ObserveDuration()

	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payment-requests/{id}/settle")
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/payment-requests/{id}/settle")
		return
	}

	txn, err := h.requests.Settle(r.Context(), userID, mux.Vars(r)["id"], req.Pin)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			// Resumable: the request stays request_sent.
			movementsTotal.WithLabelValues("settlement", "insufficient_funds").Inc()
			h.respondError(w, http.StatusUnprocessableEntity,
				"Insufficient funds, fund your account and try again", "POST", "/payment-requests/{id}/settle")
			return
		}
		movementsTotal.WithLabelValues("settlement", "failed").Inc()
		h.respondServiceError(w, err, "POST", "/payment-requests/{id}/settle")
		return
	}

	movementsTotal.WithLabelValues("settlement", "settled").Inc()
	w.Header().Set("Location", fmt.Sprintf("/api/v1/payment-requests/%s/settlement/receipt", txn.TransactionID))
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Settlement completed successfully",
		"transaction": txn,
	}, "POST", "/payment-requests/{id}/settle")
}

func (h *Handler) SettlementReceipt(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}/settlement/receipt")
		return
	}

	txn, err := h.requests.SettlementReceipt(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payment-requests/{id}/settlement/receipt")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", "/payment-requests/{id}/settlement/receipt")
}

// --- Transaction listing ---

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transactions")
		return
	}

	typ := r.URL.Query().Get("type")
	role := r.URL.Query().Get("role")
	if typ == "" && role == "" {
		ov, err := h.ledger.Overview(r.Context(), userID)
		if err != nil {
			h.respondServiceError(w, err, "GET", "/transactions")
			return
		}
		h.respondJSON(w, http.StatusOK, ov, "GET", "/transactions")
		return
	}

	if role != string(store.RoleSender) && role != string(store.RoleReceiver) {
		h.respondError(w, http.StatusUnprocessableEntity, "role must be sender or receiver", "GET", "/transactions")
		return
	}
	txns, err := h.ledger.List(r.Context(), userID, domain.TransactionType(typ), store.Role(role))
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transactions")
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"transactions": txns}, "GET", "/transactions")
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transactions/{id}")
		return
	}

	txn, err := h.ledger.GetDetail(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transactions/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", "/transactions/{id}")
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireVerified(r)
	if err != nil {
		h.respondServiceError(w, err, "DELETE", "/transactions/{id}")
		return
	}

	if err := h.ledger.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.respondServiceError(w, err, "DELETE", "/transactions/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted"}, "DELETE", "/transactions/{id}")
}

// --- Helpers ---

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}

// respondServiceError maps the service/store error taxonomy onto HTTP
// statuses. Unexpected errors are logged and surfaced as a generic message;
// a raw fault never reaches the caller.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrEmptyPin),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrSelfRequest):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, store.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, "Insufficient funds", method, endpoint)
	case errors.Is(err, service.ErrIncorrectPin):
		h.respondError(w, http.StatusForbidden, "Incorrect PIN", method, endpoint)
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotPayer),
		errors.Is(err, service.ErrLinkageMismatch),
		errors.Is(err, service.ErrKYCRequired):
		h.respondError(w, http.StatusForbidden, err.Error(), method, endpoint)
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, service.ErrWrongStatus),
		errors.Is(err, service.ErrNotDeletable),
		errors.Is(err, domain.ErrIllegalTransition):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	default:
		slog.Error("unhandled service error", "method", method, "endpoint", endpoint, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error", method, endpoint)
	}
}
