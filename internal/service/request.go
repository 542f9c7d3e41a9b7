package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emekaobi/payvault/internal/domain"
	"github.com/emekaobi/payvault/internal/events"
	"github.com/emekaobi/payvault/internal/store"
)

// RequestService drives the payment-request workflow. The requester
// creates and sends the ask; the payer settles it. Sending moves no money:
// it only authorizes transmission of the request. Settlement is the
// balance-moving step.
type RequestService struct {
	store     store.Store
	publisher events.Publisher
}

func NewRequestService(s store.Store, pub events.Publisher) *RequestService {
	return &RequestService{store: s, publisher: pub}
}

func (r *RequestService) owned(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := r.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotOwner
	}
	return txn, nil
}

// Confirm returns the request for the requester's confirmation step.
func (r *RequestService) Confirm(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return r.owned(ctx, userID, transactionID)
}

// Send is the requester's PIN step. It transitions the request to
// request_sent; no balances change.
func (r *RequestService) Send(ctx context.Context, userID, transactionID, pin string) (*domain.Transaction, error) {
	txn, err := r.owned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusRequestProcessing {
		return nil, ErrWrongStatus
	}
	if strings.TrimSpace(pin) == "" {
		return nil, ErrEmptyPin
	}

	acct, err := r.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acct.VerifyPin(pin) {
		return nil, ErrIncorrectPin
	}

	if err := r.store.UpdateTransactionStatus(ctx, txn.TransactionID, domain.StatusRequestSent); err != nil {
		return nil, fmt.Errorf("send request %s: %w", txn.TransactionID, err)
	}
	return r.store.GetTransaction(ctx, txn.TransactionID)
}

// Sent guards the requester's completion page.
func (r *RequestService) Sent(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := r.owned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusRequestSent {
		return nil, ErrWrongStatus
	}
	return txn, nil
}

// forPayer re-fetches the request and checks that the caller is the payer
// and the request is awaiting settlement.
func (r *RequestService) forPayer(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := r.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Payer() != userID {
		return nil, ErrNotPayer
	}
	if txn.Status != domain.StatusRequestSent {
		return nil, ErrWrongStatus
	}
	return txn, nil
}

// SettlementConfirm returns the data for the payer's confirmation step.
func (r *RequestService) SettlementConfirm(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return r.forPayer(ctx, userID, transactionID)
}

// Settle is the payer's PIN step: it debits the payer, credits the
// requester and transitions to request_settled, atomically. On
// insufficient funds nothing mutates and the request stays request_sent:
// the obligation survives until the payer can cover it.
func (r *RequestService) Settle(ctx context.Context, userID, transactionID, pin string) (*domain.Transaction, error) {
	txn, err := r.forPayer(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(pin) == "" {
		return nil, ErrEmptyPin
	}

	payerAcct, err := r.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !payerAcct.VerifyPin(pin) {
		return nil, ErrIncorrectPin
	}

	err = r.store.MoveFunds(ctx, txn.TransactionID,
		txn.PayerAccountID(), txn.RequesterAccountID(), txn.Amount, domain.StatusRequestSettled)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("settle request %s: %w", txn.TransactionID, err)
	}

	if pubErr := r.publisher.PublishMovement(ctx, events.Movement{
		TransactionID: txn.TransactionID,
		Flow:          events.FlowSettlement,
		FromAccountID: txn.PayerAccountID(),
		ToAccountID:   txn.RequesterAccountID(),
		Amount:        txn.Amount,
		OccurredAt:    time.Now(),
	}); pubErr != nil {
		slog.Warn("movement event publish failed",
			"transaction_id", txn.TransactionID, "error", pubErr)
	}

	return r.store.GetTransaction(ctx, txn.TransactionID)
}

// SettlementReceipt guards the settlement completion page. Either
// participant may view it.
func (r *RequestService) SettlementReceipt(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := r.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, ErrNotParticipant
	}
	if txn.Status != domain.StatusRequestSettled {
		return nil, ErrWrongStatus
	}
	return txn, nil
}
