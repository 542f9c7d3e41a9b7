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

// TransferService drives the sender-initiated transfer workflow:
// create (LedgerService) -> Confirm -> VerifyPin -> Receipt.
// Every step re-validates server-side; the client cannot be trusted to
// enforce ordering.
type TransferService struct {
	store     store.Store
	publisher events.Publisher
}

func NewTransferService(s store.Store, pub events.Publisher) *TransferService {
	return &TransferService{store: s, publisher: pub}
}

// load re-fetches the transaction and the receiver account named in the
// URL and checks their linkage. A transaction id paired with the wrong
// account number is treated as tampering.
func (t *TransferService) load(ctx context.Context, userID, accountNumber, transactionID string) (*domain.Transaction, *domain.Account, error) {
	acct, err := t.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, nil, err
	}
	txn, err := t.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if txn.UserID != userID {
		return nil, nil, ErrNotOwner
	}
	if txn.ReceiverAccountID != acct.ID {
		return nil, nil, ErrLinkageMismatch
	}
	return txn, acct, nil
}

// Confirm returns the data for the confirmation step.
func (t *TransferService) Confirm(ctx context.Context, userID, accountNumber, transactionID string) (*domain.Transaction, *domain.Account, error) {
	return t.load(ctx, userID, accountNumber, transactionID)
}

// VerifyPin authorizes and executes the transfer. The status guard makes
// replayed submissions fail before any money moves; the funds check, both
// balance writes and the completed transition commit atomically in the
// store. On insufficient funds the transfer is marked failed: the sender
// is present and starts a fresh transfer once funded.
func (t *TransferService) VerifyPin(ctx context.Context, userID, accountNumber, transactionID, pin string) (*domain.Transaction, error) {
	txn, _, err := t.load(ctx, userID, accountNumber, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusProcessing {
		return nil, ErrWrongStatus
	}
	if strings.TrimSpace(pin) == "" {
		return nil, ErrEmptyPin
	}

	senderAcct, err := t.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !senderAcct.VerifyPin(pin) {
		return nil, ErrIncorrectPin
	}

	err = t.store.MoveFunds(ctx, txn.TransactionID,
		txn.SenderAccountID, txn.ReceiverAccountID, txn.Amount, domain.StatusCompleted)
	if err != nil {
		if markErr := t.store.UpdateTransactionStatus(ctx, txn.TransactionID, domain.StatusFailed); markErr != nil {
			slog.Error("failed to mark transfer failed",
				"transaction_id", txn.TransactionID, "error", markErr)
		}
		if errors.Is(err, store.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("transfer %s: %w", txn.TransactionID, err)
	}

	if pubErr := t.publisher.PublishMovement(ctx, events.Movement{
		TransactionID: txn.TransactionID,
		Flow:          events.FlowTransfer,
		FromAccountID: txn.SenderAccountID,
		ToAccountID:   txn.ReceiverAccountID,
		Amount:        txn.Amount,
		OccurredAt:    time.Now(),
	}); pubErr != nil {
		// The movement is committed; event delivery is best effort.
		slog.Warn("movement event publish failed",
			"transaction_id", txn.TransactionID, "error", pubErr)
	}

	return t.store.GetTransaction(ctx, txn.TransactionID)
}

// Receipt returns the completed transfer, guarded so the completion page
// cannot be reached for a transaction that never completed.
func (t *TransferService) Receipt(ctx context.Context, userID, accountNumber, transactionID string) (*domain.Transaction, *domain.Account, error) {
	txn, acct, err := t.load(ctx, userID, accountNumber, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if txn.Status != domain.StatusCompleted {
		return nil, nil, ErrWrongStatus
	}
	return txn, acct, nil
}
