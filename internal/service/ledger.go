package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/emekaobi/payvault/internal/domain"
	"github.com/emekaobi/payvault/internal/store"
)

// LedgerService owns the Transaction entity: creation, listing, detail
// access and deletion. Status transitions during money movement belong to
// the workflow services.
type LedgerService struct {
	store store.Store
}

func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{store: s}
}

// parseAmount validates a submitted amount string. Malformed or
// non-positive input is a validation error, not a system error.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}

// CreateTransfer opens a transfer transaction in status processing.
// The sufficient-funds precheck happens here: if the sender cannot cover
// the amount no row is created at all.
func (l *LedgerService) CreateTransfer(ctx context.Context, initiatorID, receiverNumber, rawAmount, description string) (*domain.Transaction, error) {
	receiverAcct, err := l.store.GetAccountByNumber(ctx, receiverNumber)
	if err != nil {
		return nil, err
	}
	if receiverAcct.UserID == initiatorID {
		return nil, ErrSelfTransfer
	}

	senderAcct, err := l.store.GetAccountByUser(ctx, initiatorID)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	if senderAcct.Balance.LessThan(amount) {
		return nil, store.ErrInsufficientFunds
	}

	txn := &domain.Transaction{
		TransactionID:     domain.NewTransactionID(),
		UserID:            initiatorID,
		Amount:            amount,
		Description:       description,
		SenderID:          initiatorID,
		ReceiverID:        receiverAcct.UserID,
		SenderAccountID:   senderAcct.ID,
		ReceiverAccountID: receiverAcct.ID,
		Status:            domain.StatusProcessing,
		Type:              domain.TypeTransfer,
	}
	if err := l.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	return txn, nil
}

// CreateRequest opens a payment request in status request_processing.
// The initiator is the requester (to be credited); the payer is the owner
// of the addressed account (to be debited at settlement).
func (l *LedgerService) CreateRequest(ctx context.Context, requesterID, payerNumber, rawAmount, description string) (*domain.Transaction, error) {
	payerAcct, err := l.store.GetAccountByNumber(ctx, payerNumber)
	if err != nil {
		return nil, err
	}
	if payerAcct.UserID == requesterID {
		return nil, ErrSelfRequest
	}

	requesterAcct, err := l.store.GetAccountByUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		TransactionID:     domain.NewTransactionID(),
		UserID:            requesterID,
		Amount:            amount,
		Description:       description,
		SenderID:          requesterID,
		ReceiverID:        payerAcct.UserID,
		SenderAccountID:   requesterAcct.ID,
		ReceiverAccountID: payerAcct.ID,
		Status:            domain.StatusRequestProcessing,
		Type:              domain.TypeRequest,
	}
	if err := l.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	return txn, nil
}

// GetOwned fetches a transaction scoped to its initiator.
func (l *LedgerService) GetOwned(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotOwner
	}
	return txn, nil
}

// GetDetail fetches a transaction for either participant.
func (l *LedgerService) GetDetail(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Participant(userID) {
		return nil, ErrNotParticipant
	}
	return txn, nil
}

// Overview groups a user's ledger activity the way the transaction list
// page shows it.
type Overview struct {
	TransfersSent     []domain.Transaction `json:"transfers_sent"`
	TransfersReceived []domain.Transaction `json:"transfers_received"`
	RequestsSent      []domain.Transaction `json:"requests_sent"`
	RequestsReceived  []domain.Transaction `json:"requests_received"`
}

func (l *LedgerService) Overview(ctx context.Context, userID string) (*Overview, error) {
	var ov Overview
	var err error
	if ov.TransfersSent, err = l.store.ListTransactions(ctx, userID, domain.TypeTransfer, store.RoleSender); err != nil {
		return nil, err
	}
	if ov.TransfersReceived, err = l.store.ListTransactions(ctx, userID, domain.TypeTransfer, store.RoleReceiver); err != nil {
		return nil, err
	}
	if ov.RequestsSent, err = l.store.ListTransactions(ctx, userID, domain.TypeRequest, store.RoleSender); err != nil {
		return nil, err
	}
	if ov.RequestsReceived, err = l.store.ListTransactions(ctx, userID, domain.TypeRequest, store.RoleReceiver); err != nil {
		return nil, err
	}
	return &ov, nil
}

// List returns one participant grouping in recency order.
func (l *LedgerService) List(ctx context.Context, userID string, typ domain.TransactionType, role store.Role) ([]domain.Transaction, error) {
	return l.store.ListTransactions(ctx, userID, typ, role)
}

// Delete removes a transaction. Only the initiator may delete, and only
// while the status predates any money movement.
func (l *LedgerService) Delete(ctx context.Context, userID, transactionID string) error {
	txn, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.UserID != userID {
		return ErrNotOwner
	}
	if !txn.Status.Deletable() {
		return ErrNotDeletable
	}
	return l.store.DeleteTransaction(ctx, transactionID)
}
