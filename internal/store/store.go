package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/emekaobi/payvault/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// SearchLimit bounds the directory listing when no query is given.
const SearchLimit = 50

// Role selects which side of a transaction a participant listing matches.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Store is the persistence contract shared by the postgres and in-memory
// implementations. MoveFunds is the Balance Mutator: it is the only
// operation that changes an account balance, and it commits the funds
// check, both balance writes and the status transition as one atomic unit.
type Store interface {
	CreateAccount(ctx context.Context, acct *domain.Account) error
	GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetAccountByUser(ctx context.Context, userID string) (*domain.Account, error)
	SearchAccounts(ctx context.Context, query string) ([]domain.Account, error)

	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, typ domain.TransactionType, role Role) ([]domain.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID string, to domain.Status) error
	DeleteTransaction(ctx context.Context, transactionID string) error

	MoveFunds(ctx context.Context, transactionID string, fromAccountID, toAccountID int64, amount decimal.Decimal, toStatus domain.Status) error
}
