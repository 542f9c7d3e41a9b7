package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/emekaobi/payvault/internal/domain"
)

// PostgresStore persists accounts and transactions in postgres.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

const accountColumns = "id, account_number, user_id, balance, pin_hash, status, kyc_verified, created_at"

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acct domain.Account
	err := row.Scan(&acct.ID, &acct.AccountNumber, &acct.UserID, &acct.Balance,
		&acct.PinHash, &acct.Status, &acct.KYCVerified, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct *domain.Account) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO accounts (account_number, user_id, balance, pin_hash, status, kyc_verified)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		acct.AccountNumber, acct.UserID, acct.Balance, acct.PinHash, acct.Status, acct.KYCVerified,
	).Scan(&acct.ID, &acct.CreatedAt)
}

func (s *PostgresStore) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_number = $1", number))
}

func (s *PostgresStore) GetAccountByUser(ctx context.Context, userID string) (*domain.Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = $1", userID))
}

// SearchAccounts resolves a query against account number or id with an
// indexed point lookup. An empty query lists accounts up to SearchLimit.
func (s *PostgresStore) SearchAccounts(ctx context.Context, query string) ([]domain.Account, error) {
	var rows pgx.Rows
	var err error
	if query == "" {
		rows, err = s.db.Query(ctx,
			"SELECT "+accountColumns+" FROM accounts ORDER BY id LIMIT $1", SearchLimit)
	} else {
		rows, err = s.db.Query(ctx,
			"SELECT "+accountColumns+" FROM accounts WHERE account_number = $1 OR id::text = $1", query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acct domain.Account
		if err := rows.Scan(&acct.ID, &acct.AccountNumber, &acct.UserID, &acct.Balance,
			&acct.PinHash, &acct.Status, &acct.KYCVerified, &acct.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

const transactionColumns = `transaction_id, user_id, amount, description,
	sender_id, receiver_id, sender_account_id, receiver_account_id,
	status, transaction_type, date, updated`

func (s *PostgresStore) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO transactions (transaction_id, user_id, amount, description,
			sender_id, receiver_id, sender_account_id, receiver_account_id,
			status, transaction_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING date`,
		txn.TransactionID, txn.UserID, txn.Amount, txn.Description,
		txn.SenderID, txn.ReceiverID, txn.SenderAccountID, txn.ReceiverAccountID,
		txn.Status, txn.Type,
	).Scan(&txn.Date)
}

func (s *PostgresStore) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := s.db.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE transaction_id = $1", transactionID,
	).Scan(&txn.TransactionID, &txn.UserID, &txn.Amount, &txn.Description,
		&txn.SenderID, &txn.ReceiverID, &txn.SenderAccountID, &txn.ReceiverAccountID,
		&txn.Status, &txn.Type, &txn.Date, &txn.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, typ domain.TransactionType, role Role) ([]domain.Transaction, error) {
	column := "sender_id"
	if role == RoleReceiver {
		column = "receiver_id"
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE "+column+" = $1 AND transaction_type = $2 ORDER BY date DESC, transaction_id DESC",
		userID, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(&txn.TransactionID, &txn.UserID, &txn.Amount, &txn.Description,
			&txn.SenderID, &txn.ReceiverID, &txn.SenderAccountID, &txn.ReceiverAccountID,
			&txn.Status, &txn.Type, &txn.Date, &txn.Updated); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// UpdateTransactionStatus applies a status change after validating the
// transition against the current row under a row lock.
func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, transactionID string, to domain.Status) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var current domain.Status
	err = tx.QueryRow(ctx,
		"SELECT status FROM transactions WHERE transaction_id = $1 FOR UPDATE", transactionID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return err
	}

	if err := domain.Transition(current, to); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE transactions SET status = $1, updated = $2 WHERE transaction_id = $3",
		to, time.Now(), transactionID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM transactions WHERE transaction_id = $1", transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// MoveFunds moves amount between two accounts and advances the transaction
// status inside one RepeatableRead transaction. Row locks are acquired in
// ascending account-id order so concurrent movements over the same pair
// cannot deadlock.
func (s *PostgresStore) MoveFunds(ctx context.Context, transactionID string, fromAccountID, toAccountID int64, amount decimal.Decimal, toStatus domain.Status) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromAccountID, toAccountID
	if first > second {
		first, second = second, first
	}

	var balance1, balance2 decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", first).Scan(&balance1)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lock acquisition failed: %w", err)
	}
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", second).Scan(&balance2)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lock acquisition failed: %w", err)
	}

	fromBalance := balance1
	if fromAccountID == second {
		fromBalance = balance2
	}
	if fromBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	var current domain.Status
	err = tx.QueryRow(ctx,
		"SELECT status FROM transactions WHERE transaction_id = $1 FOR UPDATE", transactionID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return err
	}
	if err := domain.Transition(current, toStatus); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = balance - $1 WHERE id = $2", amount, fromAccountID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE id = $2", amount, toAccountID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE transactions SET status = $1, updated = $2 WHERE transaction_id = $3",
		toStatus, time.Now(), transactionID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
