package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
)

// PaymentAccountRepository implements payment.AccountStore over SQL. The
// unique index on (user_id, provider_id) is what makes the resolver's
// create race detectable.
type PaymentAccountRepository interface {
	PaymentAccount(userID, provider string) (*model.PaymentAccount, error)
	SetupPaymentAccount(account *model.PaymentAccount) (*model.PaymentAccount, error)
	ByCustomerID(provider, customerID string) (*model.PaymentAccount, error)
}

type paymentAccountRepository struct {
	db *sqlx.DB
}

func NewPaymentAccountRepository(db *sqlx.DB) PaymentAccountRepository {
	return &paymentAccountRepository{db: db}
}

func (r *paymentAccountRepository) PaymentAccount(userID, provider string) (*model.PaymentAccount, error) {
	account := &model.PaymentAccount{}
	query := `SELECT * FROM payment_accounts WHERE user_id = $1 AND provider_id = $2`

	err := r.db.Get(account, query, userID, provider)
	if err == sql.ErrNoRows {
		return nil, payment.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *paymentAccountRepository) ByCustomerID(provider, customerID string) (*model.PaymentAccount, error) {
	account := &model.PaymentAccount{}
	query := `SELECT * FROM payment_accounts WHERE provider_id = $1 AND customer_id = $2`

	err := r.db.Get(account, query, provider, customerID)
	if err == sql.ErrNoRows {
		return nil, payment.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *paymentAccountRepository) SetupPaymentAccount(account *model.PaymentAccount) (*model.PaymentAccount, error) {
	query := `
		INSERT INTO payment_accounts (
			id, user_id, provider_id, customer_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(
		query,
		account.ID,
		account.UserID,
		account.ProviderID,
		account.CustomerID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, payment.ErrAccountExists
		}
		return nil, err
	}

	return account, nil
}

// isUniqueViolation recognizes duplicate-key errors across the supported
// drivers: pgx reports SQLSTATE 23505, modernc sqlite reports a constraint
// message.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
