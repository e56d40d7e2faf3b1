package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type Repository interface {
	Store(ctx context.Context, userId int, transaction Transaction) (Transaction, error)
	GetByUid(ctx context.Context, userId int, uid string) (Transaction, error)
	ListBetween(ctx context.Context, userId int, from, to time.Time) ([]Transaction, error)
	Last(ctx context.Context, userId int, limit int) ([]Transaction, error)
	Update(ctx context.Context, userId int, transaction Transaction) (bool, error)
	Delete(ctx context.Context, userId int, uid string) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectTransaction = `SELECT id, uid, account_id, category_id, amount, currency, description, occurred_at FROM transactions`

func (r *RepositoryImpl) Store(ctx context.Context, userId int, transaction Transaction) (Transaction, error) {
	query := `INSERT INTO transactions (uid, user_id, account_id, category_id, amount, currency, description, occurred_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		transaction.Uid,
		userId,
		transaction.AccountId,
		nullableId(transaction.CategoryId),
		transaction.Amount,
		transaction.Currency,
		transaction.Description,
		transaction.OccurredAt,
	).Scan(&transaction.Id)
	if err != nil {
		err := fmt.Errorf("could not store transaction: %w", err)
		log.Error(err)
		return Transaction{}, err
	}
	return transaction, nil
}

func (r *RepositoryImpl) GetByUid(ctx context.Context, userId int, uid string) (Transaction, error) {
	transaction, err := scanTransaction(r.db.QueryRow(ctx, selectTransaction+` WHERE user_id = $1 AND uid = $2`, userId, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get transaction: %w", err)
		log.Error(err)
		return Transaction{}, err
	}
	return transaction, nil
}

// ListBetween returns transactions that occurred in [from, to), oldest first.
func (r *RepositoryImpl) ListBetween(ctx context.Context, userId int, from, to time.Time) ([]Transaction, error) {
	query := selectTransaction + ` WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3 ORDER BY occurred_at, id`
	return r.query(ctx, query, userId, from, to)
}

// Last returns the most recent transactions, newest first.
func (r *RepositoryImpl) Last(ctx context.Context, userId int, limit int) ([]Transaction, error) {
	query := selectTransaction + ` WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`
	return r.query(ctx, query, userId, limit)
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, transaction Transaction) (bool, error) {
	query := `UPDATE transactions SET
                  account_id = $1,
                  category_id = $2,
                  amount = $3,
                  currency = $4,
                  description = $5,
                  occurred_at = $6
              WHERE uid = $7 AND user_id = $8`
	result, err := r.db.Exec(ctx, query,
		transaction.AccountId,
		nullableId(transaction.CategoryId),
		transaction.Amount,
		transaction.Currency,
		transaction.Description,
		transaction.OccurredAt,
		transaction.Uid,
		userId,
	)
	if err != nil {
		err := fmt.Errorf("could not update transaction: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, uid string) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE uid = $1 AND user_id = $2`, uid, userId)
	if err != nil {
		err := fmt.Errorf("could not delete transaction: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) query(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		transaction Transaction
		categoryId  sql.NullInt64
	)
	err := row.Scan(
		&transaction.Id,
		&transaction.Uid,
		&transaction.AccountId,
		&categoryId,
		&transaction.Amount,
		&transaction.Currency,
		&transaction.Description,
		&transaction.OccurredAt,
	)
	transaction.CategoryId = int(categoryId.Int64)
	return transaction, err
}

func nullableId(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id > 0}
}
