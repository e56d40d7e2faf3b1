package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrAccountInUse = errors.New("account has transactions")
var ErrAccountNameTaken = errors.New("account name already used")

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

type Repository interface {
	Store(ctx context.Context, userId int, account Account) (int, error)
	Get(ctx context.Context, userId int, id int) (Account, error)
	List(ctx context.Context, userId int, includeArchived bool) ([]Account, error)
	Update(ctx context.Context, userId int, account Account) (bool, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectAccount = `SELECT
    			a.id,
    			a.name,
    			a.type,
    			a.currency,
    			a.opening_balance,
    			a.archived,
    			a.opening_balance + COALESCE(
    				(SELECT SUM(t.amount) FROM transactions t WHERE t.account_id = a.id AND t.currency = a.currency), 0
    			) AS balance
               FROM account a`

func (r *RepositoryImpl) Store(ctx context.Context, userId int, account Account) (int, error) {
	query := `INSERT INTO account (user_id, name, type, currency, opening_balance, archived)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err := r.db.QueryRow(ctx, query,
		userId,
		account.Name,
		string(account.Type),
		account.Currency,
		account.OpeningBalance,
		account.Archived,
	).Scan(&id)
	if err != nil {
		if isPgError(err, uniqueViolation) {
			return 0, ErrAccountNameTaken
		}
		err := fmt.Errorf("could not store account: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, userId int, id int) (Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE a.user_id = $1 AND a.id = $2`, userId, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get account: %w", err)
		log.Error(err)
		return Account{}, err
	}
	return account, nil
}

func (r *RepositoryImpl) List(ctx context.Context, userId int, includeArchived bool) ([]Account, error) {
	query := selectAccount + ` WHERE a.user_id = $1 AND ($2 OR NOT a.archived) ORDER BY a.name`
	rows, err := r.db.Query(ctx, query, userId, includeArchived)
	if err != nil {
		err := fmt.Errorf("could not query accounts: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return accounts, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, account Account) (bool, error) {
	query := `UPDATE account SET
                  name = $1,
                  type = $2,
                  currency = $3,
                  opening_balance = $4,
                  archived = $5
              WHERE id = $6 AND user_id = $7`
	result, err := r.db.Exec(ctx, query,
		account.Name,
		string(account.Type),
		account.Currency,
		account.OpeningBalance,
		account.Archived,
		account.Id,
		userId,
	)
	if err != nil {
		if isPgError(err, uniqueViolation) {
			return false, ErrAccountNameTaken
		}
		err := fmt.Errorf("could not update account: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM account WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		if isPgError(err, foreignKeyViolation) {
			return false, ErrAccountInUse
		}
		err := fmt.Errorf("could not delete account: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account
	var accountType string
	err := row.Scan(
		&account.Id,
		&account.Name,
		&accountType,
		&account.Currency,
		&account.OpeningBalance,
		&account.Archived,
		&account.Balance,
	)
	account.Type = Type(accountType)
	return account, err
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
