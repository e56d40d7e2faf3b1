package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/account"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrTransactionInvalid = errors.New("invalid transaction")

const MaxLast = 100

type Service interface {
	Record(ctx context.Context, transaction Transaction) (Transaction, error)
	Get(ctx context.Context, uid string) (Transaction, error)
	List(ctx context.Context, period utils.Period) ([]Transaction, error)
	Last(ctx context.Context, limit int) ([]Transaction, error)
	Update(ctx context.Context, transaction Transaction) (Transaction, error)
	Delete(ctx context.Context, uid string) error
}

type AccountReader interface {
	Get(ctx context.Context, id int) (account.Account, error)
}

type CategoryReader interface {
	Get(ctx context.Context, id int) (category.Category, error)
}

type ServiceImpl struct {
	repo       Repository
	accounts   AccountReader
	categories CategoryReader
	pubSub     *pubsub.PubSub
	clock      utils.Clock
}

func NewTransactionService(
	repo Repository,
	accounts AccountReader,
	categories CategoryReader,
	pubSub *pubsub.PubSub,
	clock utils.Clock,
) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		accounts:   accounts,
		categories: categories,
		pubSub:     pubSub,
		clock:      clock,
	}
}

func (s *ServiceImpl) Record(ctx context.Context, transaction Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	transaction, err = s.prepare(ctx, transaction)
	if err != nil {
		return Transaction{}, err
	}
	transaction.Uid = uuid.NewString()

	stored, err := s.repo.Store(ctx, userId, transaction)
	if err != nil {
		return Transaction{}, err
	}
	log.Debugf("recorded transaction %s for user %d", stored.Uid, userId)
	s.announce(ctx, userId, pubsub.TopicTransactionRecorded, stored, nil)
	return stored, nil
}

func (s *ServiceImpl) Get(ctx context.Context, uid string) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetByUid(ctx, userId, uid)
}

func (s *ServiceImpl) List(ctx context.Context, period utils.Period) ([]Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !period.To.After(period.From) {
		return nil, fmt.Errorf("%w: empty period", ErrTransactionInvalid)
	}
	return s.repo.ListBetween(ctx, userId, period.From, period.To)
}

func (s *ServiceImpl) Last(ctx context.Context, limit int) ([]Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if limit < 1 || limit > MaxLast {
		return nil, fmt.Errorf("%w: last must be between 1 and %d", ErrTransactionInvalid, MaxLast)
	}
	return s.repo.Last(ctx, userId, limit)
}

func (s *ServiceImpl) Update(ctx context.Context, transaction Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	transaction, err = s.prepare(ctx, transaction)
	if err != nil {
		return Transaction{}, err
	}
	previous, err := s.repo.GetByUid(ctx, userId, transaction.Uid)
	if err != nil {
		return Transaction{}, err
	}

	updated, err := s.repo.Update(ctx, userId, transaction)
	if err != nil {
		return Transaction{}, err
	}
	if !updated {
		return Transaction{}, ErrTransactionNotFound
	}
	stored, err := s.repo.GetByUid(ctx, userId, transaction.Uid)
	if err != nil {
		return Transaction{}, err
	}
	s.announce(ctx, userId, pubsub.TopicTransactionUpdated, stored, &pubsub.TransactionPlacement{
		CategoryId: previous.CategoryId,
		OccurredAt: previous.OccurredAt,
	})
	return stored, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, uid string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	existing, err := s.repo.GetByUid(ctx, userId, uid)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, userId, uid)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTransactionNotFound
	}

	payload := pubsub.TransactionDeleted{
		UserId:     userId,
		Uid:        uid,
		CategoryId: existing.CategoryId,
		OccurredAt: existing.OccurredAt,
	}
	s.broadcast(pubsub.NewMessage(ctx, pubsub.TopicTransactionDeleted, "", payload))
	s.broadcast(pubsub.NewMessage(ctx, pubsub.UserTopic(userId), string(pubsub.TopicTransactionDeleted), payload))
	return nil
}

// prepare validates the transaction against the current user's accounts and
// categories and fills in defaults.
func (s *ServiceImpl) prepare(ctx context.Context, transaction Transaction) (Transaction, error) {
	if transaction.Amount.IsZero() {
		return Transaction{}, fmt.Errorf("%w: amount must not be zero", ErrTransactionInvalid)
	}

	acc, err := s.accounts.Get(ctx, transaction.AccountId)
	if errors.Is(err, account.ErrAccountNotFound) {
		return Transaction{}, fmt.Errorf("%w: unknown account %d", ErrTransactionInvalid, transaction.AccountId)
	} else if err != nil {
		return Transaction{}, err
	}
	if acc.Archived {
		return Transaction{}, fmt.Errorf("%w: account %d is archived", ErrTransactionInvalid, acc.Id)
	}

	transaction.Currency = strings.ToUpper(strings.TrimSpace(transaction.Currency))
	if transaction.Currency == "" {
		transaction.Currency = acc.Currency
	}
	if !user.IsCurrencyCode(transaction.Currency) {
		return Transaction{}, fmt.Errorf("%w: currency %q", ErrTransactionInvalid, transaction.Currency)
	}

	if transaction.CategoryId != 0 {
		if _, err := s.categories.Get(ctx, transaction.CategoryId); errors.Is(err, category.ErrCategoryNotFound) {
			return Transaction{}, fmt.Errorf("%w: unknown category %d", ErrTransactionInvalid, transaction.CategoryId)
		} else if err != nil {
			return Transaction{}, err
		}
	}

	if transaction.OccurredAt.IsZero() {
		transaction.OccurredAt = s.clock.Now()
	}
	transaction.Description = strings.TrimSpace(transaction.Description)
	return transaction, nil
}

// announce tells the budget watcher and the user's live stream about a stored transaction.
func (s *ServiceImpl) announce(ctx context.Context, userId int, topic pubsub.Topic, transaction Transaction, previous *pubsub.TransactionPlacement) {
	payload := pubsub.TransactionRecorded{
		UserId:     userId,
		Uid:        transaction.Uid,
		AccountId:  transaction.AccountId,
		CategoryId: transaction.CategoryId,
		Amount:     transaction.Amount,
		Currency:   transaction.Currency,
		OccurredAt: transaction.OccurredAt,
		Previous:   previous,
	}
	s.broadcast(pubsub.NewMessage(ctx, topic, "", payload))
	s.broadcast(pubsub.NewMessage(ctx, pubsub.UserTopic(userId), string(topic), payload))
}

// The transaction is already stored, a full queue only costs a notification.
func (s *ServiceImpl) broadcast(m pubsub.Message) {
	if err := s.pubSub.Broadcast(m); err != nil {
		log.Warnf("failed to broadcast %s: %v", m.Type, err)
	}
}
