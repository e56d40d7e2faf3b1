package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fundwise/fundwise/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrAccountInvalid = errors.New("invalid account")

type Service interface {
	List(ctx context.Context, includeArchived bool) ([]Account, error)
	Get(ctx context.Context, id int) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	Delete(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo Repository
}

func NewAccountService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) List(ctx context.Context, includeArchived bool) ([]Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.List(ctx, userId, includeArchived)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Get(ctx, userId, id)
}

func (s *ServiceImpl) Create(ctx context.Context, account Account) (Account, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	account, err = normalize(account, currentUser.Settings.Currency)
	if err != nil {
		return Account{}, err
	}

	id, err := s.repo.Store(ctx, currentUser.Id, account)
	if err != nil {
		return Account{}, err
	}
	log.Debugf("created account %d for user %d", id, currentUser.Id)
	return s.repo.Get(ctx, currentUser.Id, id)
}

func (s *ServiceImpl) Update(ctx context.Context, account Account) (Account, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	account, err = normalize(account, currentUser.Settings.Currency)
	if err != nil {
		return Account{}, err
	}

	updated, err := s.repo.Update(ctx, currentUser.Id, account)
	if err != nil {
		return Account{}, err
	}
	if !updated {
		return Account{}, ErrAccountNotFound
	}
	return s.repo.Get(ctx, currentUser.Id, account.Id)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	deleted, err := s.repo.Delete(ctx, userId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAccountNotFound
	}
	return nil
}

func normalize(account Account, defaultCurrency string) (Account, error) {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return Account{}, fmt.Errorf("%w: name is required", ErrAccountInvalid)
	}
	if account.Type == "" {
		account.Type = Checking
	}
	if !account.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown type %q", ErrAccountInvalid, account.Type)
	}
	account.Currency = strings.ToUpper(strings.TrimSpace(account.Currency))
	if account.Currency == "" {
		account.Currency = defaultCurrency
	}
	if !user.IsCurrencyCode(account.Currency) {
		return Account{}, fmt.Errorf("%w: currency %q", ErrAccountInvalid, account.Currency)
	}
	return account, nil
}
