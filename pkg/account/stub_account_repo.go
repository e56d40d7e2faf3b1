package account

import (
	"context"
	"sort"
)

type StubAccountRepo struct {
	nextId   int
	accounts map[int]stubAccount
	// InUse marks accounts that have transactions and cannot be deleted.
	InUse map[int]bool
	// ListErr, when set, is returned by the list method.
	ListErr error
}

type stubAccount struct {
	userId  int
	account Account
}

func NewStubAccountRepo() *StubAccountRepo {
	return &StubAccountRepo{accounts: map[int]stubAccount{}, InUse: map[int]bool{}}
}

func (s *StubAccountRepo) Store(ctx context.Context, userId int, account Account) (int, error) {
	for _, stored := range s.accounts {
		if stored.userId == userId && stored.account.Name == account.Name {
			return 0, ErrAccountNameTaken
		}
	}
	s.nextId++
	account.Id = s.nextId
	s.accounts[account.Id] = stubAccount{userId: userId, account: account}
	return account.Id, nil
}

func (s *StubAccountRepo) Get(ctx context.Context, userId int, id int) (Account, error) {
	stored, ok := s.accounts[id]
	if !ok || stored.userId != userId {
		return Account{}, ErrAccountNotFound
	}
	account := stored.account
	account.Balance = account.OpeningBalance
	return account, nil
}

func (s *StubAccountRepo) List(ctx context.Context, userId int, includeArchived bool) ([]Account, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	accounts := make([]Account, 0)
	for id, stored := range s.accounts {
		if stored.userId != userId || (stored.account.Archived && !includeArchived) {
			continue
		}
		account, _ := s.Get(ctx, userId, id)
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (s *StubAccountRepo) Update(ctx context.Context, userId int, account Account) (bool, error) {
	stored, ok := s.accounts[account.Id]
	if !ok || stored.userId != userId {
		return false, nil
	}
	s.accounts[account.Id] = stubAccount{userId: userId, account: account}
	return true, nil
}

func (s *StubAccountRepo) Delete(ctx context.Context, userId int, id int) (bool, error) {
	stored, ok := s.accounts[id]
	if !ok || stored.userId != userId {
		return false, nil
	}
	if s.InUse[id] {
		return false, ErrAccountInUse
	}
	delete(s.accounts, id)
	return true, nil
}
