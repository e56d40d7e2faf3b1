package transaction

import (
	"context"
	"sort"
	"time"
)

type RepositoryStub struct {
	nextId       int
	transactions map[string]stubTransaction
	// ListErr, when set, is returned by the list method.
	ListErr error
}

type stubTransaction struct {
	userId      int
	transaction Transaction
}

func NewStubTransactionRepo() *RepositoryStub {
	return &RepositoryStub{transactions: map[string]stubTransaction{}}
}

func (s *RepositoryStub) Store(ctx context.Context, userId int, transaction Transaction) (Transaction, error) {
	s.nextId++
	transaction.Id = s.nextId
	s.transactions[transaction.Uid] = stubTransaction{userId: userId, transaction: transaction}
	return transaction, nil
}

func (s *RepositoryStub) GetByUid(ctx context.Context, userId int, uid string) (Transaction, error) {
	stored, ok := s.transactions[uid]
	if !ok || stored.userId != userId {
		return Transaction{}, ErrTransactionNotFound
	}
	return stored.transaction, nil
}

func (s *RepositoryStub) ListBetween(ctx context.Context, userId int, from, to time.Time) ([]Transaction, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	result := make([]Transaction, 0)
	for _, stored := range s.transactions {
		occurred := stored.transaction.OccurredAt
		if stored.userId == userId && !occurred.Before(from) && occurred.Before(to) {
			result = append(result, stored.transaction)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.Before(result[j].OccurredAt) })
	return result, nil
}

func (s *RepositoryStub) Last(ctx context.Context, userId int, limit int) ([]Transaction, error) {
	result := make([]Transaction, 0)
	for _, stored := range s.transactions {
		if stored.userId == userId {
			result = append(result, stored.transaction)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.After(result[j].OccurredAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *RepositoryStub) Update(ctx context.Context, userId int, transaction Transaction) (bool, error) {
	stored, ok := s.transactions[transaction.Uid]
	if !ok || stored.userId != userId {
		return false, nil
	}
	transaction.Id = stored.transaction.Id
	s.transactions[transaction.Uid] = stubTransaction{userId: userId, transaction: transaction}
	return true, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, userId int, uid string) (bool, error) {
	stored, ok := s.transactions[uid]
	if !ok || stored.userId != userId {
		return false, nil
	}
	delete(s.transactions, uid)
	return true, nil
}
