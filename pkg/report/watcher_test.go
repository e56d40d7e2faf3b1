package report

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spendingFake struct {
	mu    sync.Mutex
	spent decimal.Decimal
}

func (f *spendingFake) set(spent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spent = decimal.RequireFromString(spent)
}

func (f *spendingFake) Monthly(ctx context.Context, month utils.BudgetMonth) (MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	limit := decimal.NewFromInt(200)
	return MonthlyReport{
		Month:    month,
		Currency: "EUR",
		Categories: []CategoryReport{{
			Category:  food,
			Limit:     limit,
			Spent:     f.spent,
			Remaining: limit.Sub(f.spent),
		}},
	}, nil
}

type watcherFixture struct {
	ps       *pubsub.PubSub
	spending *spendingFake
	received chan pubsub.Message
}

func setupWatcher(t *testing.T) watcherFixture {
	ps := pubsub.New(16)
	spending := &spendingFake{}
	watcher := NewBudgetWatcher(spending, ps)
	t.Cleanup(watcher.Subscribe())

	received := make(chan pubsub.Message, 16)
	ps.Subscribe(pubsub.UserTopic(testUser.Id), func(m pubsub.Message) error {
		received <- m
		return nil
	})

	serveCtx, cancel := context.WithCancel(context.Background())
	go func() { _ = ps.Serve(serveCtx) }()
	t.Cleanup(cancel)

	return watcherFixture{ps: ps, spending: spending, received: received}
}

func (f watcherFixture) record(t *testing.T, categoryId int, spent string) {
	t.Helper()
	f.spending.set(spent)
	payload := pubsub.TransactionRecorded{
		UserId:     testUser.Id,
		CategoryId: categoryId,
		Amount:     decimal.NewFromInt(-1),
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.ps.Publish(pubsub.NewMessage(ctx, pubsub.TopicTransactionRecorded, "", payload)))
}

// next returns the first message queued on the user topic after the ones
// already published. A marker is broadcast so that "nothing" can be observed.
func (f watcherFixture) next(t *testing.T) pubsub.Message {
	t.Helper()
	require.NoError(t, f.ps.Broadcast(pubsub.NewMessage(ctx, pubsub.UserTopic(testUser.Id), "marker", nil)))
	select {
	case m := <-f.received:
		if m.Type != "marker" {
			select {
			case marker := <-f.received:
				require.Equal(t, "marker", marker.Type)
			case <-time.After(time.Second):
				t.Fatal("marker not delivered")
			}
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return pubsub.Message{}
	}
}

func threshold(t *testing.T, m pubsub.Message) pubsub.BudgetThresholdReached {
	t.Helper()
	require.Equal(t, pubsub.TypeBudgetThresholdReached, m.Type)
	payload, ok := m.Data.(pubsub.BudgetThresholdReached)
	require.True(t, ok)
	return payload
}

func TestBudgetWatcher(t *testing.T) {
	t.Run("should announce each threshold once", func(t *testing.T) {
		f := setupWatcher(t)

		f.record(t, food.Id, "150")
		assert.Equal(t, "marker", f.next(t).Type)

		f.record(t, food.Id, "170")
		reached := threshold(t, f.next(t))
		assertDecimal(t, "0.8", reached.Threshold)
		assertDecimal(t, "170", reached.Spent)
		assert.Equal(t, "Food", reached.Category)
		assert.Equal(t, "2025-03", reached.Month)

		f.record(t, food.Id, "180")
		assert.Equal(t, "marker", f.next(t).Type)

		f.record(t, food.Id, "210")
		assertDecimal(t, "1", threshold(t, f.next(t)).Threshold)
	})

	t.Run("should announce again after the limit changes", func(t *testing.T) {
		f := setupWatcher(t)
		f.record(t, food.Id, "170")
		threshold(t, f.next(t))

		require.NoError(t, f.ps.Publish(pubsub.NewMessage(ctx, pubsub.TopicBudgetPlanItemUpdated, "",
			pubsub.BudgetPlanItemUpdated{CategoryId: food.Id, MonthlyLimit: decimal.NewFromInt(200)})))
		f.record(t, food.Id, "170")

		assertDecimal(t, "0.8", threshold(t, f.next(t)).Threshold)
	})

	t.Run("should announce again after spending dropped", func(t *testing.T) {
		f := setupWatcher(t)
		f.record(t, food.Id, "170")
		threshold(t, f.next(t))

		f.record(t, food.Id, "100")
		assert.Equal(t, "marker", f.next(t).Type)
		f.record(t, food.Id, "165")

		assertDecimal(t, "0.8", threshold(t, f.next(t)).Threshold)
	})

	t.Run("should announce again after a delete lowered spending", func(t *testing.T) {
		f := setupWatcher(t)
		f.record(t, food.Id, "170")
		threshold(t, f.next(t))

		// when
		f.spending.set("100")
		require.NoError(t, f.ps.Publish(pubsub.NewMessage(ctx, pubsub.TopicTransactionDeleted, "", pubsub.TransactionDeleted{
			UserId:     testUser.Id,
			Uid:        "f3c1b8a2-5d7e-4c1a-9b2f-6a8d0e4c7b15",
			CategoryId: food.Id,
			OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		})))
		assert.Equal(t, "marker", f.next(t).Type)
		f.record(t, food.Id, "165")

		// then
		assertDecimal(t, "0.8", threshold(t, f.next(t)).Threshold)
	})

	t.Run("should announce again after a transaction moved out of the category", func(t *testing.T) {
		f := setupWatcher(t)
		f.record(t, food.Id, "170")
		threshold(t, f.next(t))

		// when
		f.spending.set("100")
		require.NoError(t, f.ps.Publish(pubsub.NewMessage(ctx, pubsub.TopicTransactionUpdated, "", pubsub.TransactionRecorded{
			UserId:     testUser.Id,
			Amount:     decimal.NewFromInt(-70),
			Currency:   "EUR",
			OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Previous: &pubsub.TransactionPlacement{
				CategoryId: food.Id,
				OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			},
		})))
		assert.Equal(t, "marker", f.next(t).Type)
		f.record(t, food.Id, "165")

		// then
		assertDecimal(t, "0.8", threshold(t, f.next(t)).Threshold)
	})

	t.Run("should ignore uncategorized and unknown categories", func(t *testing.T) {
		f := setupWatcher(t)

		f.record(t, 0, "500")
		f.record(t, rent.Id, "500")

		assert.Equal(t, "marker", f.next(t).Type)
	})

	t.Run("should require a user", func(t *testing.T) {
		ps := pubsub.New(4)
		watcher := NewBudgetWatcher(&spendingFake{}, ps)
		defer watcher.Subscribe()()

		err := ps.Publish(pubsub.NewMessage(context.Background(), pubsub.TopicTransactionRecorded, "",
			pubsub.TransactionRecorded{CategoryId: food.Id}))

		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}
