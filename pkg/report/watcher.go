package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Thresholds are fractions of a monthly limit, ascending.
var Thresholds = []decimal.Decimal{
	decimal.RequireFromString("0.8"),
	decimal.NewFromInt(1),
}

type watchKey struct {
	userId     int
	categoryId int
	month      utils.BudgetMonth
}

// BudgetWatcher notifies users when spending in a category crosses one of the
// Thresholds. Each threshold is announced once per category and month, until
// spending drops below it again or the category's limit changes.
type BudgetWatcher struct {
	reports Service
	pubSub  *pubsub.PubSub

	mu       sync.Mutex
	notified map[watchKey]decimal.Decimal
}

func NewBudgetWatcher(reports Service, pubSub *pubsub.PubSub) *BudgetWatcher {
	return &BudgetWatcher{
		reports:  reports,
		pubSub:   pubSub,
		notified: make(map[watchKey]decimal.Decimal),
	}
}

// Subscribe registers the watcher on the bus and returns a function removing it.
func (w *BudgetWatcher) Subscribe() (unsubscribe func()) {
	unsubscribers := []func(){
		pubsub.SubscribeTyped(w.pubSub, pubsub.TopicTransactionRecorded, w.onTransaction),
		pubsub.SubscribeTyped(w.pubSub, pubsub.TopicTransactionUpdated, w.onTransaction),
		pubsub.SubscribeTyped(w.pubSub, pubsub.TopicTransactionDeleted, w.onTransactionDeleted),
		pubsub.SubscribeTyped(w.pubSub, pubsub.TopicBudgetPlanItemUpdated, w.onLimitChanged),
	}
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}

func (w *BudgetWatcher) onTransaction(m pubsub.MessageT[pubsub.TransactionRecorded]) error {
	ctx := m.Context()
	if previous := m.Data.Previous; previous != nil {
		// A moved transaction lowers spending where it was booked before.
		if err := w.evaluate(ctx, previous.CategoryId, previous.OccurredAt); err != nil {
			return err
		}
	}
	return w.evaluate(ctx, m.Data.CategoryId, m.Data.OccurredAt)
}

func (w *BudgetWatcher) onTransactionDeleted(m pubsub.MessageT[pubsub.TransactionDeleted]) error {
	return w.evaluate(m.Context(), m.Data.CategoryId, m.Data.OccurredAt)
}

// evaluate compares spending in the category for the budget month containing
// occurredAt against the thresholds and announces a newly reached one.
func (w *BudgetWatcher) evaluate(ctx context.Context, categoryId int, occurredAt time.Time) error {
	if categoryId == 0 {
		return nil
	}
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	settings := currentUser.Settings
	month := utils.BudgetMonthOf(occurredAt, settings.MonthStartDay, settings.Location())

	report, err := w.reports.Monthly(ctx, month)
	if err != nil {
		return fmt.Errorf("failed to build report for %s: %w", month, err)
	}
	categoryReport, ok := report.Category(categoryId)
	if !ok {
		return nil
	}
	ratio, ok := categoryReport.Ratio()
	if !ok {
		return nil
	}

	key := watchKey{userId: currentUser.Id, categoryId: categoryId, month: month}
	crossed, notify := w.cross(key, ratio)
	if !notify {
		return nil
	}
	log.Infof("user %d reached %s of the %s limit in %s", currentUser.Id, crossed, categoryReport.Category.Name, month)

	payload := pubsub.BudgetThresholdReached{
		CategoryId: categoryReport.Category.Id,
		Category:   categoryReport.Category.Name,
		Threshold:  crossed,
		Limit:      categoryReport.Limit,
		Spent:      categoryReport.Spent,
		Currency:   report.Currency,
		Month:      month.String(),
	}
	return w.pubSub.Broadcast(pubsub.NewMessage(ctx, pubsub.UserTopic(currentUser.Id), pubsub.TypeBudgetThresholdReached, payload))
}

// cross records the highest threshold ratio has reached and reports whether it
// was not announced before.
func (w *BudgetWatcher) cross(key watchKey, ratio decimal.Decimal) (decimal.Decimal, bool) {
	reached := decimal.Zero
	for _, threshold := range Thresholds {
		if ratio.GreaterThanOrEqual(threshold) {
			reached = threshold
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	previous, seen := w.notified[key]
	if reached.IsZero() {
		delete(w.notified, key)
		return decimal.Zero, false
	}
	w.notified[key] = reached
	if seen && !reached.GreaterThan(previous) {
		return reached, false
	}
	return reached, true
}

func (w *BudgetWatcher) onLimitChanged(m pubsub.MessageT[pubsub.BudgetPlanItemUpdated]) error {
	userId, err := user.CurrentId(m.Context())
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.notified {
		if key.userId == userId && key.categoryId == m.Data.CategoryId {
			delete(w.notified, key)
		}
	}
	return nil
}
