package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/fundwise/fundwise/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrBudgetItemInvalid = errors.New("invalid budget item")

type Service interface {
	GetPlan(ctx context.Context, planId int) (BudgetPlan, error)
	GetCurrentPlan(ctx context.Context) (BudgetPlan, error)
	ListPlans(ctx context.Context) ([]BudgetPlan, error)
	CreatePlan(ctx context.Context, plan BudgetPlan) (BudgetPlan, error)
	UpdatePlan(ctx context.Context, plan BudgetPlan) (BudgetPlan, error)
	DeletePlan(ctx context.Context, planId int) (bool, error)
	GetItem(ctx context.Context, id int) (BudgetItem, error)
	CreateItem(ctx context.Context, item BudgetItem) (BudgetItem, error)
	MoveItemAfter(ctx context.Context, planId, itemId, precedingId int) (bool, error)
	UpdateItem(ctx context.Context, item BudgetItem) (BudgetItem, error)
	DeleteItem(ctx context.Context, id int) (bool, error)
}

// CategoryReader resolves categories of the current user.
type CategoryReader interface {
	Get(ctx context.Context, id int) (category.Category, error)
}

type ServiceImpl struct {
	repo       Repository
	categories CategoryReader
	pubSub     *pubsub.PubSub
}

func NewBudgetPlanService(repo Repository, categories CategoryReader, pubSub *pubsub.PubSub) *ServiceImpl {
	return &ServiceImpl{repo: repo, categories: categories, pubSub: pubSub}
}

func (s *ServiceImpl) GetPlan(ctx context.Context, planId int) (BudgetPlan, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetPlan(ctx, userId, planId)
}

func (s *ServiceImpl) GetCurrentPlan(ctx context.Context) (BudgetPlan, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetCurrentPlan(ctx, userId)
}

func (s *ServiceImpl) ListPlans(ctx context.Context) ([]BudgetPlan, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListPlans(ctx, userId)
}

func (s *ServiceImpl) CreatePlan(ctx context.Context, plan BudgetPlan) (BudgetPlan, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.CreatePlan(ctx, userId, plan)
}

func (s *ServiceImpl) UpdatePlan(ctx context.Context, plan BudgetPlan) (BudgetPlan, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.UpdatePlan(ctx, userId, plan)
}

func (s *ServiceImpl) DeletePlan(ctx context.Context, planId int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.DeletePlan(ctx, userId, planId)
}

func (s *ServiceImpl) GetItem(ctx context.Context, id int) (BudgetItem, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetItem{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetItem(ctx, userId, id)
}

func (s *ServiceImpl) CreateItem(ctx context.Context, item BudgetItem) (BudgetItem, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetItem{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := s.validateItem(ctx, item); err != nil {
		return BudgetItem{}, err
	}
	return s.repo.StoreItem(ctx, userId, item)
}

func (s *ServiceImpl) UpdateItem(ctx context.Context, item BudgetItem) (BudgetItem, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BudgetItem{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if item.MonthlyLimit.IsNegative() {
		return BudgetItem{}, fmt.Errorf("%w: monthly limit must not be negative", ErrBudgetItemInvalid)
	}

	ok, err := s.repo.UpdateItem(ctx, userId, item)
	if err != nil {
		return BudgetItem{}, err
	}
	if !ok {
		return BudgetItem{}, ErrBudgetPlanItemNotFound
	}
	updatedItem, err := s.repo.GetItem(ctx, userId, item.Id)
	if err != nil {
		return BudgetItem{}, err
	}

	// The item is already stored at this point, so a failing subscriber leaves it
	// changed. Saving the item again re-runs the subscribers.
	err = s.pubSub.Publish(pubsub.NewMessage(
		ctx,
		pubsub.TopicBudgetPlanItemUpdated,
		"",
		pubsub.BudgetPlanItemUpdated{
			Id:           updatedItem.Id,
			PlanId:       updatedItem.PlanId,
			CategoryId:   updatedItem.CategoryId,
			MonthlyLimit: updatedItem.MonthlyLimit,
			Position:     updatedItem.Position,
		},
	))
	if err != nil {
		log.Errorf("failed to publish budget item update event: %v", err)
		return BudgetItem{}, err
	}

	return updatedItem, nil
}

func (s *ServiceImpl) DeleteItem(ctx context.Context, id int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}

	deleted, err := s.repo.DeleteItem(ctx, userId, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("item not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
	}
	return deleted, nil
}

// MoveItemAfter places the item right after precedingId within its plan, or first when precedingId is 0.
func (s *ServiceImpl) MoveItemAfter(ctx context.Context, planId int, itemId int, precedingId int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}
	plan, err := s.repo.GetPlan(ctx, userId, planId)
	if err != nil {
		return false, err
	}

	ordered := make([]utils.Ordered, 0, len(plan.Items))
	for _, item := range plan.Items {
		ordered = append(ordered, utils.Ordered{Id: item.Id, Position: item.Position})
	}
	changed, err := utils.MoveAfter(ordered, itemId, precedingId)
	if errors.Is(err, utils.ErrOrderedItemNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if len(changed) == 0 {
		return true, nil
	}
	if err := s.repo.UpdateItemPositions(ctx, userId, changed); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ServiceImpl) validateItem(ctx context.Context, item BudgetItem) error {
	if item.MonthlyLimit.IsNegative() {
		return fmt.Errorf("%w: monthly limit must not be negative", ErrBudgetItemInvalid)
	}
	c, err := s.categories.Get(ctx, item.CategoryId)
	if errors.Is(err, category.ErrCategoryNotFound) {
		return fmt.Errorf("%w: unknown category %d", ErrBudgetItemInvalid, item.CategoryId)
	} else if err != nil {
		return err
	}
	if c.Kind != category.Expense {
		return fmt.Errorf("%w: limits apply to expense categories only", ErrBudgetItemInvalid)
	}
	return nil
}
