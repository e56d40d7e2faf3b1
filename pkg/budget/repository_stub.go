package budget

import (
	"context"
	"sort"

	"github.com/fundwise/fundwise/internal/utils"
)

type RepositoryStub struct {
	nextId        int
	plans         map[int]BudgetPlan
	currentPlanId int
	// ListErr, when set, is returned by the list method.
	ListErr error
}

func NewStubBudgetRepo() *RepositoryStub {
	return &RepositoryStub{plans: map[int]BudgetPlan{}}
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.plans = map[int]BudgetPlan{}
	s.currentPlanId = 0
	s.ListErr = nil
}

func (s *RepositoryStub) CreatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error) {
	s.nextId++
	plan.Id = s.nextId
	plan.Items = []BudgetItem{}
	if len(s.plans) == 0 {
		s.currentPlanId = plan.Id
	}
	plan.IsCurrent = s.currentPlanId == plan.Id
	s.plans[plan.Id] = plan
	return plan, nil
}

func (s *RepositoryStub) UpdatePlan(ctx context.Context, userId int, plan BudgetPlan) (BudgetPlan, error) {
	stored, exists := s.plans[plan.Id]
	if !exists {
		return BudgetPlan{}, ErrPlanNotFound
	}
	if plan.IsCurrent {
		s.currentPlanId = plan.Id
	}
	stored.Name = plan.Name
	s.plans[plan.Id] = stored
	return s.GetPlan(ctx, userId, plan.Id)
}

func (s *RepositoryStub) DeletePlan(ctx context.Context, userId int, planId int) (bool, error) {
	if s.currentPlanId == planId {
		return false, ErrDeletingCurrentPlan
	}
	if _, exists := s.plans[planId]; exists {
		delete(s.plans, planId)
		return true, nil
	}
	return false, nil
}

func (s *RepositoryStub) ListPlans(ctx context.Context, userId int) ([]BudgetPlan, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	plans := make([]BudgetPlan, 0, len(s.plans))
	for id := range s.plans {
		plan, _ := s.GetPlan(ctx, userId, id)
		plan.Items = nil
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Id < plans[j].Id })
	return plans, nil
}

func (s *RepositoryStub) StoreItem(ctx context.Context, userId int, item BudgetItem) (BudgetItem, error) {
	plan, exists := s.plans[item.PlanId]
	if !exists {
		return BudgetItem{}, ErrPlanNotFound
	}
	maxPosition := 0
	for _, existing := range plan.Items {
		if existing.CategoryId == item.CategoryId {
			return BudgetItem{}, ErrCategoryAlreadyPlanned
		}
		maxPosition = max(maxPosition, existing.Position)
	}
	s.nextId++
	item.Id = s.nextId
	item.Position = maxPosition + utils.PositionStep
	plan.Items = append(plan.Items, item)
	s.plans[item.PlanId] = plan
	return item, nil
}

func (s *RepositoryStub) GetPlan(ctx context.Context, userId int, planId int) (BudgetPlan, error) {
	plan, exists := s.plans[planId]
	if !exists {
		return BudgetPlan{}, ErrPlanNotFound
	}
	plan.IsCurrent = s.currentPlanId == planId
	items := make([]BudgetItem, len(plan.Items))
	copy(items, plan.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	plan.Items = items
	return plan, nil
}

func (s *RepositoryStub) GetCurrentPlan(ctx context.Context, userId int) (BudgetPlan, error) {
	if s.currentPlanId == 0 {
		return BudgetPlan{}, ErrPlanNotFound
	}
	return s.GetPlan(ctx, userId, s.currentPlanId)
}

func (s *RepositoryStub) GetItem(ctx context.Context, userId int, itemId int) (BudgetItem, error) {
	for _, plan := range s.plans {
		for _, item := range plan.Items {
			if item.Id == itemId {
				return item, nil
			}
		}
	}
	return BudgetItem{}, ErrBudgetPlanItemNotFound
}

func (s *RepositoryStub) UpdateItem(ctx context.Context, userId int, item BudgetItem) (bool, error) {
	plan, exists := s.plans[item.PlanId]
	if !exists {
		return false, nil
	}
	for i, existing := range plan.Items {
		if existing.Id == item.Id {
			plan.Items[i].MonthlyLimit = item.MonthlyLimit
			return true, nil
		}
	}
	return false, nil
}

func (s *RepositoryStub) UpdateItemPositions(ctx context.Context, userId int, positions []utils.Ordered) error {
	for _, p := range positions {
		for _, plan := range s.plans {
			for i := range plan.Items {
				if plan.Items[i].Id == p.Id {
					plan.Items[i].Position = p.Position
				}
			}
		}
	}
	return nil
}

func (s *RepositoryStub) DeleteItem(ctx context.Context, userId int, itemId int) (bool, error) {
	for planId, plan := range s.plans {
		for i, item := range plan.Items {
			if item.Id == itemId {
				plan.Items = append(plan.Items[:i], plan.Items[i+1:]...)
				s.plans[planId] = plan
				return true, nil
			}
		}
	}
	return false, nil
}
