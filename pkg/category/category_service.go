package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrCategoryInvalid = errors.New("invalid category")

type Service interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, category Category) (Category, error)
	Delete(ctx context.Context, id int) error
	MoveAfter(ctx context.Context, id int, precedingId int) error
}

type ServiceImpl struct {
	repo Repository
}

func NewCategoryService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) List(ctx context.Context) ([]Category, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.List(ctx, userId)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Category, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Category{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Get(ctx, userId, id)
}

func (s *ServiceImpl) Create(ctx context.Context, category Category) (Category, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Category{}, fmt.Errorf("failed to get current user: %w", err)
	}
	category, err = normalize(category)
	if err != nil {
		return Category{}, err
	}
	return s.repo.Store(ctx, userId, category)
}

func (s *ServiceImpl) Update(ctx context.Context, category Category) (Category, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Category{}, fmt.Errorf("failed to get current user: %w", err)
	}
	category, err = normalize(category)
	if err != nil {
		return Category{}, err
	}
	updated, err := s.repo.Update(ctx, userId, category)
	if err != nil {
		return Category{}, err
	}
	if !updated {
		return Category{}, ErrCategoryNotFound
	}
	return s.repo.Get(ctx, userId, category.Id)
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
		return ErrCategoryNotFound
	}
	return nil
}

// MoveAfter places the category right after precedingId, or first when precedingId is 0.
func (s *ServiceImpl) MoveAfter(ctx context.Context, id int, precedingId int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	categories, err := s.repo.List(ctx, userId)
	if err != nil {
		return err
	}

	ordered := make([]utils.Ordered, 0, len(categories))
	for _, c := range categories {
		ordered = append(ordered, utils.Ordered{Id: c.Id, Position: c.Position})
	}
	changed, err := utils.MoveAfter(ordered, id, precedingId)
	if errors.Is(err, utils.ErrOrderedItemNotFound) {
		return ErrCategoryNotFound
	} else if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	log.Debugf("moving category %d after %d, %d position(s) changed", id, precedingId, len(changed))
	return s.repo.UpdatePositions(ctx, userId, changed)
}

func normalize(category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrCategoryInvalid)
	}
	if category.Kind == "" {
		category.Kind = Expense
	}
	if !category.Kind.Valid() {
		return Category{}, fmt.Errorf("%w: unknown kind %q", ErrCategoryInvalid, category.Kind)
	}
	return category, nil
}
