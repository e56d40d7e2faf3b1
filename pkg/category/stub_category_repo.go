package category

import (
	"context"
	"sort"

	"github.com/fundwise/fundwise/internal/utils"
)

type StubCategoryRepo struct {
	nextId     int
	categories map[int]stubCategory
	// ListErr, when set, is returned by the list method.
	ListErr error
}

type stubCategory struct {
	userId   int
	category Category
}

func NewStubCategoryRepo() *StubCategoryRepo {
	return &StubCategoryRepo{categories: map[int]stubCategory{}}
}

func (s *StubCategoryRepo) Store(ctx context.Context, userId int, category Category) (Category, error) {
	maxPosition := 0
	for _, stored := range s.categories {
		if stored.userId != userId {
			continue
		}
		if stored.category.Name == category.Name {
			return Category{}, ErrCategoryNameTaken
		}
		maxPosition = max(maxPosition, stored.category.Position)
	}
	s.nextId++
	category.Id = s.nextId
	category.Position = maxPosition + utils.PositionStep
	s.categories[category.Id] = stubCategory{userId: userId, category: category}
	return category, nil
}

func (s *StubCategoryRepo) Get(ctx context.Context, userId int, id int) (Category, error) {
	stored, ok := s.categories[id]
	if !ok || stored.userId != userId {
		return Category{}, ErrCategoryNotFound
	}
	return stored.category, nil
}

func (s *StubCategoryRepo) List(ctx context.Context, userId int) ([]Category, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	categories := make([]Category, 0)
	for _, stored := range s.categories {
		if stored.userId == userId {
			categories = append(categories, stored.category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Position < categories[j].Position })
	return categories, nil
}

func (s *StubCategoryRepo) Update(ctx context.Context, userId int, category Category) (bool, error) {
	stored, ok := s.categories[category.Id]
	if !ok || stored.userId != userId {
		return false, nil
	}
	category.Position = stored.category.Position
	s.categories[category.Id] = stubCategory{userId: userId, category: category}
	return true, nil
}

func (s *StubCategoryRepo) UpdatePositions(ctx context.Context, userId int, positions []utils.Ordered) error {
	for _, p := range positions {
		stored, ok := s.categories[p.Id]
		if !ok || stored.userId != userId {
			continue
		}
		stored.category.Position = p.Position
		s.categories[p.Id] = stored
	}
	return nil
}

func (s *StubCategoryRepo) Delete(ctx context.Context, userId int, id int) (bool, error) {
	stored, ok := s.categories[id]
	if !ok || stored.userId != userId {
		return false, nil
	}
	delete(s.categories, id)
	return true, nil
}
