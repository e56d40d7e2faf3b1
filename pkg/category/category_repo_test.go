package category_test

import (
	"os"
	"testing"

	"github.com/fundwise/fundwise/internal/test_utils"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func TestRepositoryImpl_StoreAppends(t *testing.T) {
	// given
	ctx, u := test_utils.CreateUser(t, db)
	repo := category.NewCategoryRepo(db)

	// when
	first, err := repo.Store(ctx, u.Id, category.Category{Name: "Food", Kind: category.Expense})
	require.NoError(t, err)
	second, err := repo.Store(ctx, u.Id, category.Category{Name: "Salary", Kind: category.Income, Icon: "cash"})
	require.NoError(t, err)

	// then
	assert.Equal(t, 100, first.Position)
	assert.Equal(t, 200, second.Position)
	stored, err := repo.Get(ctx, u.Id, second.Id)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
}

func TestRepositoryImpl_UpdatePositions(t *testing.T) {
	// given
	ctx, u := test_utils.CreateUser(t, db)
	repo := category.NewCategoryRepo(db)
	a, err := repo.Store(ctx, u.Id, category.Category{Name: "A", Kind: category.Expense})
	require.NoError(t, err)
	b, err := repo.Store(ctx, u.Id, category.Category{Name: "B", Kind: category.Expense})
	require.NoError(t, err)

	// when
	err = repo.UpdatePositions(ctx, u.Id, []utils.Ordered{{Id: b.Id, Position: 50}})

	// then
	require.NoError(t, err)
	list, err := repo.List(ctx, u.Id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.Id, list[0].Id)
	assert.Equal(t, a.Id, list[1].Id)
}

func TestRepositoryImpl_OtherUserCannotSee(t *testing.T) {
	ctx, owner := test_utils.CreateUser(t, db)
	_, other := test_utils.CreateUser(t, db)
	repo := category.NewCategoryRepo(db)
	c, err := repo.Store(ctx, owner.Id, category.Category{Name: "Private", Kind: category.Expense})
	require.NoError(t, err)

	_, err = repo.Get(ctx, other.Id, c.Id)
	assert.ErrorIs(t, err, category.ErrCategoryNotFound)

	deleted, err := repo.Delete(ctx, other.Id, c.Id)
	require.NoError(t, err)
	assert.False(t, deleted)
}
