package user_test

import (
	"context"
	"os"
	"testing"

	"github.com/fundwise/fundwise/internal/test_utils"
	"github.com/fundwise/fundwise/pkg/user"
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

func TestUserRepoImpl_CreateAndGet(t *testing.T) {
	// given
	_, created := test_utils.CreateUser(t, db)
	repo := user.NewUserRepo(db)

	// when
	byId, err := repo.GetUser(context.Background(), created.Id)
	require.NoError(t, err)
	byUid, err := repo.GetUserByUid(context.Background(), created.Uid)
	require.NoError(t, err)

	// then
	assert.Equal(t, created, byId)
	assert.Equal(t, created, byUid)
}

func TestUserRepoImpl_UpdateUser(t *testing.T) {
	// given
	ctx, created := test_utils.CreateUser(t, db)
	repo := user.NewUserRepo(db)

	// when
	updated, err := repo.UpdateUser(ctx, created.Id, user.User{
		DisplayName: "Renamed",
		Settings:    user.Settings{Currency: "GBP", Timezone: "Europe/London", MonthStartDay: 25},
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, created.Username, updated.Username)
	assert.Equal(t, user.Settings{Currency: "GBP", Timezone: "Europe/London", MonthStartDay: 25}, updated.Settings)
}

func TestUserRepoImpl_NotFound(t *testing.T) {
	repo := user.NewUserRepo(db)

	_, err := repo.GetUser(context.Background(), -1)
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	_, err = repo.GetUserByUid(context.Background(), "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	assert.ErrorIs(t, repo.DeleteUser(context.Background(), -1), user.ErrUserNotFound)
}

func TestUserRepoImpl_IsUsernameAvailable(t *testing.T) {
	_, created := test_utils.CreateUser(t, db)
	repo := user.NewUserRepo(db)

	taken, err := repo.IsUsernameAvailable(context.Background(), created.Username)
	require.NoError(t, err)
	free, err := repo.IsUsernameAvailable(context.Background(), created.Username+"_other")
	require.NoError(t, err)

	assert.False(t, taken)
	assert.True(t, free)
}
