package test_utils

import (
	"context"
	"testing"

	"github.com/fundwise/fundwise/pkg/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateUser stores a fresh user and returns a context carrying it, so
// repository tests can satisfy foreign keys without sharing rows.
func CreateUser(t *testing.T, db *pgxpool.Pool) (context.Context, user.User) {
	t.Helper()
	ctx := context.Background()

	u := user.User{
		Uid:         uuid.NewString(),
		Username:    "test_" + uuid.NewString()[:8],
		DisplayName: "Test User",
		Settings: user.Settings{
			Currency:      "EUR",
			Timezone:      "Europe/Warsaw",
			MonthStartDay: 1,
		},
	}
	id, err := user.NewUserRepo(db).CreateUser(ctx, u)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	u.Id = id
	return user.WithUser(ctx, u), u
}
