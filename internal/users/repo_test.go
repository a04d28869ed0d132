package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func TestCreateAndFindByUsername(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         "user",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.Nil(t, found.LastLoginAt)
}

func TestFindByUsernameMissing(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h", Role: "user",
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{
		Username: "alice", Email: "other@example.com", PasswordHash: "h", Role: "user",
	})
	assert.Error(t, err)
}

func TestUpdateLastLogin(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h", Role: "user",
	})
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.WithinDuration(t, at, *found.LastLoginAt, time.Second)
}
