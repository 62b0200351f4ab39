package users

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := "./test_users_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entities.User{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
	return NewRepository(db)
}

func TestCreateAndGetUser(t *testing.T) {
	repo := setupTestDB(t)

	user, err := repo.CreateUser("ana", "ana@example.com", "hashed-password")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	byID, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)

	byName, err := repo.GetUserByUsername("ana")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "hashed-password", byName.PasswordHash)
}

func TestGetUserNotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetUserByUsername("nobody")
	assert.Error(t, err)

	_, err = repo.GetUserByID(999)
	assert.Error(t, err)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.CreateUser("ana", "ana@example.com", "h1")
	require.NoError(t, err)

	_, err = repo.CreateUser("ana", "other@example.com", "h2")
	assert.Error(t, err)
}
