package books

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
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
	return NewRepository(db)
}

func TestGetByISBNAndUser(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Create(&entities.Book{
		UserID: 1,
		Title:  "Dune",
		ISBN:   "9780441172719",
	}))

	book, err := repo.GetByISBNAndUser("9780441172719", 1)
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Dune", book.Title)

	// Different user, same ISBN.
	book, err = repo.GetByISBNAndUser("9780441172719", 2)
	require.NoError(t, err)
	assert.Nil(t, book)

	// Unknown ISBN is absence, not an error.
	book, err = repo.GetByISBNAndUser("0000000000", 1)
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestGetByISBNAndUserIsCaseInsensitive(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Create(&entities.Book{
		UserID: 1,
		Title:  "Old Style",
		ISBN:   "043942089X",
	}))

	book, err := repo.GetByISBNAndUser("043942089x", 1)
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Old Style", book.Title)
}

func TestGetAllForUserOrdersByTitle(t *testing.T) {
	repo := setupTestDB(t)

	for _, title := range []string{"Zorba", "Anathem", "Middlemarch"} {
		require.NoError(t, repo.Create(&entities.Book{UserID: 1, Title: title}))
	}
	require.NoError(t, repo.Create(&entities.Book{UserID: 2, Title: "Other"}))

	list, err := repo.GetAllForUser(1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Anathem", list[0].Title)
	assert.Equal(t, "Middlemarch", list[1].Title)
	assert.Equal(t, "Zorba", list[2].Title)
}

func TestGetByAuthorForUser(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Create(&entities.Book{UserID: 1, Title: "Dune", Author: "Frank Herbert"}))
	require.NoError(t, repo.Create(&entities.Book{UserID: 1, Title: "Dune Messiah", Author: "frank herbert"}))
	require.NoError(t, repo.Create(&entities.Book{UserID: 1, Title: "Hyperion", Author: "Dan Simmons"}))

	list, err := repo.GetByAuthorForUser("Frank Herbert", 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdate(t *testing.T) {
	repo := setupTestDB(t)

	book := &entities.Book{UserID: 1, Title: "Draft", ISBN: "9780441172719"}
	require.NoError(t, repo.Create(book))

	book.Title = "Final"
	require.NoError(t, repo.Update(book))

	stored, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", stored.Title)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.WithTransaction(func(tx *Repository) error {
		if err := tx.Create(&entities.Book{UserID: 1, Title: "Doomed"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	list, err := repo.GetAllForUser(1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
