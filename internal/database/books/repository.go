// Package books provides database operations for the per-user book catalog.
//
// This package implements the catalog repository consumed by
// internal/catalog and internal/bulk.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByISBNAndUser("9780143127741", userID)
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// ErrNotFound is returned when no catalog entry matches a lookup.
var ErrNotFound = gorm.ErrRecordNotFound

// Repository handles all book catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a catalog entry by its surrogate id.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByISBNAndUser retrieves the single entry for a (user, ISBN) pair.
// ISBN comparison is case-insensitive. Returns (nil, nil) when no entry
// exists, so callers can distinguish "absent" from a real error.
func (r *Repository) GetByISBNAndUser(isbn string, userID uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Where("user_id = ? AND LOWER(isbn) = LOWER(?)", userID, isbn).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllForUser retrieves every catalog entry owned by a user, ordered by
// title for stable exports.
func (r *Repository) GetAllForUser(userID uint) ([]entities.Book, error) {
	var list []entities.Book
	err := r.db.Where("user_id = ?", userID).Order("title ASC").Find(&list).Error
	return list, err
}

// GetByAuthorForUser retrieves a user's entries with an exact author match.
func (r *Repository) GetByAuthorForUser(author string, userID uint) ([]entities.Book, error) {
	var list []entities.Book
	err := r.db.
		Where("user_id = ? AND LOWER(author) = LOWER(?)", userID, author).
		Find(&list).Error
	return list, err
}

// GetByPublisherForUser retrieves a user's entries with an exact publisher match.
func (r *Repository) GetByPublisherForUser(publisher string, userID uint) ([]entities.Book, error) {
	var list []entities.Book
	err := r.db.
		Where("user_id = ? AND LOWER(publisher) = LOWER(?)", userID, publisher).
		Find(&list).Error
	return list, err
}

// Create inserts a new catalog entry.
func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

// Update persists all columns of an existing entry.
func (r *Repository) Update(book *entities.Book) error {
	return r.db.Save(book).Error
}

// WithTransaction runs fn against a repository bound to a single database
// transaction. The bulk import engine uses this as its one commit boundary
// per batch: if fn returns an error nothing from the batch is persisted.
func (r *Repository) WithTransaction(fn func(*Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
