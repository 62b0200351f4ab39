package entities

import (
	"time"

	"gorm.io/gorm"
)

type ReadingStatus string

const (
	ReadingStatusNotRead     ReadingStatus = "not_read"
	ReadingStatusReading     ReadingStatus = "reading"
	ReadingStatusFinished    ReadingStatus = "finished"
	ReadingStatusNotFinished ReadingStatus = "not_finished"
)

// Book is a catalog entry owned by a single user. The (user_id, isbn) pair is
// unique whenever the ISBN is non-empty; books without an ISBN may repeat.
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"index:idx_user_isbn" json:"user_id"`
	Title           string     `gorm:"index;size:512" json:"title"`
	Author          string     `gorm:"index;size:256" json:"author"`
	ISBN            string     `gorm:"index:idx_user_isbn;size:20" json:"isbn,omitempty"`
	Publisher       string     `gorm:"size:256" json:"publisher,omitempty"`
	Genre           string     `gorm:"size:256" json:"genre,omitempty"`
	Summary         string     `gorm:"type:text" json:"summary,omitempty"`
	PageCount       int        `json:"page_count,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Language        string     `gorm:"size:20" json:"language,omitempty"`
	Country         string     `gorm:"size:10" json:"country,omitempty"`
	CoverURL        string     `gorm:"size:2048" json:"cover_url,omitempty"`
	ThumbnailURL    string     `gorm:"size:2048" json:"thumbnail_url,omitempty"`
	CoverImage      []byte     `gorm:"type:blob" json:"-"`

	// Personal management fields
	AddedDate        time.Time     `json:"added_date"`
	StartReadingDate *time.Time    `json:"start_reading_date,omitempty"`
	EndReadingDate   *time.Time    `json:"end_reading_date,omitempty"`
	Status           ReadingStatus `gorm:"size:20;default:not_read" json:"status"`
	LentTo           string        `gorm:"size:256" json:"lent_to,omitempty"`

	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
