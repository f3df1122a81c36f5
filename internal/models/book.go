package models

import "time"

// Book is owned by the catalog service; this backend only reads it.
type Book struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Title      string    `gorm:"not null" json:"title"`
	Authors    string    `json:"authors"`
	CoverImage string    `json:"coverImage"`
	Pages      int       `json:"pages"`
}

// BookSummary is the book card shown on a group.
type BookSummary struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	CoverImage string `json:"coverImage"`
	Pages      int    `json:"pages"`
}

func (b *Book) ToSummary() BookSummary {
	return BookSummary{
		ID:         b.ID,
		Title:      b.Title,
		Authors:    b.Authors,
		CoverImage: b.CoverImage,
		Pages:      b.Pages,
	}
}
