package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Book is a catalog entry. Year is stored as fixed-width text (the import
// copies the CSV column verbatim) and converted to an integer on the way out.
type Book struct {
	ID     string `json:"id"     db:"id"`
	ISBN   string `json:"isbn"   db:"isbn"`
	Title  string `json:"title"  db:"title"`
	Author string `json:"author" db:"author"`
	Year   string `json:"year"   db:"year"`
}

// YearInt returns the publication year as an integer, or 0 when the stored
// text isn't a number.
func (b *Book) YearInt() int {
	y, err := strconv.Atoi(strings.TrimSpace(b.Year))
	if err != nil {
		return 0
	}
	return y
}

// Review is one user's rating and comment for one book.
type Review struct {
	ID        string    `json:"id"        db:"id"`
	BookID    string    `json:"bookId"    db:"book_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Rating    int       `json:"rating"    db:"rating"`
	Body      string    `json:"body"      db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ReviewWithAuthor is a review joined with the reviewer's public identity.
type ReviewWithAuthor struct {
	Review
	Username    string `json:"username"    db:"username"`
	DisplayName string `json:"displayName" db:"display_name"`
}

// BookStats is the on-read aggregate of a book's reviews.
type BookStats struct {
	ReviewCount   int     `db:"review_count"`
	AverageRating float64 `db:"average_rating"`
}

// RoundedAverage is AverageRating rounded to one decimal place.
func (s BookStats) RoundedAverage() float64 {
	return math.Round(s.AverageRating*10) / 10
}
