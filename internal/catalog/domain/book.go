package domain

import (
	"errors"
	"time"
)

// Book is one catalog entry. Price is stored in minor units (cents).
type Book struct {
	ID         string
	Title      string
	Author     string
	ISBN       string
	PriceCents int64
	Stock      int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate validates the book for persistence. Returns an error describing the first validation failure.
func (b *Book) Validate() error {
	if b.Title == "" {
		return errors.New("title is required")
	}
	if b.Author == "" {
		return errors.New("author is required")
	}
	if b.ISBN == "" {
		return errors.New("isbn is required")
	}
	if b.PriceCents < 0 {
		return errors.New("price must not be negative")
	}
	if b.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}
