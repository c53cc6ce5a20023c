package main

import (
	"context"
	"errors"
)

// ErrBookNotFound is returned by storages when no record matches the id.
var ErrBookNotFound = errors.New("book not found")

// Book represents a book entity. The id is assigned by the storage on first
// save and never changes afterwards. Length constraints are counted in
// characters and enforced at the api boundary only.
type Book struct {
	ID      int64  `json:"id" example:"1"`
	Name    string `json:"name" validate:"required,max=50" example:"Volvo"`
	Type    string `json:"type" validate:"required,max=50" example:"Red"`
	Content string `json:"content" validate:"required,max=200" example:"Red"`
}

// Equal reports whether both books hold the same values on all fields.
func (b Book) Equal(other Book) bool {
	return b.ID == other.ID &&
		b.Name == other.Name &&
		b.Type == other.Type &&
		b.Content == other.Content
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	// Save inserts the book when its id is zero and returns it with the
	// assigned id. Otherwise it updates the existing record.
	Save(ctx context.Context, book Book) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	FindByID(ctx context.Context, id int64) (Book, error)
	// FindByName returns books whose name matches exactly, or an empty list.
	FindByName(ctx context.Context, name string) ([]Book, error)
	// DeleteByID removes the record. A missing id is not an error.
	DeleteByID(ctx context.Context, id int64) error
}
