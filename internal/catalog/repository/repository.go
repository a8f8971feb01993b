package repository

import (
	"context"
	"errors"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/domain"
)

// ErrDuplicateISBN is returned by Create when the ISBN is already cataloged.
var ErrDuplicateISBN = errors.New("isbn already cataloged")

// Repository defines persistence for catalog entries.
type Repository interface {
	Create(ctx context.Context, b *domain.Book) error
	FindByID(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, limit, offset int32) ([]*domain.Book, error)
}
