package repository

import (
	"context"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit/domain"
)

// Repository defines append-only persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.Entry, error)
}
