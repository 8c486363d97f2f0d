package carelog

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e Entry) error
	GetByID(ctx context.Context, id string) (Entry, error)
	ListByPet(ctx context.Context, petID string, filter ListFilter) ([]Entry, error)
	Void(ctx context.Context, id string) error
}

type ListFilter struct {
	Categories []Category
	From       *time.Time
	To         *time.Time
	Query      string
	Limit      int
}
