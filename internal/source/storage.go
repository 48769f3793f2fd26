package source

import (
	"context"
	"errors"
)

// Storage sentinels. Adapters map their backend errors onto these so the
// Source can tell a true uniqueness conflict from any other failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Storage is the primitive data-access contract the Source wraps for one
// entity kind. Entities and payloads are generic maps; filter and orderBy
// are opaque to the Source and interpreted by the adapter.
type Storage interface {
	FindMany(ctx context.Context, filter, orderBy any, take, skip *int) ([]map[string]any, error)
	FindUnique(ctx context.Context, id string) (map[string]any, error)
	FindFirst(ctx context.Context, filter any) (map[string]any, error)
	Count(ctx context.Context, filter any) (int, error)
	Create(ctx context.Context, payload map[string]any) (map[string]any, error)
	Update(ctx context.Context, id string, payload map[string]any) (map[string]any, error)
	Delete(ctx context.Context, ids []string) ([]map[string]any, error)
}
