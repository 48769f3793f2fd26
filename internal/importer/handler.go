package importer

import "context"

// Handler processes the rows of one sheet for one registered service.
// Begin and End bracket the sheet and are optional; Handle is called once
// per row, in row order.
type Handler struct {
	Begin  func(ctx context.Context) error
	Handle func(ctx context.Context, item map[string]any) error
	End    func(ctx context.Context) error
}

// Factory produces a fresh Handler per sheet run.
type Factory func() Handler

// Handlers resolves a service name to its handler factory. Repositories
// register themselves here under their source name.
type Handlers map[string]Factory

// Merge combines handler maps; later entries win on name collisions.
func Merge(maps ...Handlers) Handlers {
	merged := make(Handlers)
	for _, m := range maps {
		for name, factory := range m {
			merged[name] = factory
		}
	}
	return merged
}
