// Package repository composes a Source with domain create/delete logic
// and registers the composition as a named bulk-import handler.
package repository

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"groundwork/internal/identity"
	"groundwork/internal/importer"
	"groundwork/internal/query"
	"groundwork/internal/source"
)

// Config is the complete configuration of a Repository. Source is
// required. Create defaults to the source's plain create; Delete is
// absent by default and fails loudly when invoked without being wired.
type Config struct {
	Source *source.Source
	Create func(ctx context.Context, payload map[string]any) (map[string]any, error)
	Delete func(ctx context.Context, ids []string) ([]map[string]any, error)

	// Begin and End bracket a bulk-import sheet run for this repository.
	Begin func(ctx context.Context) error
	End   func(ctx context.Context) error
}

type Repository struct {
	source   *source.Source
	create   func(ctx context.Context, payload map[string]any) (map[string]any, error)
	deleteFn func(ctx context.Context, ids []string) ([]map[string]any, error)
	begin    func(ctx context.Context) error
	end      func(ctx context.Context) error
}

func New(cfg Config) (*Repository, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("repository requires a source")
	}
	r := &Repository{
		source:   cfg.Source,
		create:   cfg.Create,
		deleteFn: cfg.Delete,
		begin:    cfg.Begin,
		end:      cfg.End,
	}
	if r.create == nil {
		r.create = cfg.Source.Create
	}
	return r, nil
}

func MustNew(cfg Config) *Repository {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Source returns the underlying source.
func (r *Repository) Source() *source.Source {
	return r.source
}

// WithIdentity rebinds the acting principal on the underlying source and
// returns the repository for chaining.
func (r *Repository) WithIdentity(ident *identity.Identity) *Repository {
	r.source.WithIdentity(ident)
	return r
}

// Create runs the domain create.
func (r *Repository) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return r.create(ctx, payload)
}

// Delete removes entities, failing fast when no delete was wired for
// this repository.
func (r *Repository) Delete(ctx context.Context, ids []string) ([]map[string]any, error) {
	if r.deleteFn == nil {
		return nil, source.UnsupportedError(r.source.Name(), "delete")
	}
	return r.deleteFn(ctx, ids)
}

// Get fetches one entity by id through the source.
func (r *Repository) Get(ctx context.Context, id string) (map[string]any, error) {
	return r.source.Get(ctx, id)
}

// Query runs a paginated query and maps the page into the response
// envelope. The count and item fetches have no ordering dependency and
// run concurrently.
func (r *Repository) Query(ctx context.Context, q query.Query) (query.Result[map[string]any], error) {
	var (
		total int
		items []map[string]any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = r.source.Count(gctx, query.Query{Filter: q.Filter})
		return err
	})
	g.Go(func() error {
		entities, err := r.source.Query(gctx, q)
		if err != nil {
			return err
		}
		items, err = r.source.MapAll(gctx, entities)
		return err
	})
	if err := g.Wait(); err != nil {
		return query.Result[map[string]any]{}, err
	}
	return query.ToResult(q.Size, total, items), nil
}

// AsImporter exposes this repository as a named import handler entry,
// resolvable by the sheet's declared service name.
func (r *Repository) AsImporter() importer.Handlers {
	return importer.Handlers{
		r.source.Name(): func() importer.Handler {
			return importer.Handler{
				Begin: r.begin,
				End:   r.end,
				Handle: func(ctx context.Context, item map[string]any) error {
					_, err := r.Create(ctx, item)
					return err
				},
			}
		},
	}
}
