package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"groundwork/internal/identity"
	"groundwork/internal/query"
)

// Config is the complete configuration of a Source. Name and Storage are
// required; everything else defaults to "off" explicitly rather than
// being inferred from presence.
type Config struct {
	// Name identifies the entity kind. It is stable and doubles as the
	// import-handler registration key.
	Name string

	// Storage provides the raw per-entity-kind primitives.
	Storage Storage

	// ACL, when set, gates every operation on the identity's tokens.
	ACL *ACL

	// ResolveID maps a create payload to the id of the conflicting
	// entity during an idempotent import. Required for Import to take
	// the patch path on a uniqueness conflict.
	ResolveID func(ctx context.Context, payload map[string]any) (string, error)

	// MapItem converts a raw entity to its response shape. Defaults to
	// the entity itself.
	MapItem func(ctx context.Context, entity map[string]any) (map[string]any, error)

	// Backup converts an entity to its serialized backup representation.
	// Defaults to the entity itself.
	Backup func(ctx context.Context, entity map[string]any) (map[string]any, error)

	// ToFilter rewrites the raw query filter before it reaches storage,
	// e.g. stripping or expanding a pipeline-only fulltext token.
	ToFilter func(filter any) any

	// Rules are validated against create/patch/import payloads before
	// any storage call.
	Rules []Rule

	// Cache enables the per-source query/count response cache.
	Cache bool

	// OnClearCache is invoked after both cache maps are cleared, for any
	// derived-cache invalidation.
	OnClearCache func()

	// Logger is required to be injected; defaults to a nop logger.
	Logger *zap.Logger
}

// Source is a generic, permission-gated, cacheable data-access facade for
// one entity kind. A Source is constructed once at wiring time and
// reused; the acting identity is rebound per operation context via
// WithIdentity.
type Source struct {
	name      string
	storage   Storage
	acl       *ACL
	resolveID func(ctx context.Context, payload map[string]any) (string, error)
	mapItem   func(ctx context.Context, entity map[string]any) (map[string]any, error)
	backupFn  func(ctx context.Context, entity map[string]any) (map[string]any, error)
	toFilter  func(filter any) any
	rules     []compiledRule
	onClear   func()
	logger    *zap.Logger

	identity *identity.Identity

	mu         sync.Mutex
	queryCache map[string][]map[string]any
	countCache map[string]int
}

// New builds a Source from its complete configuration.
func New(cfg Config) (*Source, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source requires a name")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("source [%s] requires a storage", cfg.Name)
	}

	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("source [%s]: %w", cfg.Name, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Source{
		name:      cfg.Name,
		storage:   cfg.Storage,
		acl:       cfg.ACL,
		resolveID: cfg.ResolveID,
		mapItem:   cfg.MapItem,
		backupFn:  cfg.Backup,
		toFilter:  cfg.ToFilter,
		rules:     rules,
		onClear:   cfg.OnClearCache,
		logger:    logger.Named(cfg.Name),
		identity:  identity.Anonymous(),
	}
	if cfg.Cache {
		s.queryCache = make(map[string][]map[string]any)
		s.countCache = make(map[string]int)
	}
	return s, nil
}

// MustNew is New for wiring-time configuration that cannot fail at
// runtime.
func MustNew(cfg Config) *Source {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the stable source name.
func (s *Source) Name() string {
	return s.name
}

// WithIdentity rebinds the acting principal and returns the source for
// chaining. Other sources sharing the same storage are not affected.
func (s *Source) WithIdentity(ident *identity.Identity) *Source {
	s.identity = ident
	return s
}

// Identity returns the currently bound principal.
func (s *Source) Identity() *identity.Identity {
	return s.identity
}

// Create inserts a new entity. A uniqueness violation is translated to a
// client-facing conflict naming the source; the cache is cleared before
// returning.
func (s *Source) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if err := s.check("create"); err != nil {
		return nil, err
	}
	if details := evaluateRules(s.rules, payload, "create"); len(details) > 0 {
		return nil, ValidationError(details)
	}
	created, err := s.storage.Create(ctx, payload)
	if err != nil {
		return nil, s.translate(err)
	}
	s.ClearCache()
	return created, nil
}

// Patch updates the entity addressed by payload["id"], with the same
// conflict translation and cache discipline as Create.
func (s *Source) Patch(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if err := s.check("patch"); err != nil {
		return nil, err
	}
	id, _ := payload["id"].(string)
	if id == "" {
		return nil, &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: fmt.Sprintf("patch on [%s] requires an id", s.name)}
	}
	if details := evaluateRules(s.rules, payload, "patch"); len(details) > 0 {
		return nil, ValidationError(details)
	}
	patched, err := s.storage.Update(ctx, id, withoutID(payload))
	if err != nil {
		return nil, s.translate(err)
	}
	s.ClearCache()
	return patched, nil
}

// Import is the idempotent upsert: create, and when that fails with a
// true uniqueness conflict, resolve the conflicting id and patch it
// instead. Any other create failure propagates unchanged.
func (s *Source) Import(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if err := s.check("import"); err != nil {
		return nil, err
	}
	if details := evaluateRules(s.rules, payload, "import"); len(details) > 0 {
		return nil, ValidationError(details)
	}

	created, err := s.storage.Create(ctx, payload)
	if err == nil {
		s.ClearCache()
		return created, nil
	}
	if !errors.Is(err, ErrUniqueViolation) {
		return nil, err
	}
	if s.resolveID == nil {
		return nil, UnsupportedError(s.name, "conflict resolution")
	}

	id, err := s.resolveID(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("resolve id on [%s]: %w", s.name, err)
	}
	patched, err := s.storage.Update(ctx, id, withoutID(payload))
	if err != nil {
		return nil, s.translate(err)
	}
	s.ClearCache()
	return patched, nil
}

// Remove deletes the given entities, then clears the cache.
func (s *Source) Remove(ctx context.Context, ids []string) ([]map[string]any, error) {
	if err := s.check("remove"); err != nil {
		return nil, err
	}
	removed, err := s.storage.Delete(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.ClearCache()
	return removed, nil
}

// Get fetches a single entity by id, failing with a typed not-found
// error when absent.
func (s *Source) Get(ctx context.Context, id string) (map[string]any, error) {
	if err := s.check("get"); err != nil {
		return nil, err
	}
	entity, err := s.storage.FindUnique(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError(s.name, id)
		}
		return nil, err
	}
	return entity, nil
}

// Find returns the first entity matching the query, failing with a typed
// not-found error when nothing matches.
func (s *Source) Find(ctx context.Context, q query.Query) (map[string]any, error) {
	if err := s.check("find"); err != nil {
		return nil, err
	}
	entity, err := s.storage.FindFirst(ctx, s.filterOf(q.Filter))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError(s.name, "")
		}
		return nil, err
	}
	return entity, nil
}

// Fetch is Find with maybe-semantics: any failure is logged and swallowed
// and nil is returned instead.
func (s *Source) Fetch(ctx context.Context, q query.Query) (map[string]any, error) {
	entity, err := s.Find(ctx, q)
	if err != nil {
		s.logger.Warn("fetch failed", zap.Error(err))
		return nil, nil
	}
	return entity, nil
}

// Query returns a page of entities. Results are cached per
// (query, operation, identity) triple until the next mutation.
func (s *Source) Query(ctx context.Context, q query.Query) ([]map[string]any, error) {
	if err := s.check("query"); err != nil {
		return nil, err
	}

	key := hashOf(q, "query", s.identity.OptionalID())
	s.mu.Lock()
	cached, ok := s.queryCache[key]
	s.mu.Unlock()
	if ok {
		return copyPage(cached), nil
	}

	take, skip := q.Paginate()
	items, err := s.storage.FindMany(ctx, s.filterOf(q.Filter), q.OrderBy, take, skip)
	if err != nil {
		return nil, err
	}

	if s.queryCache != nil {
		s.mu.Lock()
		s.queryCache[key] = copyPage(items)
		s.mu.Unlock()
	}
	return items, nil
}

// Count returns the number of entities matching the query, cached like
// Query.
func (s *Source) Count(ctx context.Context, q query.Query) (int, error) {
	if err := s.check("count"); err != nil {
		return 0, err
	}

	key := hashOf(q, "count", s.identity.OptionalID())
	s.mu.Lock()
	cached, ok := s.countCache[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	total, err := s.storage.Count(ctx, s.filterOf(q.Filter))
	if err != nil {
		return 0, err
	}

	if s.countCache != nil {
		s.mu.Lock()
		s.countCache[key] = total
		s.mu.Unlock()
	}
	return total, nil
}

// Map applies the response-shape mapper to an entity.
func (s *Source) Map(ctx context.Context, entity map[string]any) (map[string]any, error) {
	if s.mapItem == nil {
		return entity, nil
	}
	return s.mapItem(ctx, entity)
}

// MapAll applies the response-shape mapper to a page of entities.
func (s *Source) MapAll(ctx context.Context, entities []map[string]any) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		item, err := s.Map(ctx, entity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// BackupOf returns the serialized backup representation of an entity.
func (s *Source) BackupOf(ctx context.Context, entity map[string]any) (map[string]any, error) {
	if s.backupFn == nil {
		return entity, nil
	}
	return s.backupFn(ctx, entity)
}

// ClearCache drops both cache maps, then runs the derived-cache hook.
func (s *Source) ClearCache() {
	s.mu.Lock()
	if s.queryCache != nil {
		s.queryCache = make(map[string][]map[string]any)
	}
	if s.countCache != nil {
		s.countCache = make(map[string]int)
	}
	s.mu.Unlock()
	if s.onClear != nil {
		s.onClear()
	}
}

// CacheLen reports the number of cached query and count entries.
func (s *Source) CacheLen() (queries int, counts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queryCache), len(s.countCache)
}

func (s *Source) check(verb string) error {
	if s.acl == nil {
		return nil
	}
	return s.identity.CheckAny(s.acl.TokensFor(verb))
}

func (s *Source) filterOf(filter any) any {
	if s.toFilter == nil {
		return filter
	}
	return s.toFilter(filter)
}

func (s *Source) translate(err error) error {
	if errors.Is(err, ErrUniqueViolation) {
		return ConflictError(s.name, "")
	}
	return err
}

// copyPage detaches a cached page from the slice handed to callers, so
// replacing or reordering entries on a returned page never reaches the
// cache.
func copyPage(items []map[string]any) []map[string]any {
	if items == nil {
		return nil
	}
	out := make([]map[string]any, len(items))
	copy(out, items)
	return out
}

func withoutID(payload map[string]any) map[string]any {
	patch := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "id" {
			continue
		}
		patch[k] = v
	}
	return patch
}
