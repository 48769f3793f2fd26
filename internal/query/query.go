package query

// Query describes a paginated, filtered lookup. Page is zero-based and
// only meaningful when Size is set. Filter and OrderBy are opaque to the
// query engine and interpreted by the storage backend.
type Query struct {
	Page    *int
	Size    *int
	Filter  any
	OrderBy any
}

// Paginate computes the take/skip window for a query. Skip is only
// defined when both page and size are set.
func (q Query) Paginate() (take *int, skip *int) {
	take = q.Size
	if q.Page != nil && q.Size != nil {
		n := *q.Page * *q.Size
		skip = &n
	}
	return take, skip
}

// Paged is a convenience constructor for a page/size query.
func Paged(page, size int) Query {
	return Query{Page: &page, Size: &size}
}
