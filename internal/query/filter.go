package query

// Where is a single filter clause. Supported operators mirror the storage
// layer: eq, neq, gt, gte, lt, lte, like, contains, in.
type Where struct {
	Field    string
	Operator string
	Value    any
}

// Order is a single sort clause. Dir is "ASC" or "DESC".
type Order struct {
	Field string
	Dir   string
}

// Filter is the structured filter understood by the bundled storage
// adapters. Where clauses are ANDed; Or clauses form one ORed group.
// Search is a pipeline-only free-text token that must be expanded (or
// stripped) by a ToFilter hook before the filter reaches storage.
type Filter struct {
	Where  []Where
	Or     []Where
	Search string
}

// Eq is shorthand for an equality clause.
func Eq(field string, value any) Where {
	return Where{Field: field, Operator: "eq", Value: value}
}

// ExpandSearch returns a ToFilter hook that rewrites the pipeline-only
// Search token into an ORed group of case-insensitive contains clauses
// over the given fields. Filters of other shapes pass through untouched.
func ExpandSearch(fields ...string) func(any) any {
	return func(raw any) any {
		filter, ok := raw.(*Filter)
		if !ok || filter == nil || filter.Search == "" {
			return raw
		}
		expanded := &Filter{Where: filter.Where, Or: filter.Or}
		for _, field := range fields {
			expanded.Or = append(expanded.Or, Where{Field: field, Operator: "contains", Value: filter.Search})
		}
		return expanded
	}
}

// StripSearch is a ToFilter hook that drops the pipeline-only Search
// token without expanding it.
func StripSearch(raw any) any {
	filter, ok := raw.(*Filter)
	if !ok || filter == nil || filter.Search == "" {
		return raw
	}
	return &Filter{Where: filter.Where, Or: filter.Or}
}
