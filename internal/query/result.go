package query

import "math"

// Result is the envelope returned by paginated queries. Count is the
// number of items in this page, Total the number of matching entities
// overall. Pages is present only when the query carried a page size.
type Result[T any] struct {
	Items []T  `json:"items"`
	Count int  `json:"count"`
	Total int  `json:"total"`
	Size  *int `json:"size,omitempty"`
	Pages *int `json:"pages,omitempty"`
}

// ToResult builds the result envelope from an item page and the overall
// total. Pages is ceil(total / max(size, 1)) when size is set.
func ToResult[T any](size *int, total int, items []T) Result[T] {
	result := Result[T]{
		Items: items,
		Count: len(items),
		Total: total,
		Size:  size,
	}
	if size != nil {
		s := *size
		if s < 1 {
			s = 1
		}
		pages := int(math.Ceil(float64(total) / float64(s)))
		result.Pages = &pages
	}
	return result
}

// ItemsOf wraps an unpaginated item list into a result envelope where
// total equals the item count.
func ItemsOf[T any](items []T) Result[T] {
	return Result[T]{
		Items: items,
		Count: len(items),
		Total: len(items),
	}
}
