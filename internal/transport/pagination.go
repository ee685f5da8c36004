package transport

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

type Paginated[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPaginated builds a page from an offset based query. limit must already be clamped (>0).
func NewPaginated[T any](items []T, total int64, limit, offset int) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	page := offset/limit + 1
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Paginated[T]{
		Items: items,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
			HasNextPage:  page < totalPages,
			HasPrevPage:  page > 1,
		},
	}
}
