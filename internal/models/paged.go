package models

// PagedResult is the single list shape handed to handlers, whatever envelope
// the backend endpoint used.
type PagedResult[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Pages returns the number of pages for the result.
func (p PagedResult[T]) Pages() int {
	return PageCount(p.Total, p.PageSize)
}

// PageCount is ceil(total/size). A non-positive size yields 0 pages.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
