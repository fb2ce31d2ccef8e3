package scans

// PaginatedResult is one page of scans plus paging metadata
type PaginatedResult struct {
	Data       []*Scan `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	Total      int64   `json:"total_items"`
	TotalPages int     `json:"total_pages"`
}

// NewPaginatedResult derives TotalPages from the total row count
func NewPaginatedResult(data []*Scan, page, pageSize int, total int64) PaginatedResult {
	if pageSize <= 0 {
		pageSize = 1
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}
}

// HasMore reports whether pages remain after this one
func (p PaginatedResult) HasMore() bool {
	return p.Page < p.TotalPages
}
