package domain

const defaultPageSize = 10

// PageRequest is a zero-based page number plus page size, matching the
// pageNo/pageSize query parameters of the HTTP boundary.
type PageRequest struct {
	No   int
	Size int
}

// Normalize clamps negative page numbers to zero and replaces a non-positive
// size with the default of 10.
func (p PageRequest) Normalize() PageRequest {
	if p.No < 0 {
		p.No = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.No * p.Size
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	PageNo        int   `json:"pageNo"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}

	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}

	return Page[T]{
		Content:       content,
		PageNo:        req.No,
		PageSize:      req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
