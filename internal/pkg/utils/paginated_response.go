package utils

// PageResponse is one page of a list endpoint. NextPageToken is omitted on
// the last page.
type PageResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken *int64 `json:"nextPageToken,omitempty"`
	ItemCount     int64  `json:"itemCount"`
}

// NewPage wraps the items found for page out of itemCount matches.
func NewPage[T any](items []T, itemCount int64, page PageRequest) *PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResponse[T]{
		Items:         items,
		NextPageToken: page.NextToken(itemCount),
		ItemCount:     itemCount,
	}
}
