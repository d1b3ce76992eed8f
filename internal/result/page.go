package result

// Page is one page of a paged search.
type Page struct {
	Documents []*Document `json:"documents"`
	// PageIndex is zero-based and may be lower than requested when the
	// request ran past the last page.
	PageIndex int `json:"page_index"`
	PageCount int `json:"page_count"`
	HitCount  int `json:"hit_count"`
}

// FetchCount is the number of best records needed to serve pageIndex.
func FetchCount(pageIndex, pageSize int) int {
	return (pageIndex + 1) * pageSize
}

// Window returns the slice [start, end) of fetched records that forms the
// page. When fewer records than requested exist the last available page is
// returned.
func Window(fetched, pageSize int) (start, end int) {
	end = fetched
	if end <= pageSize {
		return 0, end
	}
	if rem := end % pageSize; rem != 0 {
		return end - rem, end
	}
	return end - pageSize, end
}

// PageCount returns ceil(total / pageSize).
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// NewPage cuts the page out of the fetched documents.
func NewPage(fetched []*Document, total, pageSize int) *Page {
	start, end := Window(len(fetched), pageSize)
	docs := make([]*Document, end-start)
	copy(docs, fetched[start:end])
	return &Page{
		Documents: docs,
		PageIndex: start / pageSize,
		PageCount: PageCount(total, pageSize),
		HitCount:  total,
	}
}
