package result

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// docs returns n documents numbered from 1.
func docs(n int) []*Document {
	out := make([]*Document, n)
	for i := range out {
		out[i] = &Document{UID: fmt.Sprintf("s/%03d", i+1)}
	}
	return out
}

// fetch simulates fetching the best records for pageIndex out of total hits.
func fetch(total, pageIndex, pageSize int) []*Document {
	return docs(min(total, FetchCount(pageIndex, pageSize)))
}

func TestWindow(t *testing.T) {
	tests := []struct {
		fetched, size int
		start, end    int
	}{
		{0, 50, 0, 0},
		{1, 50, 0, 1},
		{50, 50, 0, 50},
		{100, 50, 50, 100},
		{101, 50, 100, 101},
		{149, 50, 100, 149},
		{150, 50, 100, 150},
		{7, 3, 6, 7},
	}
	for _, tt := range tests {
		start, end := Window(tt.fetched, tt.size)
		assert.Equal(t, tt.start, start, "fetched=%d size=%d", tt.fetched, tt.size)
		assert.Equal(t, tt.end, end, "fetched=%d size=%d", tt.fetched, tt.size)
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 50))
	assert.Equal(t, 1, PageCount(1, 50))
	assert.Equal(t, 1, PageCount(50, 50))
	assert.Equal(t, 3, PageCount(101, 50))
	assert.Equal(t, 0, PageCount(10, 0))
}

func TestNewPage_Boundary101Hits(t *testing.T) {
	const total, size = 101, 50

	tests := []struct {
		request   int
		index     int
		first     string
		last      string
		documents int
	}{
		{0, 0, "s/001", "s/050", 50},
		{1, 1, "s/051", "s/100", 50},
		{2, 2, "s/101", "s/101", 1},
		{5, 2, "s/101", "s/101", 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.request), func(t *testing.T) {
			// When: requesting the page
			p := NewPage(fetch(total, tt.request, size), total, size)

			// Then: the window clamps to the last page
			assert.Equal(t, tt.index, p.PageIndex)
			assert.Equal(t, 3, p.PageCount)
			assert.Equal(t, total, p.HitCount)
			assert.Len(t, p.Documents, tt.documents)
			assert.Equal(t, tt.first, p.Documents[0].UID)
			assert.Equal(t, tt.last, p.Documents[len(p.Documents)-1].UID)
		})
	}
}

func TestNewPage_Idempotent(t *testing.T) {
	a := NewPage(fetch(77, 1, 20), 77, 20)
	b := NewPage(fetch(77, 1, 20), 77, 20)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, a.PageIndex)
	assert.Equal(t, 4, a.PageCount)
}

func TestNewPage_NoHits(t *testing.T) {
	p := NewPage(nil, 0, 50)

	assert.Empty(t, p.Documents)
	assert.Zero(t, p.PageIndex)
	assert.Zero(t, p.PageCount)
}
