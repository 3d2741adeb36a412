package query

const (
	DefaultPerPage = 8
	MaxPerPage     = 100
	pageWindow     = 5
)

// pageBounds clamps page into [1, pages] and returns the slice bounds for it.
func pageBounds(total, page, perPage int) (clamped, pages, start, end int) {
	pages = (total + perPage - 1) / perPage
	clamped = max(page, 1)
	if pages > 0 {
		clamped = min(clamped, pages)
	}
	start = min((clamped-1)*perPage, total)
	end = min(start+perPage, total)
	return clamped, pages, start, end
}

// pageNumbers returns the page links to show: all of them when there are at
// most five, otherwise a five-wide window around page that sticks to either
// end. A single page needs no links.
func pageNumbers(page, pages int) []int {
	if pages <= 1 {
		return nil
	}
	first := 1
	switch {
	case pages <= pageWindow:
		first = 1
	case page <= 3:
		first = 1
	case page >= pages-2:
		first = pages - pageWindow + 1
	default:
		first = page - 2
	}
	n := min(pages, pageWindow)
	out := make([]int, n)
	for i := range out {
		out[i] = first + i
	}
	return out
}
