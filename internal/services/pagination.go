package services

import "math"

// pageOffset converts a 1-based page number into a row offset. Pages past
// what an int offset can address saturate to math.MaxInt so they land
// past the end of every listing.
func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
