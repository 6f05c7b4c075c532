package util

import (
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

func ParseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Calculate clamps page to >= 1 and size to [1, maxSize]. A size of zero or
// less falls back to def.
func Calculate(page, size, def, maxSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > maxSize {
		size = maxSize
	}
	return (page - 1) * size, size
}

func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
