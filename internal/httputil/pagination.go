package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination limits for list endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// PageOptions is a read window over a queue snapshot.
type PageOptions struct {
	Offset int
	Limit  int
}

// ParsePageOptions parses the offset and limit query parameters.
// Defaults are offset 0 and limit DefaultPageLimit; limit cannot exceed MaxPageLimit.
func ParsePageOptions(c *gin.Context) (PageOptions, error) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return PageOptions{}, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return PageOptions{}, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxPageLimit)
	}

	return PageOptions{Offset: offset, Limit: limit}, nil
}
