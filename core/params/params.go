package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryParams holds common list-endpoint paging parameters
type QueryParams struct {
	PageNumber int
	PageSize   int
}

// NewQueryParams binds `page` and `limit` query parameters with defaults
func NewQueryParams(c echo.Context) *QueryParams {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return &QueryParams{PageNumber: page, PageSize: size}
}
