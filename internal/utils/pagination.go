package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mwrueen/offtix-back/internal/constants"
)

// PaginationParams carries a validated page window for list queries.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse is the pagination block attached to list responses.
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams reads page and limit from the query string, clamping
// out-of-range or unparseable values to the configured defaults.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
