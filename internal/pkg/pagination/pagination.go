package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/the-flip/core/internal/pkg/response"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed page/size parameters.
type Query struct {
	Page int
	Size int
}

// Offset is the row offset for the current page.
func (q Query) Offset() int { return (q.Page - 1) * q.Size }

// FromContext reads ?page= and ?size=, clamping both to sane bounds. The
// floor clients scroll by bumping page until has_next_page goes false.
func FromContext(c *gin.Context) Query {
	q := Query{Page: atoiOr(c.Query("page"), 1), Size: atoiOr(c.Query("size"), DefaultSize)}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = DefaultSize
	}
	if q.Size > MaxSize {
		q.Size = MaxSize
	}
	return q
}

// Paginate counts the query, fetches one page into dest, and returns the
// metadata for the response envelope.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if total > 0 {
		if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
			return response.Pagination{}, err
		}
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}, nil
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
