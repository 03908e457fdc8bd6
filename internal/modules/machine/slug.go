package machine

import (
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// slugify lowercases the name and collapses runs of non-alphanumerics
// into single hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// uniquifySlug appends -2, -3, ... until the slug is free. excludeID skips a
// row when renaming a model to a colliding base.
func uniquifySlug(db *gorm.DB, table, base, excludeID string) string {
	if base == "" {
		base = "machine"
	}
	candidate := base
	for n := 2; ; n++ {
		var count int64
		q := db.Table(table).Where("slug = ? AND deleted_at IS NULL", candidate)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		q.Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
