package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortSpec whitelists the columns a listing may be ordered by. Anything not
// listed falls back to the default column, so caller input never reaches SQL.
type sortSpec struct {
	columns       map[string]string
	defaultColumn string
	tieBreaker    string
}

// orderSort orders fulfillment order listings. Rows with equal sort keys are
// ordered by id so pages never overlap.
var orderSort = sortSpec{
	columns: map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"order_number": "order_number",
		"status":       "status",
	},
	defaultColumn: "created_at",
	tieBreaker:    "id",
}

// column resolves a requested sort key to a whitelisted column.
func (s sortSpec) column(field string) string {
	if col, ok := s.columns[strings.ToLower(strings.TrimSpace(field))]; ok {
		return col
	}
	return s.defaultColumn
}

// descending reports whether dir asks for descending order. Only an explicit
// "asc" sorts ascending.
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// orderBy builds the ORDER BY clause for field and dir.
func (s sortSpec) orderBy(field, dir string) clause.OrderBy {
	cols := []clause.OrderByColumn{{
		Column: clause.Column{Name: s.column(field)},
		Desc:   descending(dir),
	}}
	if s.tieBreaker != "" && s.tieBreaker != cols[0].Column.Name {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: s.tieBreaker}})
	}
	return clause.OrderBy{Columns: cols}
}
